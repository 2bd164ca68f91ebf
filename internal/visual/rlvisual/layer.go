// Package rlvisual draws measurements with raylib.
package rlvisual

import (
	"fmt"
	"maps"
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/philipparndt/gomeasure/internal/config"
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/internal/visual"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

type object struct {
	preview   bool
	start     rl.Vector3
	end       rl.Vector3
	text      string
	highlight visual.Highlight
}

// Layer keeps the live measurement objects and draws them every frame. It
// implements visual.Layer and must only be used on the render goroutine.
type Layer struct {
	next    visual.Handle
	objects map[visual.Handle]*object
	palette config.Palette
	font    rl.Font

	// PointRadius is the endpoint sphere radius in world units
	PointRadius float32
}

// NewLayer creates an empty layer
func NewLayer(palette config.Palette, font rl.Font) *Layer {
	return &Layer{
		objects:     make(map[visual.Handle]*object),
		palette:     palette,
		font:        font,
		PointRadius: 0.05,
	}
}

// SetPalette swaps the colors used from the next frame on
func (l *Layer) SetPalette(p config.Palette) {
	l.palette = p
}

func (l *Layer) add(o *object) visual.Handle {
	l.next++
	l.objects[l.next] = o
	return l.next
}

func (l *Layer) RenderPreview(_ visual.PreviewKind, start, end geometry.Vector3) visual.Handle {
	return l.add(&object{
		preview: true,
		start:   toRL(start),
		end:     toRL(end),
		text:    fmt.Sprintf("%.2f", start.Distance(end)),
	})
}

func (l *Layer) RenderEntity(e *measurement.Entity) visual.Handle {
	return l.add(&object{start: toRL(e.Start), end: toRL(e.End), text: e.Label()})
}

func (l *Layer) SetHighlight(h visual.Handle, level visual.Highlight) {
	if o, ok := l.objects[h]; ok {
		o.highlight = level
	}
}

func (l *Layer) Dispose(h visual.Handle) {
	delete(l.objects, h)
}

// handles returns the live handles in creation order, so overlapping
// objects keep a stable draw order
func (l *Layer) handles() []visual.Handle {
	return slices.Sorted(maps.Keys(l.objects))
}

// Len returns the number of live objects
func (l *Layer) Len() int {
	return len(l.objects)
}

// Draw3D draws lines and endpoints. Call it between BeginMode3D and EndMode3D.
// Highlighted objects go last so they stay on top of plain ones.
func (l *Layer) Draw3D() {
	handles := l.handles()
	for _, pass := range [2]bool{false, true} {
		for _, h := range handles {
			o := l.objects[h]
			if (o.highlight != visual.HighlightNone) != pass {
				continue
			}
			c := l.colorOf(o)
			rl.DrawLine3D(o.start, o.end, c)
			rl.DrawSphere(o.start, l.PointRadius, c)
			rl.DrawSphere(o.end, l.PointRadius, c)
		}
	}
}

// DrawLabels draws the distance labels in screen space, after EndMode3D
func (l *Layer) DrawLabels(camera rl.Camera3D) {
	forward := rl.Vector3Subtract(camera.Target, camera.Position)
	for _, h := range l.handles() {
		o := l.objects[h]
		mid := rl.Vector3Lerp(o.start, o.end, 0.5)
		if rl.Vector3DotProduct(rl.Vector3Subtract(mid, camera.Position), forward) <= 0 {
			continue
		}
		label := Label{
			Text:       o.text,
			ScreenPos:  rl.GetWorldToScreen(mid, camera),
			BaseColor:  l.baseColor(o),
			HoverColor: l.colorOf(o),
			IsHovered:  o.highlight != visual.HighlightNone,
		}
		label.Draw(l.font, 16, 4)
	}
}

func (l *Layer) colorOf(o *object) rl.Color {
	switch o.highlight {
	case visual.HighlightDelete:
		return Color(l.palette.Delete)
	case visual.HighlightHover:
		return Color(l.palette.Hover)
	}
	return l.baseColor(o)
}

// baseColor ignores the highlight
func (l *Layer) baseColor(o *object) rl.Color {
	if o.preview {
		return Color(l.palette.Preview)
	}
	return Color(l.palette.Line)
}

// Color converts a configured color to raylib
func Color(c config.RGBA) rl.Color {
	return rl.NewColor(c.R, c.G, c.B, c.A)
}

func toRL(v geometry.Vector3) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
