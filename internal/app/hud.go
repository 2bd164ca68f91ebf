package app

import (
	"fmt"
	"iter"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/philipparndt/gomeasure/internal/interaction"
	"github.com/philipparndt/gomeasure/pkg/analysis"
	"github.com/philipparndt/gomeasure/version"
)

var helpLines = []string{
	"M      toggle create mode",
	"X      toggle delete mode / delete moved measurement",
	"Esc    cancel, leave mode, quit",
	"LMB    drag to measure, drag endpoint to move",
	"RMB    orbit    MMB pan    wheel zoom",
	"G grid  W wireframe  T top  1 front  Home reset  H help",
}

// drawHUD draws mode, session summary and help
func (app *App) drawHUD() {
	y := float32(10)
	lineHeight := float32(20)
	fontSize := float32(16)
	screenWidth := float32(rl.GetScreenWidth())
	screenHeight := float32(rl.GetScreenHeight())

	text := func(s string, x, y float32, c rl.Color) {
		rl.DrawTextEx(app.font, s, rl.Vector2{X: x, Y: y}, fontSize, 1, c)
	}

	mode := "mode: " + app.ctrl.Mode().String()
	modeColor := rl.LightGray
	switch app.ctrl.Mode() {
	case interaction.ModeCreate:
		modeColor = rl.NewColor(138, 180, 248, 255)
	case interaction.ModeDelete:
		modeColor = rl.NewColor(229, 57, 53, 255)
	}
	if id, ok := app.ctrl.MovingID(); ok {
		mode += fmt.Sprintf("  (moving %d)", id)
	}
	if n := app.session.Outstanding(); n > 0 {
		mode += fmt.Sprintf("  %d awaiting relay", n)
	}
	text(mode, 10, y, modeColor)
	y += lineHeight

	summary := analysis.Summarize(app.distances())
	text(summary.String(), 10, y, rl.LightGray)
	y += lineHeight

	if app.Model.loaded {
		info := app.modelInfo
		text(fmt.Sprintf("%s: %d triangles, %s", info.Name, info.Triangles, analysis.FormatVector(info.Size)), 10, y, rl.Gray)
		y += lineHeight
	}
	if app.FileWatch.isLoading {
		text("reloading model...", 10, y, rl.Yellow)
	}

	status := app.opts.Status
	if status == "" {
		status = "offline"
	}
	footer := fmt.Sprintf("%s  gomeasure %s", status, version.GetVersion())
	size := rl.MeasureTextEx(app.font, footer, fontSize, 1)
	text(footer, screenWidth-size.X-10, screenHeight-size.Y-10, rl.Gray)

	if !app.View.showHelp {
		text("H for help", 10, screenHeight-lineHeight-10, rl.Gray)
		return
	}
	hy := screenHeight - float32(len(helpLines))*lineHeight - 10
	for _, line := range helpLines {
		text(line, 10, hy, rl.LightGray)
		hy += lineHeight
	}
}

func (app *App) distances() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for e := range app.registry.Values() {
			if !yield(e.Distance) {
				return
			}
		}
	}
}
