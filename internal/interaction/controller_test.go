package interaction

import (
	"errors"
	"testing"
	"time"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/internal/pick"
	"github.com/philipparndt/gomeasure/internal/session"
	"github.com/philipparndt/gomeasure/internal/visual"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

type intent struct {
	id       int
	start    geometry.Vector3
	end      geometry.Vector3
	distance float64
}

type fakeIntents struct {
	creates []intent
	updates []intent
	deletes []int
	err     error
}

func (f *fakeIntents) RequestCreate(start, end geometry.Vector3, distance float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.creates = append(f.creates, intent{measurement.PlaceholderID, start, end, distance})
	return "c", nil
}

func (f *fakeIntents) RequestUpdate(id int, start, end geometry.Vector3, distance float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.updates = append(f.updates, intent{id, start, end, distance})
	return "u", nil
}

func (f *fakeIntents) RequestDelete(id int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.deletes = append(f.deletes, id)
	return "d", nil
}

// scene is a scripted picker keyed by exact screen coordinates
type scene map[[2]float64]pick.Result

func (s scene) Pick(x, y float64) pick.Result {
	if r, ok := s[[2]float64{x, y}]; ok {
		return r
	}
	return pick.Miss
}

func (s scene) surface(x, y float64, p geometry.Vector3) {
	s[[2]float64{x, y}] = pick.Result{Hit: true, Point: p, Target: pick.None{}}
}

func (s scene) endpoint(x, y float64, id int, role measurement.Endpoint, p geometry.Vector3) {
	s[[2]float64{x, y}] = pick.Result{Hit: true, Point: p, Target: pick.Endpoint{EntityID: id, Role: role}}
}

type harness struct {
	c       *Controller
	reg     *measurement.Registry
	layer   *visual.Recorder
	proj    *visual.Projection
	intents *fakeIntents
	scene   scene
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		reg:     measurement.NewRegistry(logger.Discard()),
		layer:   visual.NewRecorder(),
		intents: &fakeIntents{},
		scene:   scene{},
		now:     time.Unix(1000, 0),
	}
	h.proj = visual.NewProjection(h.layer)
	h.c = NewController(Config{
		Picker:     h.scene,
		Entities:   h.reg,
		Projection: h.proj,
		Layer:      h.layer,
		Intents:    h.intents,
		Log:        logger.Discard(),
		Now:        func() time.Time { return h.now },
	})
	return h
}

func (h *harness) seed(id int, start, end geometry.Vector3) *measurement.Entity {
	e, _, err := h.reg.Upsert(id, start, end)
	if err != nil {
		panic(err)
	}
	h.proj.Refresh(e)
	return e
}

func v(x, y, z float64) geometry.Vector3 { return geometry.NewVector3(x, y, z) }

func TestTogglesAreReversible(t *testing.T) {
	tests := []struct {
		name   string
		toggle func(*Controller)
		mid    Mode
	}{
		{"create", (*Controller).ToggleCreate, ModeCreate},
		{"delete", (*Controller).ToggleDelete, ModeDelete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.toggle(h.c)
			if h.c.Mode() != tt.mid {
				t.Errorf("after first toggle mode = %s, want %s", h.c.Mode(), tt.mid)
			}
			tt.toggle(h.c)
			if h.c.Mode() != ModeIdle {
				t.Errorf("after second toggle mode = %s, want idle", h.c.Mode())
			}
		})
	}
}

func TestToggleClearsHover(t *testing.T) {
	h := newHarness(t)
	h.seed(1, v(0, 0, 0), v(1, 0, 0))
	h.scene.endpoint(5, 5, 1, measurement.EndPoint, v(1, 0, 0))

	h.c.PointerMove(5, 5)
	h.c.Tick()
	if h.proj.Highlight(1) != visual.HighlightHover {
		t.Fatalf("highlight = %s, want hover", h.proj.Highlight(1))
	}

	h.c.ToggleCreate()
	if h.proj.Highlight(1) != visual.HighlightNone {
		t.Errorf("highlight after toggle = %s, want none", h.proj.Highlight(1))
	}
	if _, _, ok := h.c.Hover().Hovered(); ok {
		t.Error("hover still tracked after toggle")
	}
}

func TestCreateDrag(t *testing.T) {
	h := newHarness(t)
	h.scene.surface(0, 0, v(0, 0, 0))
	h.scene.surface(10, 0, v(3, 4, 0))
	h.c.ToggleCreate()

	h.c.PointerDown(0, 0)
	if !h.c.Dragging() {
		t.Fatal("drag did not start")
	}
	h.c.PointerMove(10, 0)
	h.c.Tick()

	previews := h.layer.Previews()
	if len(previews) != 1 || previews[0].End != v(3, 4, 0) {
		t.Fatalf("previews = %+v, want one ending at (3,4,0)", previews)
	}

	h.c.PointerUp(10, 0)
	if len(h.intents.creates) != 1 {
		t.Fatalf("creates = %d, want 1", len(h.intents.creates))
	}
	got := h.intents.creates[0]
	if got.id != measurement.PlaceholderID || got.distance != 5 {
		t.Errorf("create intent = %+v", got)
	}
	if h.c.Dragging() || len(h.layer.Previews()) != 0 {
		t.Error("drag state not reset after finishing")
	}
	if h.reg.Len() != 0 {
		t.Error("controller wrote to the registry")
	}
}

func TestCreateDragClampsToLastValidPoint(t *testing.T) {
	h := newHarness(t)
	h.scene.surface(0, 0, v(0, 0, 0))
	h.scene.surface(10, 0, v(3, 4, 0))
	h.c.ToggleCreate()

	h.c.PointerDown(0, 0)
	h.c.PointerMove(10, 0)
	h.c.Tick()
	h.c.PointerMove(99, 99)
	h.c.Tick()

	if p := h.layer.Previews(); len(p) != 1 || p[0].End != v(3, 4, 0) {
		t.Errorf("preview after miss = %+v, want clamped to (3,4,0)", p)
	}

	h.c.PointerUp(99, 99)
	if len(h.intents.creates) != 1 || h.intents.creates[0].end != v(3, 4, 0) {
		t.Errorf("creates = %+v, want end (3,4,0)", h.intents.creates)
	}
}

func TestCreateDragWithoutEndPointCancels(t *testing.T) {
	h := newHarness(t)
	h.scene.surface(0, 0, v(0, 0, 0))
	h.c.ToggleCreate()

	h.c.PointerDown(0, 0)
	h.c.PointerUp(99, 99)

	if len(h.intents.creates) != 0 {
		t.Errorf("creates = %d, want 0", len(h.intents.creates))
	}
	if len(h.layer.Previews()) != 0 {
		t.Error("preview left behind")
	}
}

func TestEscapeCancelsCreateDrag(t *testing.T) {
	h := newHarness(t)
	h.scene.surface(0, 0, v(0, 0, 0))
	h.scene.surface(10, 0, v(3, 4, 0))
	h.c.ToggleCreate()

	h.c.PointerDown(0, 0)
	h.c.PointerMove(10, 0)
	h.c.Tick()

	if exit := h.c.Escape(); exit {
		t.Error("Escape() during drag asked to exit")
	}
	if h.c.Mode() != ModeIdle || h.c.Dragging() {
		t.Errorf("mode = %s dragging = %v, want idle and not dragging", h.c.Mode(), h.c.Dragging())
	}
	h.c.PointerUp(10, 0)
	if len(h.intents.creates) != 0 || h.reg.Len() != 0 {
		t.Error("cancelled drag produced a measurement")
	}
	if len(h.layer.Previews()) != 0 {
		t.Error("preview left behind")
	}
	if exit := h.c.Escape(); !exit {
		t.Error("Escape() in idle with nothing active should exit")
	}
}

func TestCreateDragPreconditions(t *testing.T) {
	h := newHarness(t)
	h.scene.surface(0, 0, v(0, 0, 0))
	h.scene[[2]float64{1, 1}] = pick.Result{Hit: true, Point: v(1, 1, 1), Target: pick.Other{}}

	h.c.PointerDown(0, 0)
	if h.c.Dragging() {
		t.Error("drag started outside create mode")
	}

	h.c.ToggleCreate()
	for _, pos := range [][2]float64{{99, 99}, {1, 1}} {
		h.c.PointerDown(pos[0], pos[1])
		if h.c.Dragging() {
			t.Errorf("drag started at %v", pos)
		}
	}
}

func TestNoNewDragWhileBusy(t *testing.T) {
	h := newHarness(t)
	h.seed(1, v(0, 0, 0), v(1, 0, 0))
	h.scene.surface(0, 0, v(0, 0, 0))
	h.scene.surface(10, 0, v(5, 0, 0))
	h.scene.endpoint(5, 5, 1, measurement.EndPoint, v(1, 0, 0))
	h.c.ToggleCreate()

	h.c.PointerDown(0, 0)
	h.c.PointerDown(10, 0)
	h.c.PointerDown(5, 5)

	if h.c.MovingPoint() {
		t.Error("move started during a create-drag")
	}
	if n := len(h.layer.Previews()); n != 1 {
		t.Errorf("previews = %d, want 1", n)
	}
	h.c.PointerUp(10, 0)
	if len(h.intents.creates) != 1 || h.intents.creates[0].start != v(0, 0, 0) {
		t.Errorf("creates = %+v, want one starting at origin", h.intents.creates)
	}
}

func TestHoverSkippedWhileDragging(t *testing.T) {
	h := newHarness(t)
	h.seed(1, v(0, 0, 0), v(1, 0, 0))
	h.scene.surface(0, 0, v(9, 9, 9))
	h.scene.endpoint(5, 5, 1, measurement.EndPoint, v(1, 0, 0))
	h.c.ToggleCreate()

	h.c.PointerDown(0, 0)
	h.c.PointerMove(5, 5)
	h.c.Tick()

	if h.proj.Highlight(1) != visual.HighlightNone {
		t.Errorf("highlight during drag = %s, want none", h.proj.Highlight(1))
	}
}

func TestMoveCommitKeepsPreviewUntilConfirmed(t *testing.T) {
	h := newHarness(t)
	e := h.seed(1, v(0, 0, 0), v(1, 0, 0))
	h.scene.endpoint(5, 5, 1, measurement.EndPoint, v(1, 0, 0))
	h.scene.surface(20, 20, v(2, 0, 0))

	h.c.PointerDown(5, 5)
	if !h.c.MovingPoint() {
		t.Fatal("move did not start")
	}
	if !h.proj.Hidden(1) {
		t.Error("original visual not hidden during move")
	}
	if _, ok := h.layer.Entity(1); ok {
		t.Error("original visual still drawn during move")
	}

	h.c.PointerMove(20, 20)
	h.c.Tick()
	h.c.PointerUp(20, 20)

	want := intent{1, v(0, 0, 0), v(2, 0, 0), 2}
	if len(h.intents.updates) != 1 || h.intents.updates[0] != want {
		t.Fatalf("updates = %+v, want %+v", h.intents.updates, want)
	}
	if h.c.MovingPoint() {
		t.Error("still moving after commit")
	}
	if e.End != v(1, 0, 0) {
		t.Error("controller mutated the entity")
	}
	if n := len(h.layer.Previews()); n != 1 {
		t.Fatalf("pending previews = %d, want 1", n)
	}

	// The relay echo arrives
	h.reg.Upsert(1, v(0, 0, 0), v(2, 0, 0))
	h.proj.Refresh(e)
	h.c.Apply(session.Event{Kind: session.Updated, ID: 1, Entity: e})

	if n := len(h.layer.Previews()); n != 0 {
		t.Errorf("previews after echo = %d, want 0", n)
	}
	if o, ok := h.layer.Entity(1); !ok || o.End != v(2, 0, 0) {
		t.Errorf("entity visual after echo = %+v", o)
	}
}

func TestMoveEndpointRoles(t *testing.T) {
	h := newHarness(t)
	h.seed(1, v(0, 0, 0), v(1, 0, 0))
	h.scene.endpoint(5, 5, 1, measurement.StartPoint, v(0, 0, 0))
	h.scene.surface(20, 20, v(0, 3, 0))

	h.c.PointerDown(5, 5)
	h.c.PointerMove(20, 20)
	h.c.PointerUp(20, 20)

	want := intent{1, v(0, 3, 0), v(1, 0, 0), v(0, 3, 0).Distance(v(1, 0, 0))}
	if len(h.intents.updates) != 1 || h.intents.updates[0] != want {
		t.Errorf("updates = %+v, want %+v", h.intents.updates, want)
	}
}

func TestCancelledMoveLeavesEntityUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		cancel func(h *harness)
	}{
		{"escape", func(h *harness) {
			h.c.PointerMove(20, 20)
			h.c.Tick()
			h.c.Escape()
		}},
		{"no valid point on release", func(h *harness) {
			h.c.PointerUp(99, 99)
		}},
		{"send failure", func(h *harness) {
			h.intents.err = errors.New("offline")
			h.c.PointerMove(20, 20)
			h.c.PointerUp(20, 20)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			e := h.seed(1, v(0.1, 0.2, 0.3), v(1.5, 0, -2))
			before := *e
			h.scene.endpoint(5, 5, 1, measurement.EndPoint, e.End)
			h.scene.surface(20, 20, v(7, 7, 7))

			h.c.PointerDown(5, 5)
			tt.cancel(h)

			if *e != before {
				t.Errorf("entity changed: %+v, want %+v", *e, before)
			}
			if h.c.MovingPoint() {
				t.Error("still moving")
			}
			if h.proj.Hidden(1) {
				t.Error("entity visual not restored")
			}
			if o, ok := h.layer.Entity(1); !ok || o.End != before.End {
				t.Errorf("restored visual = %+v", o)
			}
			if len(h.layer.Previews()) != 0 {
				t.Error("preview left behind")
			}
			if len(h.intents.updates) != 0 {
				t.Errorf("updates sent: %+v", h.intents.updates)
			}
		})
	}
}

func TestDeleteMode(t *testing.T) {
	h := newHarness(t)
	h.seed(1, v(0, 0, 0), v(1, 0, 0))
	h.scene.endpoint(5, 5, 1, measurement.EndPoint, v(1, 0, 0))
	h.scene.surface(0, 0, v(0, 0, 0))
	h.c.ToggleDelete()

	h.c.PointerMove(5, 5)
	h.c.Tick()
	if h.proj.Highlight(1) != visual.HighlightDelete {
		t.Errorf("highlight = %s, want delete", h.proj.Highlight(1))
	}

	h.c.PointerDown(5, 5)
	if len(h.intents.deletes) != 1 || h.intents.deletes[0] != 1 {
		t.Errorf("deletes = %v, want [1]", h.intents.deletes)
	}
	if h.c.MovingPoint() {
		t.Error("endpoint pick started a move in delete mode")
	}

	h.c.PointerDown(0, 0)
	if len(h.intents.deletes) != 1 {
		t.Errorf("pointer down without hover deleted something: %v", h.intents.deletes)
	}
	if h.c.Dragging() {
		t.Error("create-drag started in delete mode")
	}
	if h.reg.Len() != 1 {
		t.Error("delete request removed the entity locally")
	}
}

func TestDeleteShortcut(t *testing.T) {
	t.Run("toggles delete mode", func(t *testing.T) {
		h := newHarness(t)
		h.c.DeleteShortcut()
		if h.c.Mode() != ModeDelete {
			t.Errorf("mode = %s, want delete", h.c.Mode())
		}
		h.c.DeleteShortcut()
		if h.c.Mode() != ModeIdle {
			t.Errorf("mode = %s, want idle", h.c.Mode())
		}
	})

	t.Run("deletes while moving", func(t *testing.T) {
		h := newHarness(t)
		h.seed(3, v(0, 0, 0), v(1, 0, 0))
		h.scene.endpoint(5, 5, 3, measurement.StartPoint, v(0, 0, 0))
		h.c.PointerDown(5, 5)

		h.c.DeleteShortcut()

		if h.c.MovingPoint() {
			t.Error("still moving")
		}
		if h.c.Mode() != ModeIdle {
			t.Errorf("mode = %s, want idle", h.c.Mode())
		}
		if len(h.intents.deletes) != 1 || h.intents.deletes[0] != 3 {
			t.Errorf("deletes = %v, want [3]", h.intents.deletes)
		}
		if len(h.layer.Previews()) != 0 || h.proj.Hidden(3) {
			t.Error("move visuals not restored")
		}
	})
}

func TestRemovedEntityCancelsMove(t *testing.T) {
	h := newHarness(t)
	h.seed(3, v(0, 0, 0), v(1, 0, 0))
	h.scene.endpoint(5, 5, 3, measurement.EndPoint, v(1, 0, 0))
	h.scene.surface(20, 20, v(2, 0, 0))

	h.c.PointerDown(5, 5)
	h.c.PointerMove(20, 20)
	h.c.Tick()

	h.reg.Remove(3)
	h.proj.Remove(3)
	h.c.Apply(session.Event{Kind: session.Removed, ID: 3})

	if h.c.MovingPoint() {
		t.Error("move still active for a removed entity")
	}
	if len(h.layer.Live) != 0 {
		t.Errorf("live visuals = %d, want 0", len(h.layer.Live))
	}
	h.c.PointerUp(20, 20)
	if len(h.intents.updates) != 0 {
		t.Error("update sent for a removed entity")
	}
}

// commitMove drags the end point of entity 1 from (5,5) to (20,20)
func (h *harness) commitMove(t *testing.T) {
	t.Helper()
	h.scene.endpoint(5, 5, 1, measurement.EndPoint, v(1, 0, 0))
	h.scene.surface(20, 20, v(2, 0, 0))
	h.c.PointerDown(5, 5)
	h.c.PointerMove(20, 20)
	h.c.Tick()
	h.c.PointerUp(20, 20)
	if h.c.Pending() != 1 {
		t.Fatalf("Pending() = %d after commit, want 1", h.c.Pending())
	}
}

func TestUnconfirmedMoveIsRestoredAfterTimeout(t *testing.T) {
	h := newHarness(t)
	e := h.seed(1, v(0, 0, 0), v(1, 0, 0))
	h.commitMove(t)

	h.now = h.now.Add(DefaultPendingTimeout - time.Second)
	h.c.Tick()
	if h.c.Pending() != 1 || !h.proj.Hidden(1) {
		t.Fatal("move released before the timeout")
	}

	// The update never comes back
	h.now = h.now.Add(time.Second)
	h.c.Tick()
	if h.c.Pending() != 0 {
		t.Errorf("Pending() = %d after timeout, want 0", h.c.Pending())
	}
	if n := len(h.layer.Previews()); n != 0 {
		t.Errorf("previews after timeout = %d, want 0", n)
	}
	if h.proj.Hidden(1) {
		t.Error("entity still hidden after timeout")
	}
	if o, ok := h.layer.Entity(1); !ok || o.End != v(1, 0, 0) {
		t.Errorf("entity visual after timeout = %+v, want registry points", o)
	}

	// The entity can be moved again
	h.c.PointerDown(5, 5)
	if id, ok := h.c.MovingID(); !ok || id != 1 {
		t.Error("entity not movable after its move timed out")
	}
	h.c.Escape()

	// A late echo is applied like any remote update
	h.reg.Upsert(1, v(0, 0, 0), v(2, 0, 0))
	h.proj.Refresh(e)
	h.c.Apply(session.Event{Kind: session.Updated, ID: 1, Entity: e})
	if o, ok := h.layer.Entity(1); !ok || o.End != v(2, 0, 0) {
		t.Errorf("entity visual after late echo = %+v", o)
	}
}

func TestReleasePendingRestoresEntities(t *testing.T) {
	h := newHarness(t)
	h.seed(1, v(0, 0, 0), v(1, 0, 0))
	h.commitMove(t)

	h.c.ReleasePending()

	if h.c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", h.c.Pending())
	}
	if n := len(h.layer.Previews()); n != 0 {
		t.Errorf("previews = %d, want 0", n)
	}
	if h.proj.Hidden(1) {
		t.Error("entity still hidden")
	}
}

func TestRecommitReplacesPendingPreview(t *testing.T) {
	h := newHarness(t)
	h.seed(1, v(0, 0, 0), v(1, 0, 0))
	h.commitMove(t)
	h.commitMove(t)

	if n := len(h.layer.Previews()); n != 1 {
		t.Errorf("previews = %d after second commit, want 1", n)
	}
}
