// Package interaction implements the authoring state machine: create and
// delete modes, the orthogonal point move, pointer drags and hover.
//
// The controller only produces previews and intents. Confirmed entities are
// written by the session adapter when the relay broadcasts them.
package interaction

import (
	"log/slog"
	"time"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/internal/pick"
	"github.com/philipparndt/gomeasure/internal/session"
	"github.com/philipparndt/gomeasure/internal/visual"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

const (
	// minLength is the shortest measurement a create-drag may produce
	minLength = 1e-9
	// DefaultPendingTimeout is how long a committed move waits for the relay
	DefaultPendingTimeout = 5 * time.Second
)

// Intents receives the mutations the user asked for
type Intents interface {
	RequestCreate(start, end geometry.Vector3, distance float64) (string, error)
	RequestUpdate(id int, start, end geometry.Vector3, distance float64) (string, error)
	RequestDelete(id int) (string, error)
}

// Entities looks up confirmed entities
type Entities interface {
	Get(id int) (*measurement.Entity, bool)
}

// Config wires a controller to its collaborators
type Config struct {
	Picker     pick.Picker
	Entities   Entities
	Projection *visual.Projection
	Layer      visual.Layer
	Intents    Intents
	Log        *slog.Logger

	// PendingTimeout bounds how long a committed move is shown without
	// confirmation. Zero means DefaultPendingTimeout.
	PendingTimeout time.Duration
	// Now defaults to time.Now
	Now func() time.Time
}

type createDrag struct {
	active  bool
	start   geometry.Vector3
	end     geometry.Vector3
	preview visual.Handle
}

type pendingMove struct {
	preview visual.Handle
	since   time.Time
}

type pointMove struct {
	active  bool
	id      int
	moving  measurement.Endpoint
	fixed   geometry.Vector3
	current geometry.Vector3
	preview visual.Handle
}

// Controller is the interaction state machine. All methods must be called
// from the event loop goroutine.
type Controller struct {
	picker  pick.Picker
	entity  Entities
	proj    *visual.Projection
	layer   visual.Layer
	intents Intents
	hover   *HoverResolver
	log     *slog.Logger

	mode    Mode
	cursorX float64
	cursorY float64

	drag createDrag
	move pointMove

	// last point the picker hit during the current drag or move
	lastValid    geometry.Vector3
	hasLastValid bool

	// move previews kept until the relay confirms the update or the
	// timeout passes
	pending        map[int]pendingMove
	pendingTimeout time.Duration
	now            func() time.Time
}

// NewController creates a controller in idle mode
func NewController(cfg Config) *Controller {
	if cfg.PendingTimeout <= 0 {
		cfg.PendingTimeout = DefaultPendingTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		picker:  cfg.Picker,
		entity:  cfg.Entities,
		proj:    cfg.Projection,
		layer:   cfg.Layer,
		intents: cfg.Intents,
		hover:   NewHoverResolver(cfg.Projection),
		log:     logger.For(cfg.Log, logger.AreaInteraction),
		pending: make(map[int]pendingMove),

		pendingTimeout: cfg.PendingTimeout,
		now:            cfg.Now,
	}
}

// Mode returns the primary mode
func (c *Controller) Mode() Mode { return c.mode }

// MovingPoint reports whether an endpoint is being dragged
func (c *Controller) MovingPoint() bool { return c.move.active }

// MovingID returns the entity whose endpoint is being dragged
func (c *Controller) MovingID() (int, bool) {
	return c.move.id, c.move.active
}

// Dragging reports whether a create-drag is in progress
func (c *Controller) Dragging() bool { return c.drag.active }

// Hover returns the hover resolver
func (c *Controller) Hover() *HoverResolver { return c.hover }

// ToggleCreate switches between idle and create mode
func (c *Controller) ToggleCreate() {
	if c.mode == ModeCreate {
		c.setMode(ModeIdle)
	} else {
		c.setMode(ModeCreate)
	}
}

// ToggleDelete switches between idle and delete mode
func (c *Controller) ToggleDelete() {
	if c.mode == ModeDelete {
		c.setMode(ModeIdle)
	} else {
		c.setMode(ModeDelete)
	}
}

func (c *Controller) setMode(m Mode) {
	c.cancelActive()
	c.hover.Clear()
	if m != c.mode {
		c.log.Debug("mode changed", "from", c.mode, "to", m)
	}
	c.mode = m
}

// Escape cancels whatever is in progress and returns to idle. It reports
// true when there was nothing to cancel, meaning the tool should be left.
func (c *Controller) Escape() (exit bool) {
	cancelled := c.cancelActive()
	if c.mode != ModeIdle {
		c.setMode(ModeIdle)
		return false
	}
	return !cancelled
}

// DeleteShortcut handles the delete key. While an endpoint is being moved
// the move is cancelled and that entity is deleted; otherwise delete mode
// is toggled.
func (c *Controller) DeleteShortcut() {
	if !c.move.active {
		c.ToggleDelete()
		return
	}
	id := c.move.id
	c.cancelMove()
	if _, err := c.intents.RequestDelete(id); err != nil {
		c.log.Warn("delete while moving failed", "id", id, "err", err)
	}
}

// PointerDown starts a create-drag, a point move or a delete depending on
// the mode and what is under the cursor.
func (c *Controller) PointerDown(x, y float64) {
	c.cursorX, c.cursorY = x, y
	if c.drag.active || c.move.active {
		return
	}

	r := c.picker.Pick(x, y)
	if c.mode == ModeDelete {
		c.hover.Update(c.mode, r)
		if id, _, ok := c.hover.Hovered(); ok {
			if _, err := c.intents.RequestDelete(id); err != nil {
				c.log.Warn("delete request failed", "id", id, "err", err)
			}
		}
		return
	}

	if ep, ok := r.EndpointTarget(); ok {
		c.beginMove(ep)
		return
	}
	if _, none := r.Target.(pick.None); c.mode == ModeCreate && r.Hit && none {
		c.beginDrag(r.Point)
	}
}

// PointerMove records the cursor; previews follow on the next Tick
func (c *Controller) PointerMove(x, y float64) {
	c.cursorX, c.cursorY = x, y
}

// PointerUp finishes the active create-drag or point move
func (c *Controller) PointerUp(x, y float64) {
	c.cursorX, c.cursorY = x, y
	switch {
	case c.drag.active:
		c.finishDrag()
	case c.move.active:
		c.finishMove()
	}
}

// Pending returns the number of committed moves awaiting confirmation
func (c *Controller) Pending() int { return len(c.pending) }

// ReleasePending drops every unconfirmed move preview and shows the
// entities as the registry has them. Call it when the transport is lost.
func (c *Controller) ReleasePending() {
	for id := range c.pending {
		c.release(id, true)
	}
}

// Tick runs once per frame. It moves the active preview, or tracks hover
// when nothing is being dragged. Unconfirmed moves older than the pending
// timeout are given up.
func (c *Controller) Tick() {
	now := c.now()
	for id, p := range c.pending {
		if now.Sub(p.since) >= c.pendingTimeout {
			c.log.Warn("move not confirmed, restoring measurement", "id", id, "waited", now.Sub(p.since))
			c.release(id, true)
		}
	}

	switch {
	case c.drag.active:
		if p, ok := c.currentPoint(); ok && p != c.drag.end {
			c.drag.end = p
			c.drag.preview = c.redraw(c.drag.preview, visual.PreviewCreate, c.drag.start, p)
		}
	case c.move.active:
		if p, ok := c.currentPoint(); ok && p != c.move.current {
			c.move.current = p
			start, end := c.movePoints(p)
			c.move.preview = c.redraw(c.move.preview, visual.PreviewMove, start, end)
		}
	default:
		c.hover.Update(c.mode, c.picker.Pick(c.cursorX, c.cursorY))
	}
}

// Apply is the session observer hook. It releases pending move previews and
// abandons a move whose entity the relay removed.
func (c *Controller) Apply(ev session.Event) {
	switch ev.Kind {
	case session.Updated:
		c.release(ev.ID, true)
	case session.Removed:
		c.release(ev.ID, false)
		c.hover.Forget(ev.ID)
		if c.move.active && c.move.id == ev.ID {
			c.log.Info("measurement removed while moving", "id", ev.ID)
			c.cancelMove()
		}
	}
}

func (c *Controller) release(id int, show bool) {
	p, ok := c.pending[id]
	if !ok {
		return
	}
	c.layer.Dispose(p.preview)
	delete(c.pending, id)
	if show && !(c.move.active && c.move.id == id) {
		c.proj.Show(id)
	}
}

func (c *Controller) beginDrag(start geometry.Vector3) {
	c.resetLastValid()
	c.hover.Clear()
	c.drag = createDrag{
		active:  true,
		start:   start,
		end:     start,
		preview: c.layer.RenderPreview(visual.PreviewCreate, start, start),
	}
}

func (c *Controller) finishDrag() {
	end, ok := c.currentPoint()
	start := c.drag.start
	c.cancelDrag()
	if !ok || start.Distance(end) < minLength {
		c.log.Debug("create-drag ended without an end point")
		return
	}
	if _, err := c.intents.RequestCreate(start, end, start.Distance(end)); err != nil {
		c.log.Warn("create request failed", "err", err)
	}
}

func (c *Controller) cancelDrag() {
	c.dispose(c.drag.preview)
	c.drag = createDrag{}
	c.resetLastValid()
}

func (c *Controller) beginMove(ep pick.Endpoint) {
	e, ok := c.entity.Get(ep.EntityID)
	if !ok {
		c.log.Warn("endpoint of unknown measurement picked", "id", ep.EntityID)
		return
	}
	c.resetLastValid()
	c.hover.Clear()
	c.proj.Hide(e.ID)
	current := e.Point(ep.Role)
	c.move = pointMove{
		active:  true,
		id:      e.ID,
		moving:  ep.Role,
		fixed:   e.Point(ep.Role.Other()),
		current: current,
		preview: c.layer.RenderPreview(visual.PreviewMove, e.Start, e.End),
	}
}

func (c *Controller) finishMove() {
	p, ok := c.currentPoint()
	if !ok {
		c.cancelMove()
		return
	}
	id := c.move.id
	start, end := c.movePoints(p)
	if _, err := c.intents.RequestUpdate(id, start, end, start.Distance(end)); err != nil {
		c.log.Warn("update request failed", "id", id, "err", err)
		c.cancelMove()
		return
	}

	c.move.preview = c.redraw(c.move.preview, visual.PreviewMove, start, end)
	if old, ok := c.pending[id]; ok {
		c.layer.Dispose(old.preview)
	}
	c.pending[id] = pendingMove{preview: c.move.preview, since: c.now()}
	c.move = pointMove{}
	c.resetLastValid()
}

// cancelMove discards the preview and shows the entity as it was
func (c *Controller) cancelMove() {
	id := c.move.id
	c.dispose(c.move.preview)
	c.move = pointMove{}
	c.resetLastValid()
	if _, waiting := c.pending[id]; !waiting {
		c.proj.Show(id)
	}
}

// cancelActive cancels a drag or a move and reports whether there was one
func (c *Controller) cancelActive() bool {
	switch {
	case c.drag.active:
		c.cancelDrag()
		return true
	case c.move.active:
		c.cancelMove()
		return true
	}
	return false
}

func (c *Controller) movePoints(p geometry.Vector3) (start, end geometry.Vector3) {
	if c.move.moving == measurement.StartPoint {
		return p, c.move.fixed
	}
	return c.move.fixed, p
}

// currentPoint picks under the cursor. A miss falls back to the last point
// that did hit, so the preview never jumps to an undefined position.
func (c *Controller) currentPoint() (geometry.Vector3, bool) {
	r := c.picker.Pick(c.cursorX, c.cursorY)
	if r.Hit {
		c.lastValid = r.Point
		c.hasLastValid = true
	}
	return c.lastValid, c.hasLastValid
}

func (c *Controller) resetLastValid() {
	c.lastValid = geometry.Vector3{}
	c.hasLastValid = false
}

func (c *Controller) redraw(old visual.Handle, kind visual.PreviewKind, start, end geometry.Vector3) visual.Handle {
	c.dispose(old)
	return c.layer.RenderPreview(kind, start, end)
}

func (c *Controller) dispose(h visual.Handle) {
	if h != 0 {
		c.layer.Dispose(h)
	}
}
