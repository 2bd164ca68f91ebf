package measurement

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// ErrPlaceholderID is returned when an unconfirmed id is offered to the registry
var ErrPlaceholderID = errors.New("measurement id is not server assigned")

// ErrInvalidPoint is returned for endpoints with NaN or infinite components
var ErrInvalidPoint = errors.New("measurement endpoint is not finite")

// Registry is the local cache of server-confirmed measurements keyed by id.
// It is not safe for concurrent use; all access happens on the event loop.
type Registry struct {
	entities map[int]*Entity
	log      *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		entities: make(map[int]*Entity),
		log:      logger.For(log, logger.AreaRegistry),
	}
}

// Upsert inserts a new entity or mutates the existing one in place, so
// references held elsewhere keep observing the same object. The distance is
// always recomputed. It reports whether the entity was newly inserted.
func (r *Registry) Upsert(id int, start, end geometry.Vector3) (*Entity, bool, error) {
	if id < 0 {
		return nil, false, fmt.Errorf("upsert %d: %w", id, ErrPlaceholderID)
	}
	if !start.IsFinite() || !end.IsFinite() {
		return nil, false, fmt.Errorf("upsert %d: %w", id, ErrInvalidPoint)
	}

	if e, ok := r.entities[id]; ok {
		e.SetPoints(start, end)
		return e, false, nil
	}

	e := NewEntity(id, start, end)
	r.entities[id] = e
	return e, true, nil
}

// Remove deletes the entity with the given id. Removing an unknown id is
// logged and otherwise ignored.
func (r *Registry) Remove(id int) bool {
	if _, ok := r.entities[id]; !ok {
		r.log.Debug("remove of unknown measurement ignored", "id", id)
		return false
	}
	delete(r.entities, id)
	return true
}

// Get returns the entity with the given id
func (r *Registry) Get(id int) (*Entity, bool) {
	e, ok := r.entities[id]
	return e, ok
}

// Contains reports whether id is confirmed
func (r *Registry) Contains(id int) bool {
	_, ok := r.entities[id]
	return ok
}

// Len returns the number of confirmed entities
func (r *Registry) Len() int {
	return len(r.entities)
}

// Values yields every confirmed entity in no particular order. The sequence
// reads the live map each time it is ranged over.
func (r *Registry) Values() iter.Seq[*Entity] {
	return func(yield func(*Entity) bool) {
		for _, e := range r.entities {
			if !yield(e) {
				return
			}
		}
	}
}
