package interaction

// Mode is the primary authoring mode. Moving a point is orthogonal to it.
type Mode int

const (
	ModeIdle Mode = iota
	ModeCreate
	ModeDelete
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeDelete:
		return "delete"
	}
	return "idle"
}
