package measurement

// State is the controller lifecycle state.
type State int32

const (
	Inactive State = iota
	Active
	Error
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Active:
		return "Active"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}
