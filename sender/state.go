package sender

// RunState represents the stage of a streaming run.
type RunState uint32

const (
	// ReadyState indicates that the Sender is constructed and no I/O happened yet.
	ReadyState RunState = iota
	// RunningState indicates that the handshake or the exchanges are in progress.
	RunningState
	// ErrorState indicates that the run stopped before every command was acknowledged.
	ErrorState
	// FinishedState indicates that every command was acknowledged.
	FinishedState
)

// IsTerminal returns true for ErrorState and FinishedState.
func (rs RunState) IsTerminal() bool { return rs == ErrorState || rs == FinishedState }

// String returns string representation of the state.
func (rs RunState) String() string {
	switch rs {
	case ReadyState:
		return "ready"
	case RunningState:
		return "running"
	case ErrorState:
		return "error"
	case FinishedState:
		return "finished"
	default:
		return "unknown"
	}
}
