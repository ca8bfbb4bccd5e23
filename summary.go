package insitu

// StopReason tells why Run returned.
type StopReason int

const (
	// StopEndOfStream indicates the source signalled completion.
	StopEndOfStream StopReason = iota

	// StopTimedOut indicates no step arrived within the wait timeout.
	StopTimedOut

	// StopAborted indicates a peer aborted the process group.
	StopAborted

	// StopFailed indicates a fatal error on this rank.
	StopFailed
)

// String returns the string representation of the reason.
func (r StopReason) String() string {
	switch r {
	case StopEndOfStream:
		return "EndOfStream"
	case StopTimedOut:
		return "TimedOut"
	case StopAborted:
		return "Aborted"
	case StopFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// RunSummary describes a finished run.
type RunSummary struct {
	// Steps is the number of steps fully processed.
	Steps int

	// LastStep is the number of the last processed step. Only meaningful when Steps > 0.
	LastStep uint64

	// Reason tells why the run stopped.
	Reason StopReason

	err error
}

// Err maps the stop reason to an error.
//
// EndOfStream yields nil, TimedOut yields ErrTransportTimeout; Aborted and
// Failed yield the error Run returned.
//
// Example:
//
//	summary, _ := runner.Run(ctx)
//	if errors.Is(summary.Err(), insitu.ErrTransportTimeout) {
//	    log.Println("producer went quiet")
//	}
func (s RunSummary) Err() error {
	switch s.Reason {
	case StopEndOfStream:
		return nil
	case StopTimedOut:
		return ErrTransportTimeout
	default:
		return s.err
	}
}
