package lifecycle

import "time"

// Result is how driving a resource ended.
type Result int

const (
	Success Result = iota
	Failed
	TimedOut
	Inconsistent
)

func (r Result) String() string {
	switch r {
	case Success:
		return "Success"
	case Failed:
		return "Failed"
	case TimedOut:
		return "TimedOut"
	case Inconsistent:
		return "Inconsistent"
	default:
		return "Unknown"
	}
}

// Outcome is the terminal result of DriveToTerminal.
type Outcome struct {
	Result  Result
	Status  string
	Elapsed time.Duration
	Polls   int
}
