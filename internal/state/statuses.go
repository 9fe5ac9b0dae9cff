package state

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

func (s JobStatus) String() string {
	return string(s)
}

var AllStatuses = []JobStatus{
	StatusPending,
	StatusRunning,
	StatusSucceeded,
	StatusFailed,
}

type Transition struct {
	From JobStatus
	To   JobStatus
}

// ValidTransitions encodes the backup job lifecycle. A recurring job that
// finished a run goes back through Running on its next dispatch.
var ValidTransitions = []Transition{
	{From: StatusPending, To: StatusRunning},
	{From: StatusRunning, To: StatusSucceeded},
	{From: StatusRunning, To: StatusFailed},
	{From: StatusSucceeded, To: StatusRunning},
	{From: StatusFailed, To: StatusRunning},
}

func IsValidTransition(from, to JobStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// IsTerminalRun reports whether the status records a finished execution.
func IsTerminalRun(s JobStatus) bool {
	return s == StatusSucceeded || s == StatusFailed
}
