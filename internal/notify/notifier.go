package notify

import (
	"encoding/json"
	"log"
	"time"

	"pgbackup/internal/models"
	"pgbackup/internal/state"
)

// Broker is the messaging side of completion notifications.
type Broker interface {
	Publish(message []byte) error
	Close() error
}

// Event is the JSON payload published after each backup run.
type Event struct {
	JobID    int64           `json:"job_id"`
	ServerID int64           `json:"server_id"`
	Name     string          `json:"name"`
	Status   state.JobStatus `json:"status"`
	Error    string          `json:"error,omitempty"`
	RanAt    time.Time       `json:"ran_at"`
	NextRun  *time.Time      `json:"next_run,omitempty"`
}

// Notifier publishes backup completion events. A nil Notifier is a no-op so
// the scheduler can treat notifications as optional.
type Notifier struct {
	broker Broker
}

func NewNotifier(broker Broker) *Notifier {
	return &Notifier{broker: broker}
}

func (n *Notifier) JobCompleted(job models.BackupJob, res models.JobResult) {
	if n == nil || n.broker == nil {
		return
	}

	event := Event{
		JobID:    job.ID,
		ServerID: job.ServerID,
		Name:     job.Name,
		Status:   res.Status,
		RanAt:    res.RanAt,
		NextRun:  res.NextRun,
	}
	if res.Err != nil {
		event.Error = res.Err.Error()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: failed to marshal event for job %d: %v", job.ID, err)
		return
	}
	if err := n.broker.Publish(payload); err != nil {
		log.Printf("notify: failed to publish event for job %d: %v", job.ID, err)
	}
}
