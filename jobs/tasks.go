package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBillingSyncAll runs the create-or-update cycle rule for every customer.
	TaskBillingSyncAll = "billing:sync_all"
	// TaskBillsMarkOverdue flags open bills past their due date.
	TaskBillsMarkOverdue = "bills:mark_overdue"
)

// BillingSyncPayload records who asked for a bulk synchronisation.
type BillingSyncPayload struct {
	RequestedBy int64  `json:"requested_by,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	Source      string `json:"source"`
}

// MarkOverduePayload optionally pins the cut-off; zero means now.
type MarkOverduePayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// NewBillingSyncTask constructs an Asynq task for a bulk synchronisation.
func NewBillingSyncTask(payload BillingSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillingSyncAll, data, asynq.MaxRetry(3), asynq.Timeout(30*time.Minute)), nil
}

// NewMarkOverdueTask constructs the overdue sweep task.
func NewMarkOverdueTask(payload MarkOverduePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillsMarkOverdue, data, asynq.MaxRetry(3)), nil
}
