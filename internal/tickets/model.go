// Package tickets tracks support tickets and the append-only history of their
// status remarks.
package tickets

import "time"

const (
	StatusOpen     = "open"
	StatusPending  = "pending"
	StatusResolved = "resolved"
	StatusClosed   = "closed"
)

type Ticket struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Remarks     string    `json:"remarks"`
	CreatedBy   int64     `json:"created_by"`
	CreatorName string    `json:"creator_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Remark is one entry of a ticket's history. Seq starts at 1 per ticket.
type Remark struct {
	TicketID  int64     `json:"ticket_id"`
	Seq       int       `json:"seq"`
	Remarks   string    `json:"remarks"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}
