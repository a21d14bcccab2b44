// Package announcements manages notices published to staff and the customer app.
package announcements

import "time"

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Announcement struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateAnnouncementRequest struct {
	Title  string `json:"title" validate:"required,max=200"`
	Body   string `json:"body" validate:"required,max=10000"`
	Status string `json:"status" validate:"omitempty,oneof=draft published"`
}

type UpdateAnnouncementRequest struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Body   *string `json:"body,omitempty" validate:"omitempty,min=1,max=10000"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
}
