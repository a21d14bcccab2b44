package announcements

import (
	"context"
	"strings"
	"time"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns every announcement, or only those with status when it is set.
func (s *Service) List(ctx context.Context, status string) ([]Announcement, error) {
	if status != "" && status != StatusDraft && status != StatusPublished {
		return nil, httpx.Invalid("status", "must be one of: draft published")
	}
	return s.repo.List(ctx, status)
}

// ListPublished is what the customer app sees.
func (s *Service) ListPublished(ctx context.Context) ([]Announcement, error) {
	return s.repo.List(ctx, StatusPublished)
}

func (s *Service) Get(ctx context.Context, id int64) (*Announcement, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateAnnouncementRequest, authorID int64) (*Announcement, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	a := Announcement{
		Title:     strings.TrimSpace(req.Title),
		Body:      strings.TrimSpace(req.Body),
		Status:    StatusDraft,
		CreatedBy: authorID,
	}
	s.setStatus(&a, req.Status)
	id, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateAnnouncementRequest) (*Announcement, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		a.Body = strings.TrimSpace(*req.Body)
	}
	if req.Status != nil {
		s.setStatus(a, *req.Status)
	}
	if err := s.repo.Update(ctx, *a); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// setStatus keeps the first publication time when an announcement is republished.
func (s *Service) setStatus(a *Announcement, status string) {
	switch status {
	case StatusPublished:
		a.Status = StatusPublished
		if a.PublishedAt == nil {
			now := s.now().UTC()
			a.PublishedAt = &now
		}
	case StatusDraft:
		a.Status = StatusDraft
	}
}
