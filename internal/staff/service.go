package staff

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/platform/storage"
	"github.com/hydrobill/hydrobill/internal/platform/upload"
	"github.com/hydrobill/hydrobill/internal/shared"
)

// AvatarWidth is the width profile pictures are scaled down to.
const AvatarWidth = 256

type Service struct {
	repo   Repository
	store  storage.Store
	logger *slog.Logger
}

func NewService(repo Repository, store storage.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, logger: logger}
}

func (s *Service) List(ctx context.Context, req ListStaffRequest) ([]Staff, error) {
	if req.Role != "" {
		role, err := shared.ParseRole(req.Role)
		if err != nil {
			return nil, httpx.Invalid("role", "is not a valid role")
		}
		req.Role = string(role)
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Get(ctx context.Context, id int64) (*Staff, error) {
	return s.repo.Get(ctx, id)
}

// PrincipalByID returns the identity of an active staff member.
func (s *Service) PrincipalByID(ctx context.Context, id int64) (shared.Principal, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return shared.Principal{}, err
	}
	if !st.IsActive {
		return shared.Principal{}, fmt.Errorf("staff %d inactive: %w", id, httpx.ErrNotFound)
	}
	return st.Principal(), nil
}

func (s *Service) Create(ctx context.Context, req CreateStaffRequest) (*Staff, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	role, err := shared.ParseRole(req.Role)
	if err != nil {
		return nil, httpx.Invalid("role", "must be one of: admin bill_handler meter_handler")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	st := Staff{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         role,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	id, err := s.repo.Create(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateStaffRequest) (*Staff, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		st.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		st.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		role, err := shared.ParseRole(*req.Role)
		if err != nil {
			return nil, httpx.Invalid("role", "must be one of: admin bill_handler meter_handler")
		}
		st.Role = role
	}
	if req.IsActive != nil {
		st.IsActive = *req.IsActive
	}
	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		st.PasswordHash = hash
	}
	if err := s.repo.Update(ctx, *st); err != nil {
		return nil, fmt.Errorf("update staff: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a staff account. Staff cannot delete themselves.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if p, ok := shared.PrincipalFromContext(ctx); ok && p.ID == id {
		return fmt.Errorf("cannot delete your own account: %w", httpx.ErrConflict)
	}
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeObject(ctx, st.ProfilePicture)
	return nil
}

// SetProfilePicture stores a thumbnail of img and replaces the previous picture.
func (s *Service) SetProfilePicture(ctx context.Context, id int64, img upload.Image) (*Staff, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	thumb, err := upload.Thumbnail(img, AvatarWidth)
	if err != nil {
		return nil, httpx.Invalid("profile_picture", "could not be decoded")
	}
	key := storage.NewKey(fmt.Sprintf("staff/%d", id), thumb.Ext)
	if err := s.store.Put(ctx, key, thumb.ContentType, thumb.Data); err != nil {
		return nil, fmt.Errorf("store profile picture: %w", err)
	}
	previous, err := s.repo.SetProfilePicture(ctx, id, key)
	if err != nil {
		s.removeObject(ctx, key)
		return nil, err
	}
	s.removeObject(ctx, previous)
	return s.repo.Get(ctx, id)
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("delete stored object", slog.String("key", key), slog.Any("error", err))
	}
}

// HashPassword hashes a plain password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
