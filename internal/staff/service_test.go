package staff

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/platform/storage"
	"github.com/hydrobill/hydrobill/internal/platform/upload"
	"github.com/hydrobill/hydrobill/internal/shared"
)

type mockRepository struct {
	staff  map[int64]*Staff
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{staff: make(map[int64]*Staff), nextID: 1}
}

func (m *mockRepository) List(ctx context.Context, req ListStaffRequest) ([]Staff, error) {
	var out []Staff
	for _, s := range m.staff {
		if req.Role != "" && string(s.Role) != req.Role {
			continue
		}
		if req.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(req.Search)) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Staff, error) {
	s, ok := m.staff[id]
	if !ok {
		return nil, fmt.Errorf("staff %d: %w", id, httpx.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*Staff, error) {
	for _, s := range m.staff {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *mockRepository) Create(ctx context.Context, s Staff) (int64, error) {
	for _, existing := range m.staff {
		if existing.Email == s.Email {
			return 0, httpx.ErrConflict
		}
	}
	s.ID = m.nextID
	s.CreatedAt = time.Now()
	m.nextID++
	m.staff[s.ID] = &s
	return s.ID, nil
}

func (m *mockRepository) Update(ctx context.Context, s Staff) error {
	if _, ok := m.staff[s.ID]; !ok {
		return httpx.ErrNotFound
	}
	m.staff[s.ID] = &s
	return nil
}

func (m *mockRepository) SetProfilePicture(ctx context.Context, id int64, key string) (string, error) {
	s, ok := m.staff[id]
	if !ok {
		return "", httpx.ErrNotFound
	}
	prev := s.ProfilePicture
	s.ProfilePicture = key
	return prev, nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.staff[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.staff, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepository, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocal(dir)
	require.NoError(t, err)
	repo := newMockRepository()
	return NewService(repo, store, nil), repo, dir
}

func pngImage(t *testing.T, w, h int) upload.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	out, err := upload.ReadImage(&buf, "profile_picture")
	require.NoError(t, err)
	return out
}

func TestCreateNormalisesRoleAndHashesPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	st, err := svc.Create(context.Background(), CreateStaffRequest{
		Name: "Ana Reyes", Email: " Ana@Utility.test ", Password: "s3cretpass", Role: "Bill Handler",
	})
	require.NoError(t, err)
	assert.Equal(t, shared.RoleBillHandler, st.Role)
	assert.Equal(t, "ana@utility.test", st.Email)
	assert.True(t, st.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte("s3cretpass")))
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreateStaffRequest{
		Name: "X", Email: "x@utility.test", Password: "s3cretpass", Role: "cashier",
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateValidatesFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreateStaffRequest{Email: "bad", Password: "short", Role: "admin"})
	require.ErrorIs(t, err, httpx.ErrValidation)
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
}

func TestUpdateKeepsPasswordWhenOmitted(t *testing.T) {
	svc, repo, _ := newTestService(t)
	st, err := svc.Create(context.Background(), CreateStaffRequest{Name: "A", Email: "a@u.test", Password: "password1", Role: "admin"})
	require.NoError(t, err)
	hash := repo.staff[st.ID].PasswordHash

	role := "meter-handler"
	updated, err := svc.Update(context.Background(), st.ID, UpdateStaffRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, shared.RoleMeterHandler, updated.Role)
	assert.Equal(t, hash, updated.PasswordHash)
}

func TestInactiveStaffHasNoPrincipal(t *testing.T) {
	svc, _, _ := newTestService(t)
	inactive := false
	st, err := svc.Create(context.Background(), CreateStaffRequest{Name: "A", Email: "a@u.test", Password: "password1", Role: "admin", IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.PrincipalByID(context.Background(), st.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteSelfIsRefused(t *testing.T) {
	svc, _, _ := newTestService(t)
	st, err := svc.Create(context.Background(), CreateStaffRequest{Name: "A", Email: "a@u.test", Password: "password1", Role: "admin"})
	require.NoError(t, err)
	ctx := shared.ContextWithPrincipal(context.Background(), st.Principal())
	require.ErrorIs(t, svc.Delete(ctx, st.ID), httpx.ErrConflict)
}

func TestProfilePictureReplacesPreviousFile(t *testing.T) {
	svc, _, dir := newTestService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx, CreateStaffRequest{Name: "A", Email: "a@u.test", Password: "password1", Role: "admin"})
	require.NoError(t, err)

	first, err := svc.SetProfilePicture(ctx, st.ID, pngImage(t, 800, 400))
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, first.ProfilePicture))
	assert.True(t, strings.HasSuffix(first.ProfilePicture, ".jpg"))

	second, err := svc.SetProfilePicture(ctx, st.ID, pngImage(t, 100, 100))
	require.NoError(t, err)
	require.NotEqual(t, first.ProfilePicture, second.ProfilePicture)
	_, statErr := os.Stat(filepath.Join(dir, first.ProfilePicture))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProfilePictureUnknownStaff(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.SetProfilePicture(context.Background(), 42, pngImage(t, 10, 10))
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
