package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestParseRoleNormalises(t *testing.T) {
	cases := map[string]Role{
		"admin":         RoleAdmin,
		"Bill Handler":  RoleBillHandler,
		"bill-handler":  RoleBillHandler,
		"bill_handler":  RoleBillHandler,
		" METER handler": RoleMeterHandler,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	_, err := ParseRole("superuser")
	require.Error(t, err)
}

func TestPrincipalHasRole(t *testing.T) {
	p := Principal{ID: 1, Role: RoleBillHandler}
	require.True(t, p.HasRole(RoleAdmin, RoleBillHandler))
	require.False(t, p.HasRole(RoleMeterHandler))
}

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "hb_session", time.Hour, false), mr
}

func TestSessionRoundTripAndRotation(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("k", "v")
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	firstID := sess.ID
	require.True(t, mr.Exists("hydrobill:session:"+firstID))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: firstID})
	loaded, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	require.Equal(t, "v", loaded.Get("k"))

	loaded.SetUser("42")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))
	require.NotEqual(t, firstID, loaded.ID)
	require.False(t, mr.Exists("hydrobill:session:"+firstID))
	require.True(t, mr.Exists("hydrobill:session:"+loaded.ID))
}

func TestSessionUnknownCookieIsNotReused(t *testing.T) {
	sm, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "attacker-chosen"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.NotEqual(t, "attacker-chosen", sess.ID)
}

func TestSessionDestroyClearsCookie(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	require.False(t, mr.Exists("hydrobill:session:"+sess.ID))
	require.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestCSRFTokenLifecycle(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := newSession()
	token, err := m.EnsureToken(sess)
	require.NoError(t, err)
	again, err := m.EnsureToken(sess)
	require.NoError(t, err)
	require.Equal(t, token, again)
	require.NoError(t, m.VerifyToken(sess, token))
	require.ErrorIs(t, m.VerifyToken(sess, "nope"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(sess, ""), ErrCSRFTokenMissing)
}

func TestFlashPopsInOrder(t *testing.T) {
	sess := newSession()
	sess.AddFlash(FlashMessage{Kind: "success", Message: "one"})
	sess.AddFlash(FlashMessage{Kind: "error", Message: "two"})
	require.Equal(t, "one", sess.PopFlash().Message)
	require.Equal(t, "two", sess.PopFlash().Message)
	require.Nil(t, sess.PopFlash())
}
