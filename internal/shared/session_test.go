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

func testManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", "super-secret", time.Hour, false)
}

func commitToCookie(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	sm := testManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("member-1")
	cookie := commitToCookie(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "member-1", loaded.User())
	require.Equal(t, sess.ID, loaded.ID)
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	sm := testManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("member-1")
	cookie := commitToCookie(t, sm, sess)

	// Swap the signed ID for an attacker-chosen one while keeping the old
	// signature.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: "forged-id." + sm.sign(sess.ID)})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Empty(t, loaded.User())
	require.NotEqual(t, "forged-id", loaded.ID)
}

func TestSessionRejectsUnsignedCookie(t *testing.T) {
	sm := testManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "bare-id-without-signature"})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Empty(t, loaded.User())
	require.NotEqual(t, "bare-id-without-signature", loaded.ID)
}

func TestSessionDestroyClearsCookieAndStore(t *testing.T) {
	sm := testManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("member-1")
	cookie := commitToCookie(t, sm, sess)

	sm.Destroy(sess)
	cleared := commitToCookie(t, sm, sess)
	require.Equal(t, -1, cleared.MaxAge)
	require.Empty(t, cleared.Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Empty(t, loaded.User())
}
