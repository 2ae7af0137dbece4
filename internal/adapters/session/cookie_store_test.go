package session

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *CookieStore {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), []byte("abcdef0123456789"), false, logger)
}

func roundTrip(t *testing.T, store *CookieStore, ids []string) *http.Request {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, store.Save(rr, ids))
	req := httptest.NewRequest(http.MethodGet, "/announcements/current", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestCookieStore_RoundTrip(t *testing.T) {
	store := newTestStore()
	a, b := uuid.NewString(), uuid.NewString()

	got := store.Load(roundTrip(t, store, []string{a, b, a}))
	assert.Equal(t, []string{a, b}, got)
}

func TestCookieStore_LoadWithoutCookie(t *testing.T) {
	got := newTestStore().Load(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCookieStore_TamperedCookieIgnored(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	assert.Empty(t, newTestStore().Load(req))
}

func TestCookieStore_OtherKeyRejected(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	other := NewCookieStore([]byte("ffffffffffffffffffffffffffffffff"), nil, false, logger)
	req := roundTrip(t, other, []string{uuid.NewString()})
	assert.Empty(t, newTestStore().Load(req))
}

func TestCookieStore_DropsNonUUIDs(t *testing.T) {
	store := newTestStore()
	id := uuid.NewString()
	assert.Equal(t, []string{id}, store.Load(roundTrip(t, store, []string{"not-an-id", id})))
}

func TestCookieStore_KeepsMostRecent(t *testing.T) {
	store := newTestStore()
	ids := make([]string, 0, maxExcluded+5)
	for range maxExcluded + 5 {
		ids = append(ids, uuid.NewString())
	}
	got := store.Load(roundTrip(t, store, ids))
	require.Len(t, got, maxExcluded)
	assert.Equal(t, ids[5], got[0])
	assert.Equal(t, ids[len(ids)-1], got[len(got)-1])
}

func TestCookieStore_CookieAttributes(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, newTestStore().Save(rr, nil))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "/", cookies[0].Path)
}

func TestCookieStore_SaveAtCapFitsCookieLimit(t *testing.T) {
	store := newTestStore()
	for n := 1; n <= maxExcluded+10; n++ {
		ids := make([]string, 0, n)
		for range n {
			ids = append(ids, uuid.NewString())
		}
		rr := httptest.NewRecorder()
		require.NoError(t, store.Save(rr, ids), "saving %d ids", n)
	}
}

func TestCookieStore_DropsOldestWhenEncodingTooLong(t *testing.T) {
	store := newTestStore()
	store.codec.MaxLength(2000)
	ids := make([]string, 0, maxExcluded)
	for range maxExcluded {
		ids = append(ids, uuid.NewString())
	}

	got := store.Load(roundTrip(t, store, ids))
	require.NotEmpty(t, got)
	assert.Less(t, len(got), maxExcluded)
	assert.Equal(t, ids[len(ids)-1], got[len(got)-1])
	assert.Equal(t, ids[len(ids)-len(got):], got)
}
