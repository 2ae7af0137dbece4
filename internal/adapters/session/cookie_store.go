package session

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	// CookieName holds the anonymous viewer's excluded announcement ids.
	CookieName = "excluded_announcements"

	// maxExcluded keeps the encoded cookie under securecookie's 4096-byte limit.
	maxExcluded  = 50
	cookieMaxAge = 365 * 24 * time.Hour
)

// CookieStore keeps an anonymous viewer's dismissed announcement ids in a signed,
// encrypted cookie.
type CookieStore struct {
	codec  *securecookie.SecureCookie
	secure bool
	logger *slog.Logger
}

// NewCookieStore returns a CookieStore. hashKey signs the cookie (32 or 64 bytes recommended);
// blockKey, when non-empty, encrypts it and must be 16, 24 or 32 bytes.
func NewCookieStore(hashKey, blockKey []byte, secure bool, logger *slog.Logger) *CookieStore {
	if len(blockKey) == 0 {
		blockKey = nil
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(cookieMaxAge.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &CookieStore{codec: codec, secure: secure, logger: logger}
}

// Load returns the ids stored in the request cookie. A missing or tampered cookie yields an
// empty set; ids that are not UUIDs are dropped.
func (s *CookieStore) Load(r *http.Request) []string {
	ids := make([]string, 0)
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ids
	}
	var stored []string
	if err := s.codec.Decode(CookieName, c.Value, &stored); err != nil {
		s.logger.DebugContext(r.Context(), "ignoring unreadable exclusion cookie", "err", err)
		return ids
	}
	for _, id := range stored {
		if _, err := uuid.Parse(id); err == nil && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Save writes ids to the response cookie, keeping the most recent maxExcluded entries.
// Oldest ids are dropped further if the encoded value would still be too long.
func (s *CookieStore) Save(w http.ResponseWriter, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	if len(ids) > maxExcluded {
		ids = ids[len(ids)-maxExcluded:]
	}
	encoded, err := s.codec.Encode(CookieName, ids)
	for err != nil && len(ids) > 0 {
		ids = ids[1:]
		encoded, err = s.codec.Encode(CookieName, ids)
	}
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
