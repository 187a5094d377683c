package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/hotel-booking/internal/config"
	"github.com/spec-kit/hotel-booking/internal/domain"
	"github.com/spec-kit/hotel-booking/internal/repository/repofake"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCodec(clock *testClock) *SessionCodec {
	return NewSessionCodec("test-secret", "hotel-booking-test", 24*time.Hour, WithClock(clock.Now))
}

func guestClaims() domain.IdentityClaims {
	return domain.IdentityClaims{
		ID:       "user-1",
		Name:     "Abul",
		Email:    "abul@gmail.com",
		Location: "Dhaka",
		Role:     domain.RoleUser,
	}
}

func seedUser(t *testing.T, repo *repofake.FakeUserRepo, email, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := NewBcryptHasher(bcrypt.MinCost).Hash(password)
	require.NoError(t, err)
	user := &domain.User{
		Name:         "Abul",
		Email:        email,
		PasswordHash: hash,
		Location:     "Dhaka",
		Role:         role,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

// tokenEndpoint stubs a provider token endpoint and counts refresh grants.
type tokenEndpoint struct {
	server *httptest.Server
	calls  atomic.Int32
}

func newTokenEndpoint(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *tokenEndpoint {
	t.Helper()
	te := &tokenEndpoint{}
	te.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		te.calls.Add(1)
		respond(w, r)
	}))
	t.Cleanup(te.server.Close)
	return te
}

func (te *tokenEndpoint) oauthConfig() config.OAuthConfig {
	return config.OAuthConfig{
		ClientID:                "client-id",
		ClientSecret:            "client-secret",
		AuthURL:                 te.server.URL + "/authorize",
		TokenURL:                te.server.URL + "/token",
		RefreshTimeoutSeconds:   5,
		DefaultAccessTTLSeconds: 3600,
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
