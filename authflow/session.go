package authflow

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/healthsync/healthsync/domain"
)

// Slot keys, one file per key under the store directory. They mirror the
// browser-storage keys of the original portal.
var slotKeys = []string{"user", "admin", "receptionist"}

const tokenKey = "token"

// Session is the client's record of who is currently authenticated.
// LocationCaptured gates promotion into the application shell; only
// LocationOnboarding flips it to true.
type Session struct {
	Identity         domain.Identity
	Role             string
	Token            string
	LocationCaptured bool
}

// SessionStore is the single writer of the durable identity slots. The
// rest of the application reads the session through Current and Token and
// never mutates it.
type SessionStore struct {
	mu      sync.Mutex
	dir     string
	current *Session
}

// NewSessionStore creates a store rooted at dir, creating it if needed.
func NewSessionStore(dir string) (*SessionStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &SessionStore{dir: dir}, nil
}

// Load reads the persisted identity slots. Each slot must decode to an
// object carrying at least name and email; a slot failing the check is
// deleted rather than trusted. When more than one slot survives, the first
// in user, admin, receptionist order wins (last-write-wins storage, the
// running application holds at most one identity).
func (s *SessionStore) Load() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess *Session
	for _, key := range slotKeys {
		ident, ok := s.readSlot(key)
		if !ok {
			continue
		}
		if sess == nil {
			sess = &Session{Identity: ident, Role: roleForSlot(key)}
		}
	}
	if sess == nil {
		s.current = nil
		return nil
	}
	if data, err := os.ReadFile(s.path(tokenKey)); err == nil {
		sess.Token = string(data)
	}
	s.current = sess
	return s.snapshot()
}

// readSlot decodes one slot, deleting it when malformed.
func (s *SessionStore) readSlot(key string) (domain.Identity, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return domain.Identity{}, false
	}
	var ident domain.Identity
	if err := json.Unmarshal(data, &ident); err != nil || !ident.Valid() {
		log.Printf("session: discarding malformed %q slot", key)
		os.Remove(s.path(key))
		return domain.Identity{}, false
	}
	return ident, true
}

// Save persists an authenticated identity into its role slot together with
// the bearer token and makes it the current session.
func (s *SessionStore) Save(ident domain.Identity, role, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(ident)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(slotForRole(role)), data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := os.WriteFile(s.path(tokenKey), []byte(token), 0o600); err != nil {
			return err
		}
	}
	s.current = &Session{Identity: ident, Role: role, Token: token}
	return nil
}

// Clear deletes all three identity slots and the token. Used for logout
// and for rolling back a partially-established session.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range slotKeys {
		os.Remove(s.path(key))
	}
	os.Remove(s.path(tokenKey))
	s.current = nil
}

// Current returns a copy of the in-memory session, or nil when logged out.
func (s *SessionStore) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Token returns the bearer token for outgoing requests, "" when logged out.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// MarkLocationCaptured flips the location flag on the current session.
// LocationOnboarding is the only caller.
func (s *SessionStore) MarkLocationCaptured() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.LocationCaptured = true
	}
}

func (s *SessionStore) snapshot() *Session {
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

func (s *SessionStore) path(key string) string {
	return filepath.Join(s.dir, key)
}

func slotForRole(role string) string {
	switch role {
	case domain.RoleAdmin:
		return "admin"
	case domain.RoleReceptionist:
		return "receptionist"
	default:
		return "user"
	}
}

func roleForSlot(key string) string {
	switch key {
	case "admin":
		return domain.RoleAdmin
	case "receptionist":
		return domain.RoleReceptionist
	default:
		return domain.RolePatient
	}
}
