package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/D34dlyK1ss/whoisit/internal/ident"
)

// ErrCodeExpired is returned when redeeming a one-time code that was never
// issued, already redeemed, or timed out. All three cases look the same to
// the caller on purpose.
var ErrCodeExpired = errors.New("code expired or unknown")

// CodePurpose distinguishes email verification codes from password recovery
// codes; a code issued for one purpose cannot be redeemed for the other.
type CodePurpose string

const (
	PurposeVerify  CodePurpose = "verify"
	PurposeRecover CodePurpose = "recover"
)

// DefaultCodeTTL is how long a one-time code stays redeemable.
const DefaultCodeTTL = 30 * time.Minute

type codeEntry struct {
	subject string
	purpose CodePurpose
	timer   *time.Timer
}

// CodeStore issues and redeems time-boxed one-time codes. Expiry runs on
// per-code timers that only ever delete their own entry, so a timer firing
// after a legitimate redemption is a harmless no-op.
type CodeStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	codes map[string]*codeEntry
}

// NewCodeStore returns a store whose codes expire after ttl. A zero ttl
// falls back to DefaultCodeTTL.
func NewCodeStore(ttl time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &CodeStore{
		ttl:   ttl,
		codes: make(map[string]*codeEntry),
	}
}

// Issue mints a fresh code bound to subject (a username or email) for the
// given purpose and schedules its expiry.
func (s *CodeStore) Issue(subject string, purpose CodePurpose) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for {
		code = ident.NewSecure(24)
		if _, taken := s.codes[code]; !taken {
			break
		}
	}

	entry := &codeEntry{subject: subject, purpose: purpose}
	entry.timer = time.AfterFunc(s.ttl, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.codes, code)
	})
	s.codes[code] = entry
	return code
}

// Peek reports the subject a live code is bound to without consuming it.
// Used by the check-code flows, which validate before the client commits.
func (s *CodeStore) Peek(code string, purpose CodePurpose) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[code]
	if !ok || entry.purpose != purpose {
		return "", ErrCodeExpired
	}
	return entry.subject, nil
}

// Redeem consumes a live code, returning the subject it was bound to.
func (s *CodeStore) Redeem(code string, purpose CodePurpose) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[code]
	if !ok || entry.purpose != purpose {
		return "", ErrCodeExpired
	}
	entry.timer.Stop()
	delete(s.codes, code)
	return entry.subject, nil
}
