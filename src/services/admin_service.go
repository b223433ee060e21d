package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kuroukai/Kuroukai-free-api/src/logging"
	"github.com/Kuroukai/Kuroukai-free-api/src/models"
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// credential is one configured admin password, either a bcrypt hash or
// the SHA-256 digest of a plain entry
type credential struct {
	bcryptHash []byte
	digest     [sha256.Size]byte
}

func newCredential(entry string) credential {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(entry, p) {
			return credential{bcryptHash: []byte(entry)}
		}
	}
	return credential{digest: sha256.Sum256([]byte(entry))}
}

func (c credential) matches(password string, digest [sha256.Size]byte) bool {
	if c.bcryptHash != nil {
		return bcrypt.CompareHashAndPassword(c.bcryptHash, []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare(c.digest[:], digest[:]) == 1
}

// AdminAuthGate checks admin passwords and resolves admin sessions
type AdminAuthGate struct {
	credentials []credential
	sessions    *SessionManager
	logger      zerolog.Logger
}

// NewAdminAuthGate creates a gate over the configured password entries.
// Entries starting with $2a$, $2b$ or $2y$ are treated as bcrypt hashes.
func NewAdminAuthGate(passwords []string, sessions *SessionManager) *AdminAuthGate {
	g := &AdminAuthGate{
		sessions: sessions,
		logger:   logging.NewLogger("admin_auth"),
	}
	for _, p := range passwords {
		if p != "" {
			g.credentials = append(g.credentials, newCredential(p))
		}
	}
	if len(g.credentials) == 0 {
		g.logger.Warn().Msg("no admin passwords configured, admin login is disabled")
	}
	return g
}

// Sessions returns the underlying session store
func (g *AdminAuthGate) Sessions() *SessionManager {
	return g.sessions
}

// Authenticate checks password against every configured entry and opens a
// session on success
func (g *AdminAuthGate) Authenticate(password, ip, userAgent string) (models.AdminSession, error) {
	if password == "" {
		return models.AdminSession{}, ErrPasswordRequired
	}

	digest := sha256.Sum256([]byte(password))
	matched := false
	for _, c := range g.credentials {
		if c.matches(password, digest) {
			matched = true
		}
	}

	if !matched {
		g.logger.Warn().Str("ip", ip).Msg("failed admin login attempt")
		return models.AdminSession{}, ErrInvalidCredentials
	}

	session, err := g.sessions.Create(ip, userAgent)
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to create admin session")
		return models.AdminSession{}, err
	}

	g.logger.Info().Str("ip", ip).Msg("admin login successful")
	return session, nil
}

// RequireSession resolves token to a live session or returns ErrUnauthenticated
func (g *AdminAuthGate) RequireSession(token string) (models.AdminSession, error) {
	return g.sessions.Lookup(token)
}

// Logout revokes the session for token, if any
func (g *AdminAuthGate) Logout(token string) {
	if token != "" {
		g.sessions.Revoke(token)
	}
}
