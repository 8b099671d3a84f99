package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"patentflow/caseflow/schema"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

// SessionTTL bounds both the token expiry and the session cookie lifetime.
const SessionTTL = time.Hour

const SessionCookieName = "session"

type JwtManager struct {
	auth *jwtauth.JWTAuth
}

func NewJwtManager(secret []byte) *JwtManager {
	return &JwtManager{auth: jwtauth.New("HS256", secret, nil)}
}

func tokenFromSessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Verifier accepts the session token from the Authorization header or the
// session cookie. Invalid, expired, and absent tokens are indistinguishable
// downstream: the request context simply carries no verified token.
func (m *JwtManager) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(m.auth, jwtauth.TokenFromHeader, tokenFromSessionCookie)
}

func (m *JwtManager) Authenticator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Authenticator(m.auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
		}))
	}
}

const userIdKey = "user_id"

func (m *JwtManager) createToken(key, value string, exp time.Duration) (string, error) {
	claims := map[string]interface{}{
		key:   value,
		"iat": time.Now(),
		"exp": time.Now().Add(exp),
	}
	_, token, err := m.auth.Encode(claims)
	if err != nil {
		slog.Error("error generating jwt", "error", err)
		return "", fmt.Errorf("error generating session token: %w", err)
	}
	return token, nil
}

func (m *JwtManager) CreateSessionJwt(userId uuid.UUID) (string, error) {
	return m.createToken(userIdKey, userId.String(), SessionTTL)
}

// CreateSessionJwtWithExpiry exists for callers that need a non-standard
// lifetime, e.g. tests exercising expiry handling.
func (m *JwtManager) CreateSessionJwtWithExpiry(userId uuid.UUID, exp time.Duration) (string, error) {
	return m.createToken(userIdKey, userId.String(), exp)
}

// SessionCookie builds the httpOnly cookie set on login. Its expiry matches
// the token expiry.
func SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(SessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie replaces the session cookie on logout. The server keeps
// no session state, so an already-expired cookie is the whole logout.
func ExpiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func ValueFromContext(r *http.Request, key string) (string, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", fmt.Errorf("error retrieving auth claims: %w", err)
	}

	valueUncasted, ok := claims[key]
	if !ok {
		return "", fmt.Errorf("invalid token: unable to locate key %v in claims", key)
	}

	value, ok := valueUncasted.(string)
	if !ok {
		return "", fmt.Errorf("invalid token: value for key %v has invalid type", key)
	}

	return value, nil
}

func UserFromContext(r *http.Request) (schema.User, error) {
	userUntyped := r.Context().Value(userRequestContextKey)
	if userUntyped == nil {
		return schema.User{}, fmt.Errorf("user field not found in request context")
	}
	user, ok := userUntyped.(schema.User)
	if !ok {
		return schema.User{}, fmt.Errorf("invalid value for user field")
	}
	return user, nil
}
