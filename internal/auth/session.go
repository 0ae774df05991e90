package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "vault_session"

type Role string

const (
	RoleUser  Role = "user"
	RoleStall Role = "stall_owner"
	RoleAdmin Role = "admin"
)

var ErrInvalidSession = errors.New("invalid session")

// Session is the JWT claim set carried in the session cookie. Fields
// are populated per role: users get username+uid, stall owners get
// stall_id+stall_name, admins just username.
type Session struct {
	Role      Role   `json:"role"`
	Username  string `json:"username,omitempty"`
	UID       string `json:"uid,omitempty"`
	StallID   string `json:"stall_id,omitempty"`
	StallName string `json:"stall_name,omitempty"`
	jwt.RegisteredClaims
}

type Sessions struct {
	secret []byte
	ttl    time.Duration
}

func NewSessions(secret string) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: 12 * time.Hour}
}

func (s *Sessions) Issue(sess Session) (string, error) {
	now := time.Now()
	sess.IssuedAt = jwt.NewNumericDate(now)
	sess.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &sess).SignedString(s.secret)
}

func (s *Sessions) Verify(token string) (*Session, error) {
	var sess Session
	t, err := jwt.ParseWithClaims(token, &sess, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.secret, nil
	})
	if err != nil || !t.Valid {
		return nil, ErrInvalidSession
	}
	return &sess, nil
}

// Cookie wraps a signed token in the HttpOnly session cookie.
func (s *Sessions) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie immediately.
func ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
