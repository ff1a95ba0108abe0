// Package auth signs the session cookie and checks passwords.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storyia/internal/config"
)

// CookieName is the name of the signed session cookie.
const CookieName = "auth_token"

const cookieTTL = 7 * 24 * time.Hour

var (
	ErrInvalidCookie = errors.New("invalid cookie")
	ErrExpiredCookie = errors.New("cookie expired")
)

// Context key for user ID
type contextKey string

const UserIDKey contextKey = "userID"

// Signer issues and verifies HMAC-signed cookies carrying a user ID.
type Signer struct {
	secret []byte
	secure bool
	now    func() time.Time
}

func NewSigner(cfg config.CookieConfig) *Signer {
	return &Signer{
		secret: []byte(cfg.Secret),
		secure: cfg.Secure,
		now:    time.Now,
	}
}

// Sign returns a cookie value of the form base64(userID.expiration.signature).
func (s *Signer) Sign(userID int64) string {
	expiration := s.now().Add(cookieTTL).Unix()
	data := fmt.Sprintf("%d.%d", userID, expiration)
	return base64.URLEncoding.EncodeToString([]byte(data + "." + s.signData(data)))
}

// Verify validates the cookie value and returns the user ID it carries.
func (s *Signer) Verify(value string) (int64, error) {
	decoded, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return 0, fmt.Errorf("%w: encoding", ErrInvalidCookie)
	}

	parts := strings.Split(string(decoded), ".")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: format", ErrInvalidCookie)
	}
	userIDStr, expirationStr, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.signData(userIDStr+"."+expirationStr)), []byte(signature)) {
		return 0, fmt.Errorf("%w: signature", ErrInvalidCookie)
	}

	expiration, err := strconv.ParseInt(expirationStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: expiration", ErrInvalidCookie)
	}
	if s.now().Unix() > expiration {
		return 0, ErrExpiredCookie
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: user id", ErrInvalidCookie)
	}
	return userID, nil
}

func (s *Signer) signData(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// SetCookie writes the signed auth cookie on the response.
func (s *Signer) SetCookie(w http.ResponseWriter, userID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Sign(userID),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cookieTTL.Seconds()),
	})
}

// ClearCookie expires the auth cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext retrieves the user ID stored by the auth middleware.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
