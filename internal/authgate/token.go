package authgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidSession = errors.New("invalid session")

// Principal is the authenticated caller behind a session token.
type Principal struct {
	AccountID string
	Handle    string
	SessionID string
	ExpiresAt time.Time
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	now      func() time.Time
}

func (t *Tokens) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

func (t *Tokens) Issue(accountID, handle string) (string, Principal, error) {
	now := t.clock()
	p := Principal{
		AccountID: accountID,
		Handle:    handle,
		SessionID: uuid.NewString(),
		ExpiresAt: now.Add(t.TTL),
	}

	claims := jwt.MapClaims{
		"sub":    accountID,
		"handle": handle,
		"jti":    p.SessionID,
		"iss":    t.Issuer,
		"aud":    t.Audience,
		"iat":    now.Unix(),
		"exp":    p.ExpiresAt.Unix(),
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", Principal{}, err
	}
	return tok, p, nil
}

func (t *Tokens) Verify(token string) (Principal, error) {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithAudience(t.Audience), jwt.WithTimeFunc(t.clock))
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidSession
	}

	claims := parsed.Claims.(jwt.MapClaims)
	sub, _ := claims.GetSubject()
	handle, _ := claims["handle"].(string)
	jti, _ := claims["jti"].(string)
	exp, _ := claims.GetExpirationTime()
	if sub == "" || handle == "" || jti == "" || exp == nil {
		return Principal{}, ErrInvalidSession
	}

	return Principal{AccountID: sub, Handle: handle, SessionID: jti, ExpiresAt: exp.Time}, nil
}
