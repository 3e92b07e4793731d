package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "idp-secret"
	testIss    = "https://accounts.google.com"
	testAud    = "xiaoyao"
)

func idToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":     "acct-1",
		"iss":     testIss,
		"aud":     testAud,
		"email":   "Lin.Wei@example.com",
		"name":    "Lin Wei",
		"picture": "https://example.com/a.png",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func TestSignIn(t *testing.T) {
	p := NewTokenProvider(testSecret, testIss, testAud)

	acct, err := p.SignIn(context.Background(), idToken(t, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, Account{ID: "acct-1", Email: "Lin.Wei@example.com", DisplayName: "Lin Wei", AvatarRef: "https://example.com/a.png"}, acct)
}

func TestSignIn_Dismissed(t *testing.T) {
	p := NewTokenProvider(testSecret, testIss, testAud)
	_, err := p.SignIn(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrDismissed)
}

func TestSignIn_Rejects(t *testing.T) {
	p := NewTokenProvider(testSecret, testIss, testAud)

	wrongAud := validClaims()
	wrongAud["aud"] = "someone-else"
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noSub := validClaims()
	delete(noSub, "sub")

	cases := map[string]string{
		"bad secret": idToken(t, "other", validClaims()),
		"audience":   idToken(t, testSecret, wrongAud),
		"expired":    idToken(t, testSecret, expired),
		"no subject": idToken(t, testSecret, noSub),
		"garbage":    "not.a.jwt",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.SignIn(context.Background(), tok)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestObserveSession(t *testing.T) {
	p := NewTokenProvider(testSecret, testIss, testAud)
	ctx, cancel := context.WithCancel(context.Background())

	ch := p.ObserveSession(ctx, "acct-1")
	other := p.ObserveSession(ctx, "acct-2")

	require.NoError(t, p.SignOut(ctx, "acct-1"))
	select {
	case acct := <-ch:
		assert.Nil(t, acct)
	case <-time.After(time.Second):
		t.Fatal("no sign-out observed")
	}

	select {
	case <-other:
		t.Fatal("unrelated account notified")
	default:
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 10*time.Millisecond)
}
