// Package identity verifies the ID tokens minted by the external identity
// provider and tracks which accounts are signed in on this instance.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
)

var (
	// ErrDismissed means the user closed the sign-in prompt without
	// finishing. It is not a failure worth surfacing.
	ErrDismissed         = errors.New("sign-in dismissed")
	ErrInvalidCredential = errors.New("invalid identity credential")
)

// Account is what the provider knows about a signed-in person.
type Account struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

type Provider interface {
	SignIn(ctx context.Context, credential string) (Account, error)
	SignOut(ctx context.Context, accountID string) error
	// ObserveSession reports every later session change of the account: the
	// account on sign-in, nil on sign-out. The channel closes with ctx.
	ObserveSession(ctx context.Context, accountID string) <-chan *Account
}

// TokenProvider accepts HS256 ID tokens issued for this application.
type TokenProvider struct {
	secret   []byte
	issuer   string
	audience string
	hub      *hub
}

var _ Provider = (*TokenProvider)(nil)

func NewTokenProvider(secret, issuer, audience string) *TokenProvider {
	return &TokenProvider{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		hub:      newHub(),
	}
}

func (p *TokenProvider) SignIn(ctx context.Context, credential string) (Account, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Account{}, ErrDismissed
	}

	parsed, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithAudience(p.audience), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		observability.GetLogger(ctx).Info("identity token rejected", zap.Error(err))
		return Account{}, ErrInvalidCredential
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Account{}, ErrInvalidCredential
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return Account{}, ErrInvalidCredential
	}

	acct := Account{
		ID:          sub,
		Email:       stringClaim(claims, "email"),
		DisplayName: stringClaim(claims, "name"),
		AvatarRef:   stringClaim(claims, "picture"),
	}
	p.hub.publish(acct.ID, &acct)
	return acct, nil
}

func (p *TokenProvider) SignOut(ctx context.Context, accountID string) error {
	observability.GetLogger(ctx).Debug("identity sign-out", zap.String("account_id", accountID))
	p.hub.publish(accountID, nil)
	return nil
}

func (p *TokenProvider) ObserveSession(ctx context.Context, accountID string) <-chan *Account {
	return p.hub.observe(ctx, accountID)
}

func stringClaim(c jwt.MapClaims, name string) string {
	v, _ := c[name].(string)
	return v
}
