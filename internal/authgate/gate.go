// Package authgate turns an identity provider sign-in into a provisioned
// profile and a session token, and guards every authenticated request.
package authgate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/identity"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
)

var ErrSignInFailed = errors.New("sign-in failed")

type ProfileStore interface {
	Upsert(ctx context.Context, p *model.Profile) error
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	Principal Principal
	Profile   model.Profile
}

type Gate struct {
	provider identity.Provider
	profiles ProfileStore
	tokens   *Tokens
	revoked  RevocationList
}

func New(provider identity.Provider, profiles ProfileStore, tokens *Tokens, revoked RevocationList) *Gate {
	return &Gate{provider: provider, profiles: profiles, tokens: tokens, revoked: revoked}
}

// SignIn verifies the credential, merges the caller's profile and issues a
// session. A dismissed prompt is returned as identity.ErrDismissed; every
// other provider failure becomes ErrSignInFailed.
func (g *Gate) SignIn(ctx context.Context, credential string) (Session, error) {
	log := observability.GetLogger(ctx)

	acct, err := g.provider.SignIn(ctx, credential)
	if errors.Is(err, identity.ErrDismissed) {
		log.Info("sign-in dismissed")
		return Session{}, err
	}
	if err != nil {
		log.Warn("sign-in rejected", zap.Error(err))
		return Session{}, fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}

	profile := model.Profile{
		Handle:      DeriveHandle(acct),
		OwnerID:     acct.ID,
		DisplayName: acct.DisplayName,
		AvatarRef:   acct.AvatarRef,
	}
	if err := g.profiles.Upsert(ctx, &profile); err != nil {
		log.Error("profile provisioning failed", zap.String("account_id", acct.ID), zap.Error(err))
		return Session{}, err
	}

	token, principal, err := g.tokens.Issue(acct.ID, profile.Handle)
	if err != nil {
		return Session{}, err
	}

	log.Info("signed in", zap.String("account_id", acct.ID), zap.String("handle", profile.Handle))
	return Session{Token: token, Principal: principal, Profile: profile}, nil
}

// Authenticate resolves a session token to its principal.
func (g *Gate) Authenticate(ctx context.Context, token string) (Principal, error) {
	p, err := g.tokens.Verify(token)
	if err != nil {
		return Principal{}, err
	}
	if g.revoked != nil {
		revoked, err := g.revoked.IsRevoked(ctx, p.SessionID)
		if err != nil {
			return Principal{}, err
		}
		if revoked {
			return Principal{}, ErrInvalidSession
		}
	}
	return p, nil
}

// SignOut revokes the session and tells the provider, which ends the live
// dashboards observing the account.
func (g *Gate) SignOut(ctx context.Context, p Principal) error {
	if g.revoked != nil {
		if err := g.revoked.Revoke(ctx, p.SessionID, p.ExpiresAt); err != nil {
			return err
		}
	}
	if err := g.provider.SignOut(ctx, p.AccountID); err != nil {
		return err
	}
	observability.GetLogger(ctx).Info("signed out", zap.String("account_id", p.AccountID))
	return nil
}

// ObserveSession exposes the provider's session changes to the transport.
func (g *Gate) ObserveSession(ctx context.Context, accountID string) <-chan *identity.Account {
	return g.provider.ObserveSession(ctx, accountID)
}
