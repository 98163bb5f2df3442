/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Google is the sign-in provider for playlist import.
type Google struct {
	oauth *oauth2.Config

	// userinfoOptions are extra client options for the userinfo call, used by tests.
	userinfoOptions []option.ClientOption
}

// NewGoogle configures the Google OAuth flow with read-only YouTube access.
func NewGoogle(cfg GoogleConfig) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				oauth2api.OpenIDScope,
				oauth2api.UserinfoEmailScope,
				oauth2api.UserinfoProfileScope,
				youtube.YoutubeReadonlyScope,
			},
		},
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades an authorization code for an access token and the account profile.
func (g *Google) Exchange(ctx context.Context, code string) (SignInResult, error) {
	if code == "" {
		return SignInResult{}, errors.New("authorization code missing")
	}
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return SignInResult{}, fmt.Errorf("exchange code: %w", err)
	}
	if tok.AccessToken == "" {
		return SignInResult{}, ErrMissingAccessToken
	}

	opts := append([]option.ClientOption{
		option.WithTokenSource(g.oauth.TokenSource(ctx, tok)),
	}, g.userinfoOptions...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return SignInResult{}, fmt.Errorf("userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return SignInResult{}, fmt.Errorf("fetch userinfo: %w", err)
	}

	return SignInResult{
		User: User{
			ID:      info.Id,
			Email:   info.Email,
			Name:    info.Name,
			Picture: info.Picture,
		},
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}, nil
}
