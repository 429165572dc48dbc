package google

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// ErrMissingCredentials indicates the connection carries neither an access
// token nor a refresh token.
var ErrMissingCredentials = errors.New("google: access_token or refresh_token is required")

// Endpoint is Google's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// HasCredentials reports whether conn can produce a token source.
func HasCredentials(conn *domain.Connection) bool {
	return conn.Param(domain.ParamAccessToken) != "" || conn.Param(domain.ParamRefreshToken) != ""
}

// NewTokenSource builds an oauth2.TokenSource from connection parameters.
// A refresh token with client credentials yields an auto-refreshing source;
// otherwise the access token is used as-is.
func NewTokenSource(ctx context.Context, conn *domain.Connection) (oauth2.TokenSource, error) {
	access := conn.Param(domain.ParamAccessToken)
	refresh := conn.Param(domain.ParamRefreshToken)
	switch {
	case refresh != "":
		cfg := &oauth2.Config{
			ClientID:     conn.Param(domain.ParamClientID),
			ClientSecret: conn.Param(domain.ParamClientSecret),
			Endpoint:     Endpoint,
		}
		return cfg.TokenSource(ctx, &oauth2.Token{AccessToken: access, RefreshToken: refresh}), nil
	case access != "":
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}), nil
	default:
		return nil, ErrMissingCredentials
	}
}

// OAuthConfig returns the authorization code flow config for a connection's
// client credentials. Drive access covers pulls and name/description pushes.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
		Scopes:       []string{drive.DriveScope},
	}
}
