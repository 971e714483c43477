package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauthapi "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/ykihara/commentguard/internal/service"
	"github.com/ykihara/commentguard/internal/youtube"
)

// Flow runs the Google OAuth web flow for the channel owner.
type Flow struct {
	config *oauth2.Config
}

// NewFlow creates an OAuth flow for the given client credentials.
func NewFlow(clientID, clientSecret, redirectURL string) (*Flow, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("OAuth client ID and secret are required")
	}

	return &Flow{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       youtube.Scopes,
		},
	}, nil
}

// AuthURL returns the consent page URL. Offline access with forced consent
// is requested so a refresh token survives for background processing.
func (f *Flow) AuthURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the authorization code for a token and fetches the
// user's identity.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, *service.UserInfo, error) {
	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	svc, err := oauthapi.NewService(ctx, option.WithTokenSource(f.config.TokenSource(ctx, token)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	userinfo, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	user := &service.UserInfo{
		ID:      userinfo.Id,
		Email:   userinfo.Email,
		Name:    userinfo.Name,
		Picture: userinfo.Picture,
	}

	return token, user, nil
}

// CredentialsJSON serializes a token into the stored credential shape the
// YouTube client consumes.
func (f *Flow) CredentialsJSON(token *oauth2.Token) (string, error) {
	creds := youtube.Credentials{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     google.Endpoint.TokenURL,
		ClientID:     f.config.ClientID,
		ClientSecret: f.config.ClientSecret,
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %w", err)
	}
	return string(data), nil
}
