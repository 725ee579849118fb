package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/cppla/newsboard/config"
)

// IdentityClaims are the user-info fields the board keeps from the identity provider.
type IdentityClaims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
}

// IdentityProvider is the opaque "returns verified identity claims" collaborator.
type IdentityProvider interface {
	AuthCodeURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, code string) (*IdentityClaims, error)
	LogoutURL(returnTo string) string
}

type discoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
}

// OIDCProvider runs the authorization-code flow against endpoints read from the discovery document.
// Discovery happens lazily and is cached once it succeeds.
type OIDCProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	discoveryURL string
	domain       string
	httpClient   *http.Client

	mu  sync.Mutex
	doc *discoveryDocument
}

// NewOIDCProvider builds a provider from config.
func NewOIDCProvider(cfg config.AppConfig) *OIDCProvider {
	return &OIDCProvider{
		clientID:     cfg.OIDCClientID,
		clientSecret: cfg.OIDCClientSecret,
		redirectURL:  cfg.OIDCRedirectURL,
		discoveryURL: cfg.OIDCDiscoveryURL,
		domain:       cfg.OIDCDomain,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *OIDCProvider) discover(ctx context.Context) (*discoveryDocument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc != nil {
		return p.doc, nil
	}
	if p.discoveryURL == "" {
		return nil, errors.New("oidc discovery url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oidc discovery failed: %s", resp.Status)
	}
	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode discovery document: %w", err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" || doc.UserinfoEndpoint == "" {
		return nil, errors.New("discovery document missing endpoints")
	}
	p.doc = &doc
	return p.doc, nil
}

func (p *OIDCProvider) oauthConfig(doc *discoveryDocument) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		RedirectURL:  p.redirectURL,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  doc.AuthorizationEndpoint,
			TokenURL: doc.TokenEndpoint,
		},
	}
}

// AuthCodeURL returns the provider login URL for state.
func (p *OIDCProvider) AuthCodeURL(ctx context.Context, state string) (string, error) {
	doc, err := p.discover(ctx)
	if err != nil {
		return "", err
	}
	return p.oauthConfig(doc).AuthCodeURL(state), nil
}

// Exchange redeems the code and fetches the user-info document.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*IdentityClaims, error) {
	doc, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	cfg := p.oauthConfig(doc)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.UserinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := cfg.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed: %s", resp.Status)
	}
	var claims IdentityClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	claims.Email = strings.TrimSpace(claims.Email)
	if claims.Email == "" {
		return nil, errors.New("identity provider returned no email")
	}
	return &claims, nil
}

// LogoutURL builds the provider logout redirect. The discovery document's end_session_endpoint
// wins; without one the Auth0-style domain endpoint is used, and with neither the user goes
// straight to returnTo.
func (p *OIDCProvider) LogoutURL(returnTo string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if doc, err := p.discover(ctx); err == nil && doc.EndSessionEndpoint != "" {
		if u, err := url.Parse(doc.EndSessionEndpoint); err == nil {
			q := u.Query()
			q.Set("client_id", p.clientID)
			q.Set("post_logout_redirect_uri", returnTo)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	if p.domain == "" {
		return returnTo
	}
	q := url.Values{}
	q.Set("client_id", p.clientID)
	q.Set("returnTo", returnTo)
	return fmt.Sprintf("https://%s/v2/logout?%s", p.domain, q.Encode())
}
