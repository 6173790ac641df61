package desk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/desk-relay/internal/config"
	"github.com/spec-kit/desk-relay/internal/domain"
	apperrors "github.com/spec-kit/desk-relay/pkg/util/errorutil"
)

const tokenService = "oauth token endpoint"

// ErrTokenNotFound is returned when the token endpoint answers without an
// access_token field.
var ErrTokenNotFound = errors.New("access token not found in the response")

// TokenProvider exchanges the configured refresh token for an access token.
// Every call goes to the endpoint; nothing is cached.
type TokenProvider struct {
	cfg    config.DeskConfig
	http   *http.Client
	logger *zap.Logger
}

// NewTokenProvider constructs a provider.
func NewTokenProvider(cfg config.DeskConfig, httpClient *http.Client, logger *zap.Logger) *TokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	return &TokenProvider{cfg: cfg, http: httpClient, logger: logger}
}

// FetchAccessToken performs a single refresh_token grant.
func (p *TokenProvider) FetchAccessToken(ctx context.Context) (domain.AccessToken, error) {
	tokenURL, err := p.refreshURL()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	res, err := p.http.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamUnavailable(tokenService, err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	var payload struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	if payload.AccessToken == "" {
		p.logger.Warn("token endpoint returned no access token",
			zap.Int("status_code", res.StatusCode),
			zap.String("error", payload.Error))
		return "", fmt.Errorf("%w (status=%d)", ErrTokenNotFound, res.StatusCode)
	}

	p.logger.Debug("access token generated")
	return domain.AccessToken(payload.AccessToken), nil
}

func (p *TokenProvider) refreshURL() (string, error) {
	required := []struct{ key, val string }{
		{"ZOHO_TOKEN_URL", p.cfg.TokenURL},
		{"ZOHO_CLIENT_ID", p.cfg.ClientID},
		{"ZOHO_CLIENT_SECRET", p.cfg.ClientSecret},
		{"ZOHO_REDIRECT_URI", p.cfg.RedirectURI},
		{"ZOHO_REFRESH_TOKEN", p.cfg.RefreshToken},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return "", apperrors.NewConfigurationError(r.key)
		}
	}

	u, err := url.Parse(p.cfg.TokenURL)
	if err != nil {
		return "", fmt.Errorf("parse ZOHO_TOKEN_URL: %w", err)
	}
	q := u.Query()
	q.Set("grant_type", "refresh_token")
	q.Set("client_id", p.cfg.ClientID)
	q.Set("client_secret", p.cfg.ClientSecret)
	q.Set("redirect_uri", p.cfg.RedirectURI)
	q.Set("refresh_token", p.cfg.RefreshToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
