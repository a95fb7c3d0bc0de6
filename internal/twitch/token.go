package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/domain"
)

type TokenRefreshError struct {
	Revoked bool
	Err     error
}

func (e *TokenRefreshError) Error() string {
	if e.Revoked {
		return fmt.Sprintf("token revoked: %v", e.Err)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// TokenRefresher keeps a broadcaster's user access token valid, refreshing
// it through the OAuth endpoint shortly before expiry and persisting the
// rotated tokens.
type TokenRefresher struct {
	users        domain.UserRepository
	clientID     string
	clientSecret string
	oauthURL     string // configurable for testing
	httpClient   *http.Client
	clock        clockwork.Clock
}

func NewTokenRefresher(users domain.UserRepository, clientID, clientSecret string, clock clockwork.Clock) *TokenRefresher {
	return &TokenRefresher{
		users:        users,
		clientID:     clientID,
		clientSecret: clientSecret,
		oauthURL:     "https://id.twitch.tv/oauth2/token",
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		clock:        clock,
	}
}

// EnsureValidToken returns the user with a token valid for at least the
// next 60 seconds, refreshing and persisting new tokens when needed.
func (tr *TokenRefresher) EnsureValidToken(ctx context.Context, broadcasterID string) (*domain.User, error) {
	user, err := tr.users.GetByID(ctx, broadcasterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if tr.clock.Now().Add(60 * time.Second).Before(user.TokenExpiry) {
		return user, nil
	}

	accessToken, refreshToken, expiresIn, err := tr.refreshToken(ctx, user.RefreshToken)
	if err != nil {
		return nil, err
	}

	tokenExpiry := tr.clock.Now().Add(time.Duration(expiresIn) * time.Second)
	if err := tr.users.UpdateTokens(ctx, broadcasterID, accessToken, refreshToken, tokenExpiry); err != nil {
		return nil, fmt.Errorf("failed to update tokens: %w", err)
	}

	user.AccessToken = accessToken
	user.RefreshToken = refreshToken
	user.TokenExpiry = tokenExpiry
	return user, nil
}

func (tr *TokenRefresher) refreshToken(ctx context.Context, refreshToken string) (accessToken, newRefreshToken string, expiresIn int, err error) {
	data := url.Values{}
	data.Set("client_id", tr.clientID)
	data.Set("client_secret", tr.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tr.oauthURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", "", 0, &TokenRefreshError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tr.httpClient.Do(req)
	if err != nil {
		return "", "", 0, &TokenRefreshError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", 0, &TokenRefreshError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		// 400/401 means the refresh token itself was revoked or invalidated.
		revoked := resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized
		return "", "", 0, &TokenRefreshError{
			Revoked: revoked,
			Err:     fmt.Errorf("refresh failed with status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", "", 0, &TokenRefreshError{Err: err}
	}

	return result.AccessToken, result.RefreshToken, result.ExpiresIn, nil
}
