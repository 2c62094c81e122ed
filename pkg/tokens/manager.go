package tokens

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
)

// DefaultTokenURL is Reddit's OAuth token endpoint.
const DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

// expiryMargin refreshes slightly early so a token never expires between
// EnsureValid and the request that uses it.
const expiryMargin = 60 * time.Second

// Manager owns the in-memory credential pair and is the sole writer of
// the persisted record. It refreshes the access token transparently and
// persists every rotation before handing the token out.
type Manager struct {
	store        Store
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	userAgent    string
	logger       logger.Logger

	token *AuthToken
}

// ManagerOptions configures a token Manager.
type ManagerOptions struct {
	Store        Store
	ClientID     string
	ClientSecret string
	UserAgent    string
	// TokenURL overrides the Reddit token endpoint, for tests.
	TokenURL string
	// HTTPClient overrides the default client, for tests.
	HTTPClient *http.Client
	Logger     logger.Logger
}

// NewManager creates a token manager.
func NewManager(opts ManagerOptions) *Manager {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	return &Manager{
		store:        opts.Store,
		httpClient:   httpClient,
		tokenURL:     tokenURL,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		userAgent:    opts.UserAgent,
		logger:       log,
	}
}

// EnsureValid returns an access token that is valid for at least the
// expiry margin, refreshing and persisting the credential pair first when
// needed. Callers invoke it before every batch of API calls and again
// after an authorization rejection mid-fetch.
func (m *Manager) EnsureValid(ctx context.Context) (string, error) {
	if m.token == nil {
		token, err := m.store.Load()
		if err != nil {
			return "", err
		}
		if token == nil {
			return "", errs.New(errs.KindNoTokens, 0,
				"no stored tokens found; run the authorize command first")
		}
		m.token = token
	}

	if !m.token.Expired(expiryMargin) {
		return m.token.AccessToken, nil
	}

	if err := m.refresh(ctx); err != nil {
		return "", err
	}

	return m.token.AccessToken, nil
}

// Invalidate discards the current access token so the next EnsureValid
// performs a refresh. Used after a 401 on a page fetch.
func (m *Manager) Invalidate() {
	if m.token != nil {
		m.token.AccessToken = ""
		m.token.ExpiresAt = 0
	}
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Error        string `json:"error"`
}

// refresh performs the refresh-token exchange and persists the result
// before returning. A rejected exchange is fatal: the grant was revoked
// or the app credentials are wrong, and only the interactive flow can fix
// either.
func (m *Manager) refresh(ctx context.Context) error {
	m.logger.Debug("access token expired, refreshing")

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", m.token.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+basicAuth(m.clientID, m.clientSecret))
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindUnreachable, 0, err, "token refresh request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.KindUnreachable, resp.StatusCode, err, "failed to read refresh response")
	}

	if resp.StatusCode != http.StatusOK {
		m.logger.ErrorWithFields("token refresh rejected", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return errs.New(errs.KindRefreshFailed, resp.StatusCode,
			"token refresh rejected: %s", strings.TrimSpace(string(body)))
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return errs.Wrap(errs.KindParsing, resp.StatusCode, err, "failed to parse refresh response")
	}
	if parsed.Error != "" || parsed.AccessToken == "" {
		return errs.New(errs.KindRefreshFailed, resp.StatusCode,
			"token refresh rejected: %s", parsed.Error)
	}

	m.token.AccessToken = parsed.AccessToken
	m.token.ExpiresAt = time.Now().Unix() + parsed.ExpiresIn
	if parsed.RefreshToken != "" {
		// Reddit rotates refresh tokens; always keep the newest one.
		m.token.RefreshToken = parsed.RefreshToken
	}

	if err := m.store.Save(m.token); err != nil {
		return fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	m.logger.InfoWithFields("access token refreshed", map[string]interface{}{
		"expires_at": m.token.ExpiresAt,
	})

	return nil
}

func basicAuth(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}
