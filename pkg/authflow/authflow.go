// Package authflow implements the one-time interactive OAuth
// authorization that seeds the token store. Every later run refreshes
// from the stored credential pair and never needs a browser again.
package authflow

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
	"github.com/akashpandey/Reddit-Fetch/pkg/reddit"
	"github.com/akashpandey/Reddit-Fetch/pkg/tokens"
)

// callbackTimeout bounds how long the local server waits for the user to
// finish the browser flow.
const callbackTimeout = 5 * time.Minute

// Options configures an authorization Flow.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	UserAgent    string
	Store        tokens.Store

	// Headless skips the local callback server; the flow prints the
	// authorization URL and reads the redirect URL (or bare code) from
	// Input instead.
	Headless bool

	// TokenURL overrides the Reddit token endpoint, for tests.
	TokenURL string
	// HTTPClient overrides the default client, for tests.
	HTTPClient *http.Client
	// Input and Output default to stdin/stdout.
	Input  io.Reader
	Output io.Writer

	Logger logger.Logger
}

// Flow drives one interactive authorization: open the consent page,
// capture the authorization code, exchange it for a credential pair, and
// persist the pair.
type Flow struct {
	clientID     string
	clientSecret string
	redirectURI  string
	userAgent    string
	store        tokens.Store
	headless     bool
	tokenURL     string
	httpClient   *http.Client
	input        io.Reader
	output       io.Writer
	logger       logger.Logger

	openBrowser func(url string) error
}

// New creates an authorization flow.
func New(opts Options) (*Flow, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("client id and secret are required")
	}
	if opts.RedirectURI == "" {
		return nil, fmt.Errorf("redirect URI is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("token store is required")
	}

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
		tokenURL = tokens.DefaultTokenURL
	}
	input := opts.Input
	if input == nil {
		input = os.Stdin
	}
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	return &Flow{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		redirectURI:  opts.RedirectURI,
		userAgent:    opts.UserAgent,
		store:        opts.Store,
		headless:     opts.Headless,
		tokenURL:     tokenURL,
		httpClient:   httpClient,
		input:        input,
		output:       output,
		logger:       log,
		openBrowser:  openBrowser,
	}, nil
}

// Run performs the full authorization and persists the resulting
// credential pair. It overwrites any previously stored pair.
func (f *Flow) Run(ctx context.Context) error {
	state, err := randomState()
	if err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}

	authURL := reddit.AuthorizeURL(f.clientID, f.redirectURI, state)

	var code string
	if f.headless {
		code, err = f.collectCodeHeadless(authURL, state)
	} else {
		code, err = f.collectCodeBrowser(ctx, authURL, state)
	}
	if err != nil {
		return err
	}

	token, err := f.exchangeCode(ctx, code)
	if err != nil {
		return err
	}

	if err := f.store.Save(token); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	f.logger.Info("authorization complete, tokens stored")
	fmt.Fprintln(f.output, "Authorization complete. Tokens stored.")
	return nil
}

// collectCodeBrowser starts a one-shot HTTP server on the redirect URI's
// address, opens the consent page, and waits for Reddit to call back.
func (f *Flow) collectCodeBrowser(ctx context.Context, authURL, state string) (string, error) {
	redirect, err := url.Parse(f.redirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URI: %w", err)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	type callbackResult struct {
		code string
		err  error
	}
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if apiErr := q.Get("error"); apiErr != "" {
			http.Error(w, "Authorization failed: "+apiErr, http.StatusBadRequest)
			results <- callbackResult{err: errs.New(errs.KindUnauthorized, 0,
				"authorization rejected: %s", apiErr)}
			return
		}
		if q.Get("state") != state {
			http.Error(w, "State mismatch.", http.StatusBadRequest)
			results <- callbackResult{err: fmt.Errorf("state mismatch in callback")}
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing code.", http.StatusBadRequest)
			results <- callbackResult{err: fmt.Errorf("callback carried no code")}
			return
		}
		fmt.Fprintln(w, "Authorization received. You can close this tab.")
		results <- callbackResult{code: code}
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener) //nolint:errcheck
	defer server.Close()

	fmt.Fprintf(f.output, "Opening browser for authorization...\n%s\n", authURL)
	if err := f.openBrowser(authURL); err != nil {
		f.logger.WithError(err).Warn("could not open browser, visit the URL manually")
	}

	select {
	case res := <-results:
		return res.code, res.err
	case <-time.After(callbackTimeout):
		return "", fmt.Errorf("timed out waiting for authorization callback")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// collectCodeHeadless prints the authorization URL and reads the redirect
// URL the user was sent to. A bare code is accepted too.
func (f *Flow) collectCodeHeadless(authURL, state string) (string, error) {
	fmt.Fprintf(f.output, "Visit this URL in any browser and authorize the app:\n\n%s\n\n", authURL)
	fmt.Fprint(f.output, "Paste the full redirect URL (or just the code parameter): ")

	scanner := bufio.NewScanner(f.input)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", fmt.Errorf("no input received")
	}
	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return "", fmt.Errorf("no input received")
	}

	if strings.Contains(line, "://") {
		parsed, err := url.Parse(line)
		if err != nil {
			return "", fmt.Errorf("invalid redirect URL: %w", err)
		}
		q := parsed.Query()
		if apiErr := q.Get("error"); apiErr != "" {
			return "", errs.New(errs.KindUnauthorized, 0, "authorization rejected: %s", apiErr)
		}
		if got := q.Get("state"); got != "" && got != state {
			return "", fmt.Errorf("state mismatch in redirect URL")
		}
		code := q.Get("code")
		if code == "" {
			return "", fmt.Errorf("redirect URL carried no code")
		}
		return code, nil
	}

	return line, nil
}

type exchangeResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Error        string `json:"error"`
}

// exchangeCode trades the authorization code for a credential pair.
func (f *Flow) exchangeCode(ctx context.Context, code string) (*tokens.AuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", f.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.SetBasicAuth(f.clientID, f.clientSecret)
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnreachable, 0, err, "token exchange request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnreachable, resp.StatusCode, err, "failed to read exchange response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.KindUnauthorized, resp.StatusCode,
			"token exchange rejected: %s", strings.TrimSpace(string(body)))
	}

	var parsed exchangeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errs.Wrap(errs.KindParsing, resp.StatusCode, err, "failed to parse exchange response")
	}
	if parsed.Error != "" || parsed.AccessToken == "" {
		return nil, errs.New(errs.KindUnauthorized, resp.StatusCode,
			"token exchange rejected: %s", parsed.Error)
	}
	if parsed.RefreshToken == "" {
		return nil, errs.New(errs.KindUnauthorized, resp.StatusCode,
			"no refresh token in exchange response; request duration=permanent")
	}

	return &tokens.AuthToken{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    time.Now().Unix() + parsed.ExpiresIn,
	}, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func openBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}
