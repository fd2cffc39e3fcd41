// Package remote wraps the HTTP contract of the sync backend.
//
// Every failure leaving this package is classified into the sync error
// taxonomy: transport-level problems (timeout, refused connection, DNS)
// become UNREACHABLE, an explicit 401/403 becomes UNAUTHENTICATED, and any
// other non-2xx status or malformed body becomes SERVER_ERROR. The sync
// engine branches on these codes and never inspects HTTP details itself.
package remote

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/Duke0404/readersync/internal/errors"
)

// Config holds backend connection settings.
type Config struct {
	// BaseURL of the backend. Empty means no backend is configured.
	BaseURL string
	// Timeout bounds regular calls (default: 15s).
	Timeout time.Duration
	// ProbeTimeout bounds health/auth probes (default: 3s).
	ProbeTimeout time.Duration
}

// Client performs library, auth, and proxy RPCs against the backend.
// Session credentials live in the cookie jar; the client never acquires
// credentials itself beyond forwarding Login/Register.
type Client struct {
	cfg    Config
	hc     *http.Client
	logger *slog.Logger

	// onAuthFailure is invoked when the backend explicitly rejects the
	// session, so the UI can prompt for re-authentication.
	onAuthFailure func()
}

// NewClient builds a client with a fresh cookie jar.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}

	jar, _ := cookiejar.New(nil)
	return &Client{
		cfg:    cfg,
		logger: logger,
		hc: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
	}
}

// Configured reports whether a backend URL is set.
// An unconfigured client fails every call with NOT_CONFIGURED.
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != ""
}

// SetAuthFailureHandler registers the callback fired on explicit credential
// rejection. Pass nil to clear.
func (c *Client) SetAuthFailureHandler(fn func()) {
	c.onAuthFailure = fn
}

// do executes a request and classifies transport failures as UNREACHABLE.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnreachable, "backend unreachable")
	}
	return resp, nil
}

// checkStatus classifies a non-2xx response. 401/403 fire the auth-failure
// callback and map to UNAUTHENTICATED; everything else is a SERVER_ERROR.
func (c *Client) checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if c.onAuthFailure != nil {
			c.onAuthFailure()
		}
		return errors.Unauthenticated("not authenticated")
	}
	return errors.Serverf("%s: backend returned %s", op, resp.Status)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if !c.Configured() {
		return nil, errors.ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// decodeBody parses a JSON response body, classifying malformed payloads as
// SERVER_ERROR: a backend that answers 200 with garbage is a hard failure,
// not an offline condition.
func decodeBody(resp *http.Response, dest any, op string) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, errors.CodeServer, "%s: read response", op)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrapf(err, errors.CodeServer, "%s: malformed response", op)
	}
	return nil
}

// timestampResponse is the body of GET /library/timestamp.
type timestampResponse struct {
	LastUpdated int64 `json:"lastUpdated"`
}

// Timestamp fetches the remote library's last-updated timestamp.
func (c *Client) Timestamp(ctx context.Context) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/library/timestamp", nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "timestamp"); err != nil {
		return 0, err
	}

	var body timestampResponse
	if err := decodeBody(resp, &body, "timestamp"); err != nil {
		return 0, err
	}
	return body.LastUpdated, nil
}

// libraryResponse is the body of GET /library.
type libraryResponse struct {
	Books []WireBook `json:"books"`
}

// Library fetches the full remote library.
func (c *Client) Library(ctx context.Context) ([]WireBook, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/library", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "download"); err != nil {
		return nil, err
	}

	var body libraryResponse
	if err := decodeBody(resp, &body, "download"); err != nil {
		return nil, err
	}
	return body.Books, nil
}

// replaceLibraryRequest is the body of PUT /library.
type replaceLibraryRequest struct {
	Books       []WireBook `json:"books"`
	LastUpdated int64      `json:"lastUpdated"`
}

// ReplaceLibrary uploads the full library, stamping it with lastUpdated.
// deviceID identifies this installation in the backend's logs.
func (c *Client) ReplaceLibrary(ctx context.Context, books []WireBook, lastUpdated int64, deviceID string) error {
	req, err := c.newRequest(ctx, http.MethodPut, "/library", replaceLibraryRequest{
		Books:       books,
		LastUpdated: lastUpdated,
	})
	if err != nil {
		return err
	}
	if deviceID != "" {
		req.Header.Set("X-Device-ID", deviceID)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(resp, "upload")
}

// ValidateAuth checks whether the current session is accepted.
// Returns false only when the backend explicitly rejects the credentials;
// transport failures surface as an UNREACHABLE error instead.
func (c *Client) ValidateAuth(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/auth/validate", nil)
	if err != nil {
		return false, err
	}

	resp, err := c.do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, nil
	}
	if err := c.checkStatus(resp, "auth validate"); err != nil {
		return false, err
	}
	return true, nil
}

// Healthy reports whether the backend answers its health endpoint within the
// probe timeout. Used for the cheap reachability poll; failures are expected
// while offline and are not logged as errors.
func (c *Client) Healthy(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// credentialsRequest is the body of the login and register endpoints.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates against the backend. On success the session cookie
// lands in the client's jar and subsequent calls carry it implicitly.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.postCredentials(ctx, "/auth/login", username, password)
}

// Register creates an account and logs in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.postCredentials(ctx, "/auth/register", username, password)
}

func (c *Client) postCredentials(ctx context.Context, path, username, password string) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, credentialsRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errors.Unauthenticated("invalid credentials")
	}
	return c.checkStatus(resp, path)
}

// readAloudRequest is the body of POST /readAloud.
type readAloudRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// ReadAloud asks the backend to synthesize speech for text.
// Returns raw audio bytes.
func (c *Client) ReadAloud(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = "en_US-lessac-high"
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/readAloud", readAloudRequest{
		Text:  text,
		Voice: voice,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "read aloud"); err != nil {
		return nil, err
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeServer, "read aloud: read audio")
	}
	return audio, nil
}

// translateRequest is the body of POST /translate.
type translateRequest struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

// translateResponse is the body returned by POST /translate.
type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate asks the backend to translate text into the target language.
func (c *Client) Translate(ctx context.Context, text, target string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/translate", translateRequest{
		Text:   text,
		Target: target,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "translate"); err != nil {
		return "", err
	}

	var body translateResponse
	if err := decodeBody(resp, &body, "translate"); err != nil {
		return "", err
	}
	return body.TranslatedText, nil
}

// Language is a translation target offered by the backend.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages lists the translation targets the backend supports.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/translate/languages", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "languages"); err != nil {
		return nil, err
	}

	var langs []Language
	if err := decodeBody(resp, &langs, "languages"); err != nil {
		return nil, err
	}
	return langs, nil
}
