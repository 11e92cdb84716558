package parakeet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/telemetry"
)

// Config captures initialization options for Client.
// Field precedence: explicit Config values override environment variables,
// which override library defaults.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
	HTTPClient     *http.Client
	Logger         *slog.Logger
	Metrics        *telemetry.Metrics
}

// Client is the entry point for the Parakeet API.
type Client struct {
	baseRESTURL   string
	baseSocketURL string
	apiKey        string
	httpClient    *http.Client
	logger        *slog.Logger
	metrics       *telemetry.Metrics
}

// NewClient creates a new client instance using the provided config.
func NewClient(cfg Config) (*Client, error) {
	env := loadEnvConfig()

	apiKey := firstNonEmpty(cfg.APIKey, env.apiKey)
	if apiKey == "" {
		return nil, newError(
			ErrCodeAuthentication,
			"api_key is required",
			withSuggestion("Set PARAKEET_API_KEY or pass Config.APIKey"),
		)
	}

	baseURL := firstNonEmpty(cfg.BaseURL, env.baseURL, constants.DefaultBaseURL)
	restBase, socketBase, err := normalizeBases(baseURL)
	if err != nil {
		return nil, err
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = env.timeoutSeconds
	}
	if timeout <= 0 {
		timeout = constants.DefaultTimeoutSeconds
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseRESTURL:   restBase,
		baseSocketURL: socketBase,
		apiKey:        apiKey,
		httpClient:    httpClient,
		logger:        logger,
		metrics:       cfg.Metrics,
	}, nil
}

// do executes one API call: marshal in, send, translate errors, decode into
// out. out may be nil when the caller ignores the body. The response headers
// are returned for callers that read poll hints.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, in, out interface{}) (http.Header, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, newError(ErrCodeInvalidRequest, "failed to serialize request", withCause(err))
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseRESTURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, newError(ErrCodeInvalidRequest, "failed to create request", withCause(err))
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(operation, 0, time.Since(started))
		return nil, newError(
			ErrCodeConnection,
			"failed to reach Parakeet service",
			withCause(err),
			withSuggestion("Check your network connection or the base URL"),
		)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(operation, resp.StatusCode, time.Since(started))
	if err != nil {
		return nil, newError(ErrCodeConnection, "failed to read response body", withCause(err))
	}

	c.logger.Debug("parakeet request",
		"operation", operation,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, translateHTTPError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.Header, newError(ErrCodeServer, "failed to decode response",
				withFault(FaultServer), withCause(err))
		}
	}

	return resp.Header, nil
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	if p.After != "" {
		q.Set("after", p.After)
	}
	return q
}

type envConfig struct {
	apiKey         string
	baseURL        string
	timeoutSeconds int
}

func loadEnvConfig() envConfig {
	cfg := envConfig{}
	cfg.apiKey = strings.TrimSpace(os.Getenv(constants.EnvAPIKey))
	cfg.baseURL = strings.TrimSpace(os.Getenv(constants.EnvBaseURL))

	if timeoutStr := os.Getenv(constants.EnvTimeout); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.timeoutSeconds = timeout
		}
	}

	return cfg
}

// normalizeBases derives the REST and WebSocket base URLs, including the API
// prefix, from one user-supplied base URL.
func normalizeBases(raw string) (string, string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	trimmed := strings.TrimSuffix(raw, "/")
	restBase := trimmed + constants.DefaultAPIPrefix

	var socketBase string
	switch {
	case strings.HasPrefix(trimmed, "https://"):
		socketBase = "wss://" + strings.TrimPrefix(trimmed, "https://") + constants.DefaultAPIPrefix
	case strings.HasPrefix(trimmed, "http://"):
		socketBase = "ws://" + strings.TrimPrefix(trimmed, "http://") + constants.DefaultAPIPrefix
	default:
		return "", "", newError(ErrCodeInvalidRequest, fmt.Sprintf("invalid base URL: %s", raw))
	}

	return restBase, socketBase, nil
}

func firstNonEmpty(values ...string) string {
	for _, candidate := range values {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

func userAgent() string {
	return fmt.Sprintf("parakeet-go/%s", Version)
}
