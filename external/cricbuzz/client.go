package cricbuzz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/logging"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/resilience"
	"github.com/riskibarqy/cricket-scoreboard/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://www.cricbuzz.com/api/cricket-match/commentary"
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 6 << 20

	CodeCircuitOpen = "CIRCUIT_OPEN"
)

var errCricbuzzTransient = crerr.New("cricbuzz transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	// RateLimit is requests per second toward the upstream. Zero disables limiting.
	RateLimit float64
	Burst     int
}

// Client performs single GET requests for match payloads. Retrying is left to
// the caller.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	limiter        *rate.Limiter
}

// Health is the client's view of upstream availability.
type Health struct {
	BaseURL        string                     `json:"baseUrl"`
	CircuitEnabled bool                       `json:"circuitEnabled"`
	Breaker        resilience.BreakerSnapshot `json:"breaker"`
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	breaker := resilience.NewCircuitBreaker(cfg.CircuitBreaker)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		logger.Warn("cricbuzz circuit breaker state changed", "from", string(from), "to", string(to))
	})

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		logger:         logger,
		breaker:        breaker,
		circuitEnabled: cfg.CircuitBreaker.Enabled,
		limiter:        limiter,
	}
}

// FetchMatchPayload downloads and decodes the raw document for matchID.
// Failures are reported as *usecase.UpstreamError carrying the HTTP status and
// an error code.
func (c *Client) FetchMatchPayload(ctx context.Context, matchID string) (match.RawPayload, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "cricbuzz circuit breaker rejected request", "state", string(c.breaker.State()), "match_id", matchID)
			return nil, &usecase.UpstreamError{
				Status:  http.StatusServiceUnavailable,
				Code:    CodeCircuitOpen,
				Message: "match data provider is temporarily unavailable",
				Err:     err,
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if c.circuitEnabled {
				c.breaker.Release()
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &usecase.UpstreamError{
				Status:  http.StatusGatewayTimeout,
				Code:    usecase.CodeTimeout,
				Message: "rate limit wait exceeds request deadline",
				Err:     err,
			}
		}
	}

	payload, err := c.execute(ctx, c.baseURL+"/"+url.PathEscape(matchID))
	if c.circuitEnabled {
		switch {
		case err == nil:
			c.breaker.RecordSuccess()
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			// Cancelled by the caller, not an upstream verdict.
			c.breaker.Release()
		case errors.Is(err, errCricbuzzTransient):
			c.breaker.RecordFailure()
		default:
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		c.logger.WarnContext(ctx, "cricbuzz request failed", "match_id", matchID, "error", err)
		return nil, err
	}
	return payload, nil
}

func (c *Client) Health() Health {
	return Health{
		BaseURL:        c.baseURL,
		CircuitEnabled: c.circuitEnabled,
		Breaker:        c.breaker.Snapshot(),
	}
}

func (c *Client) execute(ctx context.Context, fullURL string) (match.RawPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &usecase.UpstreamError{Status: http.StatusInternalServerError, Code: usecase.CodeUnknown, Message: "build request", Err: err}
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, maxResponseSize+1)); err != nil {
		return nil, transportError(crerr.Wrap(err, "read response body"))
	}
	if buf.Len() > maxResponseSize {
		return nil, &usecase.UpstreamError{
			Status:  http.StatusBadGateway,
			Code:    usecase.CodeInvalidData,
			Message: fmt.Sprintf("upstream body exceeds %d bytes", maxResponseSize),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cause := fmt.Errorf("upstream status=%d body=%s", resp.StatusCode, abbreviateBody(buf.B))
		if isRetryableStatus(resp.StatusCode) {
			cause = fmt.Errorf("%w: %w", errCricbuzzTransient, cause)
		}
		return nil, &usecase.UpstreamError{
			Status:  resp.StatusCode,
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: fmt.Sprintf("upstream returned %d", resp.StatusCode),
			Err:     cause,
		}
	}

	// The buffer goes back to the pool, so decoded strings must not alias it.
	var payload match.RawPayload
	if err := sonic.ConfigStd.Unmarshal(buf.B, &payload); err != nil {
		return nil, &usecase.UpstreamError{
			Status:  http.StatusInternalServerError,
			Code:    usecase.CodeInvalidData,
			Message: "decode upstream payload",
			Err:     err,
		}
	}
	return payload, nil
}

func transportError(err error) error {
	marked := fmt.Errorf("%w: %w", errCricbuzzTransient, err)

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &usecase.UpstreamError{
			Status:  http.StatusGatewayTimeout,
			Code:    usecase.CodeTimeout,
			Message: "upstream request timed out",
			Err:     marked,
		}
	}
	return &usecase.UpstreamError{
		Status:  http.StatusBadGateway,
		Code:    usecase.CodeFetchError,
		Message: "send request failed",
		Err:     marked,
	}
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
