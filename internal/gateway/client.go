package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/pkg/config"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
	"github.com/angelmondragon/luvwish-checkout/pkg/metrics"
)

const maxResponseBytes = 1 << 20

// Deps carries the collaborators shared by every gateway.
type Deps struct {
	HTTPClient *http.Client
	Metrics    *metrics.GatewayMetrics
	Logger     *logger.Logger
}

type rawResponse struct {
	status int
	body   []byte
}

// upstreamError marks a 5xx so the breaker counts it while the body stays
// available for classification.
type upstreamError struct {
	resp *rawResponse
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("upstream responded %d", e.resp.status)
}

type request struct {
	method     string
	path       []string
	body       any
	credential string
}

type client struct {
	service string
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*rawResponse]
	metrics *metrics.GatewayMetrics
	logg    *logger.Logger
}

func newClient(service, baseURL string, cfg config.GatewayConfig, deps Deps) (*client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%s gateway base url required", service)
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        service,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if deps.Logger == nil {
				return
			}
			ctx := deps.Logger.WithFields(context.Background(), map[string]any{
				"gateway": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			deps.Logger.Warn(ctx, "gateway.breaker.state_changed")
		},
	})

	return &client{
		service: service,
		baseURL: baseURL,
		timeout: timeout,
		http:    httpClient,
		breaker: breaker,
		metrics: deps.Metrics,
		logg:    deps.Logger,
	}, nil
}

// do performs one call and classifies any failure. Only transport errors and
// 5xx responses count against the breaker.
func (c *client) do(ctx context.Context, operation string, req request) (*rawResponse, *failure.Classified) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		return c.roundTrip(ctx, req)
	})
	c.metrics.ObserveDuration(c.service, operation, time.Since(start))

	var classified *failure.Classified
	switch {
	case err != nil:
		classified = c.classifyError(err)
	case resp.status >= http.StatusBadRequest:
		classified = failure.FromResponse(resp.status, resp.body)
	}

	if classified != nil {
		c.metrics.IncFailure(c.service, operation, string(classified.Category))
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"gateway":   c.service,
				"operation": operation,
				"category":  string(classified.Category),
				"status":    classified.Status,
			})
			c.logg.Warn(logCtx, "gateway.request.failed")
		}
		return nil, classified
	}
	return resp, nil
}

func (c *client) roundTrip(ctx context.Context, req request) (*rawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target, err := url.JoinPath(c.baseURL, req.path...)
	if err != nil {
		return nil, fmt.Errorf("build %s url: %w", c.service, err)
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", c.service, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.service, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.credential)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.service, err)
	}

	resp := &rawResponse{status: httpResp.StatusCode, body: raw}
	if resp.status >= http.StatusInternalServerError {
		return nil, &upstreamError{resp: resp}
	}
	return resp, nil
}

func (c *client) classifyError(err error) *failure.Classified {
	var upstream *upstreamError
	if errors.As(err, &upstream) {
		return failure.FromResponse(upstream.resp.status, upstream.resp.body)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return failure.Network(err)
	}
	return failure.Classify(err)
}

// envelope is the response wrapper used by every remote service.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// decodeEnvelope unwraps the envelope, treating success=false as a rejection
// even on a 2xx status.
func decodeEnvelope(resp *rawResponse) (envelope, *failure.Classified) {
	var env envelope
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return env, failure.Classify(fmt.Errorf("decode envelope: %w", err))
	}
	if env.Success != nil && !*env.Success {
		rejected := failure.Validation(env.Message)
		rejected.Status = resp.status
		return env, rejected
	}
	return env, nil
}

func hasData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
