package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/namelens/handlescan/internal/core"
	"github.com/namelens/handlescan/internal/core/engine"
)

// DefaultTimeout bounds a single probe when the caller sets no deadline.
const DefaultTimeout = 10 * time.Second

// Executor performs one HTTP GET per target and classifies the response.
// It never returns an error; failures become indeterminate outcomes.
type Executor struct {
	Client *http.Client
	// Timeout applies when ctx carries no deadline of its own.
	Timeout      time.Duration
	Headers      map[string]string
	MaxBodyBytes int64
	// Limiter consults persisted per-host windows and 429 backoff.
	Limiter *engine.RateLimiter
	// Slots caps in-flight requests across every concurrent run.
	Slots *semaphore.Weighted
	// Pace caps the outbound request rate across every concurrent run.
	Pace   *rate.Limiter
	Logger *logging.Logger
	Clock  func() time.Time
}

// NewClient returns an HTTP client tuned for many short-lived probes.
func NewClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 200
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 30 * time.Second
	transport.TLSHandshakeTimeout = 5 * time.Second
	return &http.Client{Transport: transport}
}

// Probe resolves the target for identifier to a tri-state outcome.
func (e *Executor) Probe(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome {
	if ctx == nil {
		ctx = context.Background()
	}

	started := e.now()
	resolved := target.URLFor(identifier)
	fail := func(kind core.ErrorKind, detail string) core.ProbeOutcome {
		outcome := core.Indeterminate(target, resolved, kind, detail)
		outcome.ElapsedMS = e.now().Sub(started).Milliseconds()
		return outcome
	}

	if err := ctx.Err(); err != nil {
		kind, detail := classifyError(ctx, err)
		return fail(kind, detail)
	}

	parsed, err := url.Parse(resolved)
	if err != nil || parsed.Host == "" {
		return fail(core.ErrorKindInvalidTarget, fmt.Sprintf("invalid target url %q", resolved))
	}
	host := strings.ToLower(parsed.Hostname())

	if e.Limiter != nil {
		allowed, wait, err := e.Limiter.Allow(ctx, host)
		if err != nil {
			e.warn("Rate limit lookup failed", zap.String("host", host), zap.Error(err))
		} else if !allowed {
			return fail(core.ErrorKindRateLimited, fmt.Sprintf("rate limited, retry in %s", wait.Round(time.Second)))
		}
	}

	// A caller deadline wins; Timeout only bounds probes that arrive without one.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		timeout := e.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if e.Slots != nil {
		if err := e.Slots.Acquire(ctx, 1); err != nil {
			kind, detail := classifyError(ctx, err)
			return fail(kind, detail)
		}
		defer e.Slots.Release(1)
	}

	if e.Pace != nil {
		if err := e.Pace.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				return fail(core.ErrorKindTimeout, fmt.Sprintf("request budget exhausted before deadline: %v", err))
			}
			kind, detail := classifyError(ctx, err)
			return fail(kind, detail)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
	if err != nil {
		return fail(core.ErrorKindInvalidTarget, err.Error())
	}
	applyHeaders(req, e.Headers)

	if e.Limiter != nil {
		if err := e.Limiter.Record(ctx, host); err != nil {
			e.warn("Rate limit record failed", zap.String("host", host), zap.Error(err))
		}
	}

	resp, err := e.client().Do(req)
	if err != nil {
		kind, detail := classifyError(ctx, err)
		return fail(kind, detail)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode == http.StatusTooManyRequests && e.Limiter != nil {
		if wait, _ := retryAfterHeader(resp, e.now()); wait > 0 {
			if err := e.Limiter.Record429(ctx, host, wait); err != nil {
				e.warn("Rate limit backoff record failed", zap.String("host", host), zap.Error(err))
			}
		}
	}

	var availability core.Availability
	switch target.Detection {
	case core.DetectionStatusCode:
		availability = classifyStatus(resp.StatusCode)
	case core.DetectionBodyMessage:
		body, err := readBody(resp, e.maxBodyBytes())
		if err != nil {
			kind, detail := classifyError(ctx, err)
			outcome := fail(kind, detail)
			outcome.StatusCode = resp.StatusCode
			return outcome
		}
		availability = classifyBody(body, target.ErrorMessage, resp.Header.Get("Content-Type"))
	default:
		return fail(core.ErrorKindInvalidTarget, fmt.Sprintf("unknown detection strategy %q", target.Detection))
	}

	return core.ProbeOutcome{
		Target:       target.Name,
		URL:          resolved,
		URLMain:      target.URLMain,
		Category:     target.Category,
		Availability: availability,
		Rank:         core.UnrankedRank,
		StatusCode:   resp.StatusCode,
		ElapsedMS:    e.now().Sub(started).Milliseconds(),
	}
}

// classifyStatus treats any 2xx as an existing profile. Rate limiting and
// server errors therefore read as available.
func classifyStatus(code int) core.Availability {
	if isSuccess(code) {
		return core.AvailabilityTaken
	}
	return core.AvailabilityAvailable
}

// classifyBody treats the presence of the target's not-found message as
// available, regardless of status code.
func classifyBody(body, message, contentType string) core.Availability {
	if containsMessage(body, message, contentType) {
		return core.AvailabilityAvailable
	}
	return core.AvailabilityTaken
}

func classifyError(ctx context.Context, err error) (core.ErrorKind, string) {
	detail := "request failed"
	if err != nil {
		detail = err.Error()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.Canceled) {
			return core.ErrorKindCancelled, detail
		}
		return core.ErrorKindTimeout, detail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrorKindTimeout, detail
	}
	if errors.Is(err, context.Canceled) {
		return core.ErrorKindCancelled, detail
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.ErrorKindTimeout, detail
	}
	return core.ErrorKindNetwork, detail
}

func (e *Executor) client() *http.Client {
	if e != nil && e.Client != nil {
		return e.Client
	}
	return defaultClient
}

var defaultClient = NewClient()

func (e *Executor) maxBodyBytes() int64 {
	if e != nil && e.MaxBodyBytes > 0 {
		return e.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

func (e *Executor) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func (e *Executor) warn(msg string, fields ...zap.Field) {
	if e != nil && e.Logger != nil {
		e.Logger.Warn(msg, fields...)
	}
}
