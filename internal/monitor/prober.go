package monitor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
	"github.com/apiwatch/apiwatch/internal/domain/result"
)

const (
	errTimeout    = "timeout"
	errConnection = "connection error"
)

// Prober executes a single HTTP check against an endpoint. One probe is one
// attempt; retry cadence belongs to the scheduler.
type Prober struct {
	log    *zap.Logger
	client *http.Client
	cfg    HTTPConfig
}

func NewProber(log *zap.Logger, cfg HTTPConfig) *Prober {
	return &Prober{
		log:    log.With(zap.String("component", "prober")),
		client: NewHTTPClient(cfg),
		cfg:    cfg,
	}
}

// Probe issues the endpoint's request and classifies the outcome. Transport
// failures are recorded in the result, never returned as errors.
func (p *Prober) Probe(ctx context.Context, e *endpoint.Endpoint) *result.CheckResult {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = p.cfg.DefaultTimeout
	}

	res := &result.CheckResult{
		EndpointID: e.ID,
		Timestamp:  time.Now().UTC(),
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, e.Method, e.URL, nil)
	if err != nil {
		res.ErrorMessage = err.Error()
		return res
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	for k, v := range e.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		p.classify(res, err, elapsed, timeout)
		return res
	}
	defer resp.Body.Close()

	size, _ := io.Copy(io.Discard, resp.Body)
	res.ResponseTime = elapsed.Milliseconds()
	res.StatusCode = resp.StatusCode
	res.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	res.ResponseSize = size
	return res
}

// classify maps a transport failure onto the result, in priority order:
// timeout, connection failure, anything else. A timed-out probe reports the
// timeout ceiling as its latency since no response was ever received.
func (p *Prober) classify(res *result.CheckResult, err error, elapsed, timeout time.Duration) {
	switch {
	case isTimeout(err):
		res.ErrorMessage = errTimeout
		res.ResponseTime = timeout.Milliseconds()
	case isConnError(err):
		res.ErrorMessage = errConnection
		res.ResponseTime = elapsed.Milliseconds()
	default:
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		res.ErrorMessage = err.Error()
		res.ResponseTime = elapsed.Milliseconds()
	}
	p.log.Debug("probe failed",
		zap.Int64("endpoint_id", res.EndpointID),
		zap.String("error", res.ErrorMessage),
	)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isConnError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
