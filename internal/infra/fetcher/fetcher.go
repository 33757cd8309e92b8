package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"pagefeed/internal/domain/entity"
	"pagefeed/internal/observability/metrics"
	"pagefeed/internal/resilience/circuitbreaker"
	"pagefeed/internal/resilience/retry"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// failedURLTTL is how long a permanently failed URL is remembered.
	failedURLTTL = 10 * time.Minute

	// failedURLCapacity bounds the failed-URL set.
	failedURLCapacity = 2048

	// charsetSniffWindow is how much of the body is examined for a
	// <meta charset> declaration when the header carries none.
	charsetSniffWindow = 4096
)

// ErrRangeNotSupported is returned by GetRange when the origin ignores the
// Range header and serves the full representation.
var ErrRangeNotSupported = errors.New("origin does not support range requests")

var metaCharsetPattern = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_-]+)`)

// Options adjusts a single fetch.
type Options struct {
	// Discovery applies the shorter probe timeout and the wider probe gap.
	Discovery bool
}

// HeadReport carries the observations a caller can read without consuming
// the body.
type HeadReport struct {
	Status        int
	EffectiveURL  string // final URL after redirects
	ContentType   string
	ContentLength int64
	LastModified  time.Time
	Charset       string
}

// Body is a fully read response.
type Body struct {
	Data   []byte
	Report HeadReport
}

// Fetcher performs all outbound HTTP for the service. One instance is shared
// process-wide: it owns the pooled HTTP client, the rate gates, the per-URL
// circuit breakers, and the failed-URL set.
//
// Thread safety: Fetcher is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	cfg         FetchConfig
	gate        *rate.Limiter // every outbound start waits here
	probeGate   *rate.Limiter // discovery probes additionally wait here
	breakers    *circuitbreaker.Registry
	retryConfig retry.Config
	failed      *expirable.LRU[string, int]
	logger      *slog.Logger
}

// New creates a Fetcher. The HTTP client follows at most cfg.MaxRedirects
// redirects and revalidates every hop against the SSRF guard.
func New(cfg FetchConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	f := &Fetcher{
		cfg:         cfg,
		gate:        rate.NewLimiter(rate.Every(cfg.MinGap), 1),
		probeGate:   rate.NewLimiter(rate.Every(cfg.DiscoveryMinGap), 1),
		breakers:    circuitbreaker.NewRegistry(circuitbreaker.OriginConfig("origin")),
		retryConfig: retry.OriginFetchConfig(),
		failed:      expirable.NewLRU[string, int](failedURLCapacity, nil, failedURLTTL),
		logger:      logger,
	}

	f.client = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			// リダイレクト先も毎回SSRF検証する
			if err := validateURL(req.URL.String(), cfg.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target rejected: %w", err)
			}
			return nil
		},
	}

	return f
}

// GetBody fetches the URL and returns the full body with its report.
// The call is rate-gated, retried per the origin policy, and circuit-broken
// per absolute URL. Permanent 4xx responses are remembered for 10 minutes
// and short-circuit without network I/O.
func (f *Fetcher) GetBody(ctx context.Context, urlStr string, opts Options) (*Body, error) {
	if err := validateURL(urlStr, f.cfg.DenyPrivateIPs); err != nil {
		return nil, err
	}

	if status, ok := f.failed.Get(urlStr); ok {
		return nil, entity.NewStatusError(entity.KindOriginClient4xx, urlStr, status, "recently failed, not re-fetched")
	}

	cb := f.breakers.For(urlStr)
	start := time.Now()

	var body *Body
	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		result, err := cb.Execute(func() (interface{}, error) {
			if err := f.waitGate(ctx, opts.Discovery); err != nil {
				return nil, err
			}
			return f.doGet(ctx, urlStr, opts)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				f.logger.Warn("origin circuit open, request rejected",
					slog.String("url", urlStr),
					slog.String("state", cb.State().String()))
			}
			return err
		}
		body = result.(*Body)
		return nil
	})

	if retryErr != nil {
		err := f.classify(urlStr, retryErr)
		if entity.IsKind(err, entity.KindOriginBlocked) {
			metrics.RecordCircuitRejection()
		}
		metrics.RecordOriginFetch(string(entity.KindOf(err)), time.Since(start))
		metrics.UpdateOpenCircuits(f.breakers.OpenCount())
		return nil, err
	}
	metrics.RecordOriginFetch("success", time.Since(start))
	return body, nil
}

// Head issues a HEAD request and returns the report. HEAD is a cheap probe;
// it is rate-gated and circuit-broken but not retried.
func (f *Fetcher) Head(ctx context.Context, urlStr string) (*HeadReport, error) {
	if err := validateURL(urlStr, f.cfg.DenyPrivateIPs); err != nil {
		return nil, err
	}

	cb := f.breakers.For(urlStr)
	result, err := cb.Execute(func() (interface{}, error) {
		if err := f.waitGate(ctx, false); err != nil {
			return nil, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, urlStr, nil)
		if err != nil {
			return nil, err
		}
		f.applyBrowserHeaders(req)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

		report := f.buildReport(resp, nil)
		if resp.StatusCode < 200 || resp.StatusCode >= 400 {
			return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return &report, nil
	})
	if err != nil {
		return nil, f.classify(urlStr, err)
	}
	return result.(*HeadReport), nil
}

// GetRange fetches at most firstBytes bytes using a Range request. Origins
// that ignore the Range header yield ErrRangeNotSupported.
func (f *Fetcher) GetRange(ctx context.Context, urlStr string, firstBytes int64) (*Body, error) {
	if firstBytes <= 0 {
		return nil, fmt.Errorf("firstBytes must be positive, got %d", firstBytes)
	}
	if err := validateURL(urlStr, f.cfg.DenyPrivateIPs); err != nil {
		return nil, err
	}

	cb := f.breakers.For(urlStr)
	result, err := cb.Execute(func() (interface{}, error) {
		if err := f.waitGate(ctx, false); err != nil {
			return nil, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		f.applyBrowserHeaders(req)
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", firstBytes-1))

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusPartialContent:
			data, err := f.readBody(resp, firstBytes)
			if err != nil {
				return nil, err
			}
			return &Body{Data: data, Report: f.buildReport(resp, data)}, nil
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, firstBytes))
			return nil, ErrRangeNotSupported
		default:
			return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
	})
	if err != nil {
		if errors.Is(err, ErrRangeNotSupported) {
			return nil, err
		}
		return nil, f.classify(urlStr, err)
	}
	return result.(*Body), nil
}

// MarkFailed records the URL in the failed-URL set. Discovery uses this for
// candidates whose body failed validation.
func (f *Fetcher) MarkFailed(urlStr string, status int) {
	f.failed.Add(urlStr, status)
}

// RecentlyFailed reports whether the URL is in the failed-URL set.
func (f *Fetcher) RecentlyFailed(urlStr string) bool {
	return f.failed.Contains(urlStr)
}

// OpenCircuits returns the number of URLs whose breaker is currently open.
func (f *Fetcher) OpenCircuits() int { return f.breakers.OpenCount() }

// TrackedCircuits returns the number of per-URL breakers in the registry.
func (f *Fetcher) TrackedCircuits() int { return f.breakers.Len() }

// waitGate honors the process-wide minimum interval between request starts.
// Discovery probes also wait on the wider probe gate so strategy chains do
// not hammer the origin. Waiters wake in arrival order.
func (f *Fetcher) waitGate(ctx context.Context, discovery bool) error {
	if err := f.gate.Wait(ctx); err != nil {
		return err
	}
	if discovery {
		if err := f.probeGate.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// doGet performs one GET attempt without retry or circuit breaking.
func (f *Fetcher) doGet(ctx context.Context, urlStr string, opts Options) (*Body, error) {
	timeout := f.cfg.Timeout
	if opts.Discovery {
		timeout = f.cfg.DiscoveryTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	f.applyBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// ボディは読み捨てて接続を再利用可能にする
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	data, err := f.readBody(resp, f.cfg.MaxBodySize)
	if err != nil {
		return nil, err
	}

	return &Body{Data: data, Report: f.buildReport(resp, data)}, nil
}

// readBody reads the response body up to maxBytes, decoding the negotiated
// content codings.
func (f *Fetcher) readBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	var reader io.Reader = io.LimitReader(resp.Body, maxBytes+1)

	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer func() { _ = gz.Close() }()
		reader = io.LimitReader(gz, maxBytes+1)
	case "deflate":
		fl := flate.NewReader(reader)
		defer func() { _ = fl.Close() }()
		reader = io.LimitReader(fl, maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", maxBytes)
	}
	return data, nil
}

// buildReport assembles the observable response metadata. When data is
// non-nil the first bytes are sniffed for a <meta charset> declaration.
func (f *Fetcher) buildReport(resp *http.Response, data []byte) HeadReport {
	report := HeadReport{
		Status:        resp.StatusCode,
		ContentLength: resp.ContentLength,
	}

	if resp.Request != nil && resp.Request.URL != nil {
		report.EffectiveURL = resp.Request.URL.String()
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, params, err := mime.ParseMediaType(contentType); err == nil {
		report.ContentType = mediaType
		report.Charset = strings.ToLower(params["charset"])
	} else {
		report.ContentType = contentType
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			report.LastModified = t
		}
	}

	if report.Charset == "" && len(data) > 0 {
		window := data
		if len(window) > charsetSniffWindow {
			window = window[:charsetSniffWindow]
		}
		if m := metaCharsetPattern.FindSubmatch(window); m != nil {
			report.Charset = strings.ToLower(string(m[1]))
		}
	}

	return report
}

// classify maps a raw failure onto the error taxonomy. Permanent 4xx
// statuses also enter the failed-URL set so the next caller inside the TTL
// fails without network I/O.
func (f *Fetcher) classify(urlStr string, err error) error {
	var fe *entity.FeedError
	if errors.As(err, &fe) {
		return err
	}
	var ve *entity.ValidationError
	if errors.As(err, &ve) {
		return err
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return entity.NewError(entity.KindOriginBlocked, urlStr, err)
	}

	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		if retry.IsPermanentStatus(httpErr.StatusCode) {
			f.failed.Add(urlStr, httpErr.StatusCode)
			return entity.NewStatusError(entity.KindOriginClient4xx, urlStr, httpErr.StatusCode, httpErr.Message)
		}
		if httpErr.StatusCode >= 500 {
			return entity.NewStatusError(entity.KindOriginServer5xx, urlStr, httpErr.StatusCode, httpErr.Message)
		}
		return entity.NewStatusError(entity.KindOriginClient4xx, urlStr, httpErr.StatusCode, httpErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return entity.NewError(entity.KindOriginTimeout, urlStr, err)
	}

	return entity.NewError(entity.KindOriginUnreachable, urlStr, err)
}

func isTimeout(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}
	return false
}

func hostnameOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
