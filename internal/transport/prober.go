package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultUserAgent is sent with every probe.
	DefaultUserAgent = "waypoint/1.0 (+https://github.com/nao1215/waypoint)"

	// maxProbeRedirects bounds redirect chains followed by a probe.
	maxProbeRedirects = 10

	// maxProbeBody is the most a GET probe reads before closing.
	maxProbeBody = 64 * 1024
)

// Target is what a Prober checks.
type Target struct {
	// URL is the absolute address to request.
	URL string

	// Host overrides the Host header ("host" or "host:port"). The TLS
	// server name is Host without the port. It is used when URL names an
	// IP literal.
	Host string
}

// Prober checks whether a target answers.
// Probe returns nil on apparent success and an error wrapping ErrNetwork
// otherwise.
type Prober interface {
	Probe(ctx context.Context, target Target) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, target Target) error

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, target Target) error {
	return f(ctx, target)
}

// HTTPProber probes targets with an HTTP HEAD request, falling back to GET
// when the server rejects HEAD. Any status below 400 counts as success.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// ProberOption configures an HTTPProber.
type ProberOption func(*HTTPProber)

// WithHTTPClient sets the client used for probes, e.g. one that dials
// through a SOCKS5 proxy.
func WithHTTPClient(client *http.Client) ProberOption {
	return func(p *HTTPProber) {
		if client != nil {
			p.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with probes.
func WithUserAgent(ua string) ProberOption {
	return func(p *HTTPProber) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// NewHTTPProber creates an HTTPProber. The default client keeps no cookies
// and follows up to ten redirects.
func NewHTTPProber(opts ...ProberOption) *HTTPProber {
	p := &HTTPProber{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: limitRedirects,
		},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxProbeRedirects {
		return http.ErrUseLastResponse
	}
	return nil
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, target Target) error {
	client := p.clientFor(target.Host)

	status, err := p.do(ctx, client, http.MethodHead, target)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = p.do(ctx, client, http.MethodGet, target)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("%w: unexpected status %d", ErrNetwork, status)
	}
	return nil
}

func (p *HTTPProber) do(ctx context.Context, client *http.Client, method string, target Target) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target.URL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	if target.Host != "" {
		req.Host = target.Host
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBody)) //nolint:errcheck // drain for reuse

	return resp.StatusCode, nil
}

// clientFor returns a client whose TLS server name is host. When host is
// empty or the transport cannot be cloned, the shared client is returned.
func (p *HTTPProber) clientFor(host string) *http.Client {
	if host == "" {
		return p.client
	}
	base, ok := p.client.Transport.(*http.Transport)
	if !ok {
		return p.client
	}

	tr := base.Clone()
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	tr.TLSClientConfig.ServerName = serverName(host)
	tr.DisableKeepAlives = true

	return &http.Client{
		Transport:     tr,
		CheckRedirect: p.client.CheckRedirect,
		Timeout:       p.client.Timeout,
	}
}

// serverName strips the port from a Host header value.
func serverName(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}
