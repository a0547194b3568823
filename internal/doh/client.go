package doh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// ContentType is the RFC 8484 media type for wire-format messages.
	ContentType = "application/dns-message"

	// maxMessageSize bounds the response body read from an endpoint.
	maxMessageSize = 64 * 1024

	defaultTimeout = 5 * time.Second
)

// Errors returned by lookups.
var (
	// ErrBadResponse is returned for non-200 responses and undecodable bodies.
	ErrBadResponse = errors.New("invalid DoH response")

	// ErrNoRecords is returned when the answer section has no usable record.
	ErrNoRecords = errors.New("no matching records")
)

// RcodeError is returned when the server answers with a non-success rcode.
type RcodeError struct {
	Name  string
	Rcode int
}

// Error implements the error interface.
func (e *RcodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, dns.RcodeToString[e.Rcode])
}

// Client queries one DoH endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for queries.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// NewClient creates a client for endpoint, e.g.
// "https://cloudflare-dns.com/dns-query".
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the endpoint URL.
func (c *Client) Name() string {
	return c.endpoint
}

// Exchange sends one question and returns the decoded answer message.
func (c *Client) Exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	q := new(dns.Msg)
	q.SetQuestion(dns.Fqdn(name), qtype)
	q.RecursionDesired = true
	// RFC 8484 section 4.1: use ID 0 for cache friendliness.
	q.Id = 0

	packed, err := q.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack %s query: %w", dns.TypeToString[qtype], err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(packed))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Accept", ContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMessageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	answer := new(dns.Msg)
	if err := answer.Unpack(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if answer.Rcode != dns.RcodeSuccess {
		return nil, &RcodeError{Name: name, Rcode: answer.Rcode}
	}
	return answer, nil
}

// LookupHost returns the A records of host followed by its AAAA records.
// An error is returned only when neither lookup yields an address.
func (c *Client) LookupHost(ctx context.Context, host string) ([]string, error) {
	var (
		addrs []string
		errs  []error
	)
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg, err := c.Exchange(ctx, host, qtype)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, rr := range msg.Answer {
			switch v := rr.(type) {
			case *dns.A:
				addrs = append(addrs, v.A.String())
			case *dns.AAAA:
				addrs = append(addrs, v.AAAA.String())
			}
		}
	}
	if len(addrs) > 0 {
		return addrs, nil
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, fmt.Errorf("%s: %w", host, ErrNoRecords)
}

// LookupTXT returns the TXT strings of name. Multi-string records are
// concatenated as RFC 7208 section 3.3 describes.
func (c *Client) LookupTXT(ctx context.Context, name string) ([]string, error) {
	msg, err := c.Exchange(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range msg.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoRecords)
	}
	return out, nil
}
