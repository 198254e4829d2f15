package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"syscall"
	"time"

	"github.com/MalithGihan/mindmap-service/internal/source"
	"github.com/MalithGihan/mindmap-service/internal/validate"
	"github.com/MalithGihan/mindmap-service/pkg/types"
)

const maxBody = 16 << 20

var (
	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("only http and https URLs can be fetched")
	// ErrForbiddenDestination is returned when a public-only client would dial a
	// loopback, private, link-local or otherwise non-public address.
	ErrForbiddenDestination = errors.New("destination address not allowed")
)

// Client fetches mind map datasets over HTTP.
type Client struct {
	HTTP *http.Client
}

// New returns a client that can reach any http or https address.
func New(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// NewPublic returns a client that only connects to public unicast addresses.
// The check runs on every dial, so redirects and DNS answers are covered too.
func NewPublic(timeout time.Duration) *Client {
	d := &net.Dialer{Timeout: timeout, Control: publicOnly}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	tr.DialContext = d.DialContext
	return &Client{HTTP: &http.Client{Timeout: timeout, Transport: tr}}
}

func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenDestination, address)
	}
	ip = ip.Unmap()
	if !ip.IsGlobalUnicast() || ip.IsPrivate() {
		return fmt.Errorf("%w: %s", ErrForbiddenDestination, address)
	}
	return nil
}

// CheckURL reports whether raw is an absolute http or https URL with a host.
func CheckURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedScheme, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrUnsupportedScheme
	}
	return u, nil
}

// FetchDataset GETs url and decodes a dataset. Transport failures and non-2xx
// responses are *source.FetchError; payloads failing the schema wrap
// source.ErrMalformedResponse.
func (c *Client) FetchDataset(ctx context.Context, url string) (types.Dataset, error) {
	if _, err := CheckURL(url); err != nil {
		return types.Dataset{}, &source.FetchError{URL: url, Err: err}
	}
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.Dataset{}, &source.FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return types.Dataset{}, &source.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Dataset{}, &source.FetchError{URL: url, StatusCode: resp.StatusCode}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return types.Dataset{}, &source.FetchError{URL: url, Err: err}
	}

	ds, err := validate.DecodePayload(raw)
	if err != nil {
		return types.Dataset{}, fmt.Errorf("%w: %v", source.ErrMalformedResponse, err)
	}
	return ds, nil
}
