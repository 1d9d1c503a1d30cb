package fetch

import (
	"context"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	utls "github.com/refraction-networking/utls"
	"github.com/rotisserie/eris"
)

// Response is the raw result of one transport attempt.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs one GET. Errors are reserved for transport-level
// failures; HTTP error statuses come back as a Response.
type Transport interface {
	Name() string
	Get(ctx context.Context, url string, headers http.Header) (*Response, error)
}

// HTTPTransport is a Transport backed by an *http.Client.
type HTTPTransport struct {
	name    string
	client  *http.Client
	maxBody int64
}

// NewHTTPTransport wraps client. maxBody caps the bytes read per response.
func NewHTTPTransport(name string, client *http.Client, maxBody int64) *HTTPTransport {
	if maxBody <= 0 {
		maxBody = 2 << 20
	}
	return &HTTPTransport{name: name, client: client, maxBody: maxBody}
}

// NewPlainTransport returns a standard net/http transport.
func NewPlainTransport(timeout time.Duration, maxBody int64) *HTTPTransport {
	return NewHTTPTransport("plain", &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}, maxBody)
}

// NewStealthTransport returns a transport that presents a Chrome TLS
// ClientHello and keeps cookies across attempts, so challenge cookies set on
// one attempt are replayed on the next.
func NewStealthTransport(timeout time.Duration, maxBody int64) *HTTPTransport {
	return newStealthTransport(timeout, maxBody, nil)
}

// newStealthTransport verifies servers against roots, or the system pool
// when roots is nil.
func newStealthTransport(timeout time.Duration, maxBody int64, roots *x509.CertPool) *HTTPTransport {
	jar, _ := cookiejar.New(nil)
	return NewHTTPTransport("stealth", &http.Client{
		Timeout:   timeout,
		Transport: chromeTLSTransport(roots),
		Jar:       jar,
	}, maxBody)
}

func chromeTLSTransport(roots *x509.CertPool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// The uTLS conn is not a *tls.Conn, so net/http cannot speak h2 on it.
	transport.ForceAttemptHTTP2 = false
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}

	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
		if err != nil {
			_ = tcpConn.Close()
			return nil, eris.Wrap(err, "fetch: chrome hello spec")
		}
		for _, ext := range spec.Extensions {
			if alpn, ok := ext.(*utls.ALPNExtension); ok {
				alpn.AlpnProtocols = []string{"http/1.1"}
			}
		}

		uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host, RootCAs: roots}, utls.HelloCustom)
		if err := uConn.ApplyPreset(&spec); err != nil {
			_ = tcpConn.Close()
			return nil, eris.Wrap(err, "fetch: apply chrome preset")
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, eris.Wrap(err, "fetch: utls handshake")
		}
		return uConn, nil
	}
	return transport
}

// Name returns the transport label used in logs and metrics.
func (t *HTTPTransport) Name() string { return t.name }

// Get issues a GET with headers and reads up to maxBody bytes.
func (t *HTTPTransport) Get(ctx context.Context, url string, headers http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: %s get", t.name)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: %s read body", t.name)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
