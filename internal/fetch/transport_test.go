package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helloRecorder captures the ClientHello of every TLS handshake a test
// server accepts.
type helloRecorder struct {
	mu     sync.Mutex
	hellos []*tls.ClientHelloInfo
}

func (r *helloRecorder) record(h *tls.ClientHelloInfo) (*tls.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hellos = append(r.hellos, h)
	return nil, nil
}

func (r *helloRecorder) last() *tls.ClientHelloInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.hellos) == 0 {
		return nil
	}
	return r.hellos[len(r.hellos)-1]
}

func newTLSServer(t *testing.T, h http.Handler) (*httptest.Server, *helloRecorder, *x509.CertPool) {
	t.Helper()
	rec := &helloRecorder{}
	srv := httptest.NewUnstartedServer(h)
	srv.TLS = &tls.Config{GetConfigForClient: rec.record}
	srv.StartTLS()
	t.Cleanup(srv.Close)

	roots := x509.NewCertPool()
	roots.AddCert(srv.Certificate())
	return srv, rec, roots
}

func isGREASE(v uint16) bool {
	return v&0x0f0f == 0x0a0a && v>>8 == v&0xff
}

func TestStealthTransport_ChromeHandshake(t *testing.T) {
	t.Parallel()

	srv, rec, roots := newTLSServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "HTTP/1.1", r.Proto)
		assert.Equal(t, "Mozilla/5.0 test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))

	tr := newStealthTransport(5*time.Second, 0, roots)
	assert.Equal(t, "stealth", tr.Name())

	resp, err := tr.Get(context.Background(), srv.URL, http.Header{"User-Agent": {"Mozilla/5.0 test"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html><body>ok</body></html>", string(resp.Body))
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))

	hello := rec.last()
	require.NotNil(t, hello)
	assert.Equal(t, []string{"http/1.1"}, hello.SupportedProtos)

	var grease bool
	for _, suite := range hello.CipherSuites {
		if isGREASE(suite) {
			grease = true
		}
	}
	assert.True(t, grease, "chrome hello carries a GREASE cipher suite")
}

func TestStealthTransport_ReplaysCookies(t *testing.T) {
	t.Parallel()

	srv, _, roots := newTLSServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("cf_clearance"); err != nil {
			http.SetCookie(w, &http.Cookie{Name: "cf_clearance", Value: "token", Path: "/"})
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("cleared"))
	}))

	tr := newStealthTransport(5*time.Second, 0, roots)

	first, err := tr.Get(context.Background(), srv.URL+"/p/1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, first.StatusCode)

	second, err := tr.Get(context.Background(), srv.URL+"/p/1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, "cleared", string(second.Body))
}

func TestStealthTransport_RejectsUntrustedCertificate(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTLSServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tr := newStealthTransport(5*time.Second, 0, x509.NewCertPool())
	_, err := tr.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch: utls handshake")
}

func TestHTTPTransport_CapsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	tr := NewPlainTransport(5*time.Second, 10)
	resp, err := tr.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", tr.Name())
	assert.Len(t, resp.Body, 10)
}

func TestClassifyBrowserError(t *testing.T) {
	t.Parallel()

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		err    error
		reason Reason
		kind   outcomeKind
	}{
		{
			name:   "deadline is a timeout",
			ctx:    expired,
			err:    context.DeadlineExceeded,
			reason: ReasonTimeout,
			kind:   outcomeTransient,
		},
		{
			name:   "unresolvable host",
			ctx:    context.Background(),
			err:    browserErr("page load error net::ERR_NAME_NOT_RESOLVED"),
			reason: ReasonConnection,
			kind:   outcomeTransient,
		},
		{
			name:   "refused connection",
			ctx:    context.Background(),
			err:    browserErr("page load error net::ERR_CONNECTION_REFUSED"),
			reason: ReasonConnection,
			kind:   outcomeTransient,
		},
		{
			name:   "unreachable address",
			ctx:    context.Background(),
			err:    browserErr("page load error net::ERR_ADDRESS_UNREACHABLE"),
			reason: ReasonConnection,
			kind:   outcomeTransient,
		},
		{
			name:   "anything else is an unsolved challenge",
			ctx:    context.Background(),
			err:    browserErr("could not find node with selector html"),
			reason: ReasonChallenge,
			kind:   outcomeChallenge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyBrowserError(tt.ctx, tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.reason, classifyError(got).reason)
			assert.Equal(t, tt.kind, classifyError(got).kind)
		})
	}
}

type browserErr string

func (e browserErr) Error() string { return string(e) }
