package fetch

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

const filler = "This product page lists the full specification sheet, pricing details, " +
	"warranty terms and delivery options for customers in every region. "

// htmlPage wraps body in a document large enough to pass the short-body check.
func htmlPage(title, body string) string {
	return "<html><head><title>" + title + "</title></head><body>" + body +
		"<p class=\"filler\">" + strings.Repeat(filler, 5) + "</p></body></html>"
}

type fakeCall struct {
	url string
	ua  string
}

// fakeTransport is a scripted Transport.
type fakeTransport struct {
	name    string
	respond func(call int) (*Response, error)

	mu    sync.Mutex
	calls []fakeCall
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Get(_ context.Context, url string, h http.Header) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{url: url, ua: h.Get("User-Agent")})
	n := len(f.calls)
	f.mu.Unlock()
	return f.respond(n)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func ok(body string) (*Response, error) {
	return &Response{StatusCode: 200, Header: http.Header{}, Body: []byte(body)}, nil
}

func status(code int) (*Response, error) {
	return &Response{StatusCode: code, Header: http.Header{}, Body: []byte(htmlPage("error", "<h1>error</h1>"))}, nil
}

func noSleep(context.Context, time.Duration) bool { return true }

func contextDeadline() error { return context.DeadlineExceeded }
