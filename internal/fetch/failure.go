package fetch

import (
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/product-compare/internal/resilience"
)

// Reason is the failure code recorded on an error page.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonTimeout    Reason = "timeout"
	ReasonConnection Reason = "connection"
	ReasonChallenge  Reason = "challenge"
	ReasonInvalidURL Reason = "invalid_url"
	ReasonInternal   Reason = "internal"
)

// HTTPReason returns the http_<code> reason for a status code.
func HTTPReason(code int) Reason {
	return Reason(fmt.Sprintf("http_%d", code))
}

// ErrChallenge is returned by transports that reached a bot challenge they
// could not get past.
var ErrChallenge = eris.New("fetch: challenge not solved")

type outcomeKind int

const (
	outcomeOK        outcomeKind = iota
	outcomeBlocked               // 2xx body that is really a block page
	outcomeEscalate              // 403, 429, 503
	outcomeTerminal              // any other HTTP error
	outcomeTransient             // timeout or connection error
	outcomeChallenge             // anti-blocking transport failed the challenge
)

// outcome is one classified attempt.
type outcome struct {
	kind   outcomeKind
	reason Reason
	block  BlockKind
}

func classifyError(err error) outcome {
	switch {
	case eris.Is(err, ErrChallenge):
		return outcome{kind: outcomeChallenge, reason: ReasonChallenge}
	case resilience.IsTimeout(err):
		return outcome{kind: outcomeTransient, reason: ReasonTimeout}
	default:
		return outcome{kind: outcomeTransient, reason: ReasonConnection}
	}
}

func classifyResponse(resp *Response) outcome {
	if resp.StatusCode >= 400 {
		switch resp.StatusCode {
		case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return outcome{kind: outcomeEscalate, reason: HTTPReason(resp.StatusCode), block: DetectBlock(resp)}
		default:
			return outcome{kind: outcomeTerminal, reason: HTTPReason(resp.StatusCode)}
		}
	}
	if kind := DetectBlock(resp); kind != BlockNone {
		return outcome{kind: outcomeBlocked, reason: ReasonChallenge, block: kind}
	}
	return outcome{kind: outcomeOK}
}
