package fetch

import (
	"net/http"
	"strings"
)

// BlockKind describes the kind of block detected.
type BlockKind string

const (
	BlockNone       BlockKind = ""
	BlockCloudflare BlockKind = "cloudflare"
	BlockAkamai     BlockKind = "akamai"
	BlockDataDome   BlockKind = "datadome"
	BlockPerimeterX BlockKind = "perimeterx"
	BlockCaptcha    BlockKind = "captcha"
	BlockPhrase     BlockKind = "phrase"
	BlockJSShell    BlockKind = "js_shell"
	BlockShortBody  BlockKind = "short_body"
)

// Only the head of the body is scanned for phrases.
const phraseScanBytes = 5000

// Bodies shorter than this on a 200 are treated as block pages.
const minBodyBytes = 500

var blockPhrases = []string{
	"access denied",
	"unusual traffic",
	"verify you are human",
	"are you a robot",
	"robot check",
	"please enable javascript",
	"challenge-running",
}

// DetectBlock checks a response for signs of anti-bot protection. Vendor
// signatures are checked on any status; phrase and size heuristics only on
// non-error responses.
func DetectBlock(resp *Response) BlockKind {
	if resp == nil {
		return BlockNone
	}
	if kind := vendorBlock(resp); kind != BlockNone {
		return kind
	}
	if resp.StatusCode >= 400 {
		return BlockNone
	}

	head := resp.Body
	if len(head) > phraseScanBytes {
		head = head[:phraseScanBytes]
	}
	lower := strings.ToLower(string(head))

	if strings.Contains(lower, "captcha") {
		return BlockCaptcha
	}
	for _, p := range blockPhrases {
		if strings.Contains(lower, p) {
			return BlockPhrase
		}
	}

	if len(resp.Body) < 2000 {
		full := strings.ToLower(string(resp.Body))
		if strings.Contains(full, "<noscript") && strings.Contains(full, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(full, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	if resp.StatusCode == http.StatusOK && len(resp.Body) < minBodyBytes {
		return BlockShortBody
	}
	return BlockNone
}

func vendorBlock(resp *Response) BlockKind {
	server := strings.ToLower(resp.Header.Get("Server"))
	body := strings.ToLower(string(resp.Body))

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if strings.Contains(server, "cloudflare") || resp.Header.Get("Cf-Mitigated") != "" {
			return BlockCloudflare
		}
	}
	if strings.Contains(body, "cf-browser-verification") ||
		strings.Contains(body, "cf-turnstile") ||
		strings.Contains(body, "checking your browser") ||
		strings.Contains(body, "attention required! | cloudflare") {
		return BlockCloudflare
	}

	if resp.StatusCode == http.StatusForbidden {
		if strings.Contains(server, "akamai") ||
			(strings.Contains(body, "reference #") && strings.Contains(body, "access denied")) {
			return BlockAkamai
		}
		if strings.Contains(server, "datadome") || resp.Header.Get("X-DataDome") != "" {
			return BlockDataDome
		}
		if resp.Header.Get("X-Px-Captcha") != "" {
			return BlockPerimeterX
		}
	}
	if strings.Contains(body, "geo.captcha-delivery.com") {
		return BlockDataDome
	}
	if strings.Contains(body, "px-captcha") {
		return BlockPerimeterX
	}
	return BlockNone
}
