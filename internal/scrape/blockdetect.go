package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot block detected.
type BlockType string

const (
	BlockNone         BlockType = ""
	BlockVerification BlockType = "verification"
	BlockCaptcha      BlockType = "captcha"
	BlockJSShell      BlockType = "js_shell"
)

// DetectBlock checks a portal response for signs of anti-bot protection.
// The listing portals serve a human-verification interstitial (安全验证)
// instead of a 4xx once they dislike the traffic.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	lower := strings.ToLower(string(body))

	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		return true, BlockVerification
	}

	// Verification interstitial markers.
	if strings.Contains(lower, "安全验证") ||
		strings.Contains(lower, "访问验证") ||
		strings.Contains(lower, "verify.fang.com") {
		return true, BlockVerification
	}

	// Captcha markers.
	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "滑动验证") ||
		strings.Contains(lower, "拖动滑块") {
		return true, BlockCaptcha
	}

	// JS-only shell: tiny body that immediately bounces the browser.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
