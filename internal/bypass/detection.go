package bypass

import (
	"net/http"
	"strings"
)

// Response is the part of a probe response the detectors look at.
type Response struct {
	StatusCode int
	Header     http.Header
	// Body may be truncated; detectors only rely on the head of the page.
	Body string
}

// Detector reports whether a bot-protection layer blocked or challenged the
// request, and which vendor it was.
type Detector func(res Response) (detected bool, vendor string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
		detectRateLimit,
	}
}

// Detect runs res through detectors in order and returns the first vendor
// that matches, or "" when none does.
func Detect(res Response, detectors []Detector) string {
	for _, d := range detectors {
		if detected, vendor := d(res); detected {
			return vendor
		}
	}
	return ""
}

func header(res Response, key string) string {
	if res.Header == nil {
		return ""
	}
	return res.Header.Get(key)
}

func challengeStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusServiceUnavailable
}

func detectCloudflare(res Response) (bool, string) {
	if !challengeStatus(res.StatusCode) {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header(res, "Server")), "cloudflare") || header(res, "Cf-Mitigated") != "" {
		return true, "Cloudflare"
	}
	for _, sig := range []string{"cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare"} {
		if strings.Contains(res.Body, sig) {
			return true, "Cloudflare"
		}
	}
	return false, ""
}

func detectAkamai(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header(res, "Server")), "akamai") {
		return true, "Akamai"
	}
	// generic Akamai block page
	if strings.Contains(res.Body, "Reference #") && strings.Contains(res.Body, "Access Denied") {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header(res, "Server")), "datadome") ||
		header(res, "X-DataDome") != "" || header(res, "X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if strings.Contains(res.Body, "geo.captcha-delivery.com") || strings.Contains(res.Body, "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

func detectPerimeterX(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if header(res, "X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	for _, sig := range []string{"client.perimeterx.net", "px-captcha", "_pxBlock"} {
		if strings.Contains(res.Body, sig) {
			return true, "PerimeterX"
		}
	}
	return false, ""
}

// detectRateLimit flags platform-side throttling, which X and Instagram
// answer with a bare 429.
func detectRateLimit(res Response) (bool, string) {
	if res.StatusCode == http.StatusTooManyRequests {
		return true, "RateLimit"
	}
	return false, ""
}
