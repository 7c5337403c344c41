package social

import (
	"net/http"
	"strings"

	"github.com/FranksOps/brandcheck/internal/brand"
)

// Classify decides handle availability from a probe response. It is a pure
// function of its inputs:
//   - 404 is Available
//   - 2xx is Available when the body carries the platform's soft-404 text,
//     Taken otherwise
//   - anything else, including status 0 for network failures, is Unknown
func Classify(p brand.Platform, status int, body string) brand.Availability {
	return classifyLower(p, status, strings.ToLower(body))
}

func classifyLower(p brand.Platform, status int, lowerBody string) brand.Availability {
	switch {
	case status == http.StatusNotFound:
		return brand.Available
	case status >= 200 && status < 300:
		if soft404[p].Matches(lowerBody) {
			return brand.Available
		}
		return brand.Taken
	default:
		return brand.Unknown
	}
}
