package social

import (
	"net/url"

	"github.com/FranksOps/brandcheck/internal/analyzer"
	"github.com/FranksOps/brandcheck/internal/brand"
)

// soft404 holds the "profile not found" text each platform renders with a
// 200 status. These literals track live markup; changing one is a behaviour
// change, not a fix.
var soft404 = map[brand.Platform]analyzer.Signature{
	brand.Instagram: {AllOf: []string{"sorry, this page isn't available."}},
	brand.Facebook:  {AnyOf: []string{"content isn't available", "page isn't available"}},
	brand.Twitter:   {AnyOf: []string{"this account doesn't exist", "account suspended"}},
	brand.Pinterest: {AllOf: []string{"oops", "we can't find that page"}},
}

// ProfileURL returns the canonical public profile URL for username on p.
func ProfileURL(p brand.Platform, username string) string {
	u := url.PathEscape(username)
	switch p {
	case brand.Instagram:
		return "https://www.instagram.com/" + u + "/"
	case brand.Facebook:
		return "https://www.facebook.com/" + u
	case brand.Twitter:
		return "https://x.com/" + u
	case brand.Pinterest:
		return "https://www.pinterest.com/" + u + "/"
	default:
		return ""
	}
}
