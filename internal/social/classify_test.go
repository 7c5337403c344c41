package social

import (
	"testing"

	"github.com/FranksOps/brandcheck/internal/brand"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		platform brand.Platform
		status   int
		body     string
		want     brand.Availability
	}{
		{"instagram soft 404", brand.Instagram, 200, "Sorry, this page isn't available.", brand.Available},
		{"instagram profile", brand.Instagram, 200, "Welcome to the profile", brand.Taken},
		{"instagram soft 404 needs the full stop", brand.Instagram, 200, "sorry, this page isn't available", brand.Taken},
		{"facebook content", brand.Facebook, 200, "This content isn't available right now", brand.Available},
		{"facebook page", brand.Facebook, 200, "This page isn't available", brand.Available},
		{"facebook profile", brand.Facebook, 200, "<title>Acme | Facebook</title>", brand.Taken},
		{"twitter missing", brand.Twitter, 200, "This account doesn't exist", brand.Available},
		{"twitter suspended", brand.Twitter, 200, "Account suspended", brand.Available},
		{"twitter profile", brand.Twitter, 200, "Acme (@acme) / X", brand.Taken},
		{"pinterest both phrases", brand.Pinterest, 200, "Oops! We can't find that page.", brand.Available},
		{"pinterest only oops", brand.Pinterest, 200, "Oops! Something went wrong.", brand.Taken},
		{"hard 404", brand.Twitter, 404, "", brand.Available},
		{"other 2xx", brand.Facebook, 204, "", brand.Taken},
		{"network failure", brand.Instagram, 0, "", brand.Unknown},
		{"redirect loop", brand.Instagram, 302, "", brand.Unknown},
		{"forbidden", brand.Facebook, 403, "page isn't available", brand.Unknown},
		{"throttled", brand.Twitter, 429, "", brand.Unknown},
		{"server error", brand.Pinterest, 500, "oops we can't find that page", brand.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.platform, tt.status, tt.body); got != tt.want {
				t.Errorf("Classify(%s, %d, %q) = %v, want %v", tt.platform, tt.status, tt.body, got, tt.want)
			}
		})
	}
}

func TestClassify_Pure(t *testing.T) {
	for i := 0; i < 50; i++ {
		if got := Classify(brand.Instagram, 200, "Sorry, this page isn't available."); got != brand.Available {
			t.Fatalf("iteration %d: got %v", i, got)
		}
	}
}

func TestProfileURL(t *testing.T) {
	tests := map[brand.Platform]string{
		brand.Instagram: "https://www.instagram.com/acme/",
		brand.Facebook:  "https://www.facebook.com/acme",
		brand.Twitter:   "https://x.com/acme",
		brand.Pinterest: "https://www.pinterest.com/acme/",
	}
	for p, want := range tests {
		if got := ProfileURL(p, "acme"); got != want {
			t.Errorf("ProfileURL(%s) = %q, want %q", p, got, want)
		}
	}
	if got := ProfileURL(brand.Twitter, "a b/c"); got != "https://x.com/a%20b%2Fc" {
		t.Errorf("expected username to be path escaped, got %q", got)
	}
}
