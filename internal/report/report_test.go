package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
)

func sample() *brand.Report {
	return &brand.Report{
		ID:    "r1",
		Brand: "acme",
		Domains: []brand.DomainResult{
			{Domain: "acme.com", Available: true},
			{Domain: "acme.in", Available: false},
			{Domain: "acme.io", Available: false, Error: "No data returned for domain"},
		},
		Social: []brand.SocialResult{
			{Platform: brand.Instagram, Username: "acme", Availability: brand.Available, StatusCode: 200},
			{Platform: brand.Facebook, Username: "acme", Availability: brand.Taken, StatusCode: 200},
			{Platform: brand.Twitter, Username: "acme", Availability: brand.Unknown, Error: "Unable to check", BlockedBy: "Cloudflare", StatusCode: 403},
			{Platform: brand.Pinterest, Username: "acme", Availability: brand.Unknown, Error: "Unable to check"},
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1234 * time.Millisecond,
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample())

	if s.Domains != (Counts{Available: 1, Taken: 1, Unknown: 1}) {
		t.Errorf("unexpected domain counts: %+v", s.Domains)
	}
	if s.Social != (Counts{Available: 1, Taken: 1, Unknown: 2}) {
		t.Errorf("unexpected social counts: %+v", s.Social)
	}
	if s.Social.Total() != 4 {
		t.Errorf("expected 4 social results, got %d", s.Social.Total())
	}
	if s.BlockedBy["Cloudflare"] != 1 || len(s.BlockedBy) != 1 {
		t.Errorf("unexpected blocked by: %v", s.BlockedBy)
	}
}

func TestSummarize_Nil(t *testing.T) {
	s := Summarize(nil)
	if s.Domains.Total() != 0 || s.Social.Total() != 0 {
		t.Errorf("expected zero counts, got %+v", s)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Summarize(sample())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"brand": "acme"`, `"availability": "unknown"`, `"blocked_by": "Cloudflare"`, `"available": 1`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected JSON to contain %s", want)
		}
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, Summarize(sample())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Brand Availability: acme",
		"Checked:   2026-03-01 12:00:00 (1.234s)",
		"Domains (1 available, 1 taken, 1 unknown)",
		"Social (1 available, 1 taken, 2 unknown)",
		"No data returned for domain",
		"(blocked by Cloudflare)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected text to contain %q\n%s", want, out)
		}
	}
}

func TestWriteHTML(t *testing.T) {
	r := sample()
	r.Brand = "<script>alert(1)</script>"

	var buf bytes.Buffer
	if err := WriteHTML(&buf, Summarize(r)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "<script>alert(1)</script>") {
		t.Errorf("expected brand to be escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("expected escaped brand in output")
	}
	if !strings.Contains(out, "Cloudflare") {
		t.Errorf("expected HTML to contain Cloudflare")
	}
	if !strings.Contains(out, `<td class="available">available</td>`) {
		t.Errorf("expected available domain row")
	}
}

func TestWrite_NilReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, Summary{}); err == nil {
		t.Error("expected error for empty summary")
	}
	if err := WriteHTML(&buf, Summary{}); err == nil {
		t.Error("expected error for empty summary")
	}
}
