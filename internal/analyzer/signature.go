package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Signature describes the text a page must contain to count as a match.
// Phrases are compared against lowercased page text, so they must be
// lowercase themselves.
type Signature struct {
	// AllOf phrases must all be present.
	AllOf []string
	// AnyOf requires at least one phrase to be present when non-empty.
	AnyOf []string
}

// Empty reports whether the signature has no phrases at all.
func (s Signature) Empty() bool {
	return len(s.AllOf) == 0 && len(s.AnyOf) == 0
}

// Matches reports whether lowerText satisfies the signature. An empty
// signature never matches.
func (s Signature) Matches(lowerText string) bool {
	if s.Empty() {
		return false
	}
	for _, phrase := range s.AllOf {
		if !strings.Contains(lowerText, phrase) {
			return false
		}
	}
	if len(s.AnyOf) == 0 {
		return true
	}
	for _, phrase := range s.AnyOf {
		if strings.Contains(lowerText, phrase) {
			return true
		}
	}
	return false
}

// Evidence returns the phrases of s found in lowerText, in declaration order.
func (s Signature) Evidence(lowerText string) []string {
	var found []string
	for _, group := range [][]string{s.AllOf, s.AnyOf} {
		for _, phrase := range group {
			if strings.Contains(lowerText, phrase) {
				found = append(found, phrase)
			}
		}
	}
	return found
}

// Page is a fetched page prepared for signature matching.
type Page struct {
	Lower string
	Title string
}

// Inspect lowercases body once and pulls out its <title>. Truncated or
// malformed HTML is fine; the title is empty when none can be found.
func Inspect(body string) Page {
	p := Page{Lower: strings.ToLower(body)}
	if body == "" {
		return p
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return p
	}
	p.Title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	return p
}
