// Package brand holds the result types shared by the domain and social
// availability pipelines.
package brand

import (
	"fmt"
	"time"
)

// Availability is the tri-state outcome of an availability check.
type Availability int

const (
	// Unknown means the check could not reach a verdict.
	Unknown Availability = iota
	Available
	Taken
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Taken:
		return "taken"
	default:
		return "unknown"
	}
}

// MarshalText encodes the availability as its lowercase name.
func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes "available", "taken" or "unknown".
func (a *Availability) UnmarshalText(text []byte) error {
	v, err := ParseAvailability(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAvailability converts a name produced by String back into an Availability.
func ParseAvailability(s string) (Availability, error) {
	switch s {
	case "available":
		return Available, nil
	case "taken":
		return Taken, nil
	case "unknown", "":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("brand: unknown availability %q", s)
	}
}

// Platform identifies a social network probed for a handle.
type Platform string

const (
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	Twitter   Platform = "twitter"
	Pinterest Platform = "pinterest"
)

// Platforms is the fixed, ordered set of platforms every probe covers.
var Platforms = []Platform{Instagram, Facebook, Twitter, Pinterest}

// Credentials authenticate against the registrar API.
type Credentials struct {
	UserID string `json:"userId"`
	APIKey string `json:"apiKey"`
}

// Configured reports whether both halves of the credential pair are present.
func (c Credentials) Configured() bool {
	return c.UserID != "" && c.APIKey != ""
}

// DomainResult is the availability of a single brand.tld pair.
type DomainResult struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// SocialResult is the availability of a handle on one platform.
type SocialResult struct {
	Platform     Platform     `json:"platform"`
	Username     string       `json:"username"`
	Availability Availability `json:"availability"`
	Error        string       `json:"error,omitempty"`
	// StatusCode is the final HTTP status observed, 0 on network failure.
	StatusCode int    `json:"status_code"`
	BlockedBy  string `json:"blocked_by,omitempty"`
}

// Report is the merged outcome of one search.
type Report struct {
	ID        string         `json:"id"`
	Brand     string         `json:"brand"`
	Domains   []DomainResult `json:"domains"`
	Social    []SocialResult `json:"social"`
	CreatedAt time.Time      `json:"created_at"`
	Duration  time.Duration  `json:"duration"`
}
