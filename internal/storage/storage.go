// Package storage defines where search reports and registrar credentials are
// kept between runs.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
)

// Keys under which credentials are persisted. They match the key-value pair
// the browser client keeps locally.
const (
	KeyUserID = "resellerclub_userid"
	KeyAPIKey = "resellerclub_apikey"
)

// Filter allows querying for specific reports.
type Filter struct {
	// Brand matches case-insensitively against Report.Brand.
	Brand  string
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether r passes the Brand and Since conditions.
func (f Filter) Match(r *brand.Report) bool {
	if f.Brand != "" && !strings.EqualFold(r.Brand, strings.TrimSpace(f.Brand)) {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies Offset and Limit to reports that are already newest first.
func (f Filter) Page(reports []*brand.Report) []*brand.Report {
	if f.Offset > 0 {
		if f.Offset >= len(reports) {
			return []*brand.Report{}
		}
		reports = reports[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(reports) {
		reports = reports[:f.Limit]
	}
	return reports
}

// Backend stores and queries search reports. Query returns newest first.
type Backend interface {
	Save(ctx context.Context, report *brand.Report) error
	Query(ctx context.Context, filter Filter) ([]*brand.Report, error)
	Close() error
}

// CredentialStore persists the registrar credential pair. LoadCredentials
// returns a zero value and no error when nothing has been saved.
type CredentialStore interface {
	LoadCredentials(ctx context.Context) (brand.Credentials, error)
	SaveCredentials(ctx context.Context, creds brand.Credentials) error
}
