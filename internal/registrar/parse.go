package registrar

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/FranksOps/brandcheck/internal/brand"
)

// maxResponseBytes bounds how much of a registrar response is decoded.
const maxResponseBytes = 1 << 20

// domainStatus is one entry of the registrar's availability map.
type domainStatus struct {
	Status   string `json:"status"`
	ClassKey string `json:"classkey,omitempty"`
}

// decodeAvailability parses {"<brand>.<tld>": {"status": ..., "classkey": ...}}.
// Keys are lowercased. Entries that are not objects are skipped, so they read
// as missing rather than failing the whole batch.
func decodeAvailability(r io.Reader) (map[string]domainStatus, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r, maxResponseBytes)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("registrar response decode failed: %w", err)
	}

	entries := make(map[string]domainStatus, len(raw))
	for key, msg := range raw {
		var st domainStatus
		if err := json.Unmarshal(msg, &st); err != nil {
			continue
		}
		entries[strings.ToLower(key)] = st
	}
	return entries, nil
}

// classify maps each requested domain onto its registrar entry.
func classify(domains []string, entries map[string]domainStatus) []brand.DomainResult {
	results := make([]brand.DomainResult, len(domains))
	for i, d := range domains {
		res := brand.DomainResult{Domain: d}
		st, ok := entries[d]
		switch {
		case !ok:
			res.Error = ErrMsgNoData
		case st.Status == "available":
			res.Available = true
		case st.Status == "error":
			res.Error = ErrMsgAPIError
		}
		results[i] = res
	}
	return results
}
