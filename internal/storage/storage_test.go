package storage

import (
	"testing"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
)

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	r := &brand.Report{Brand: "Acme", CreatedAt: now}

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"brand case insensitive", Filter{Brand: " acme "}, true},
		{"other brand", Filter{Brand: "globex"}, false},
		{"since past", Filter{Since: &past}, true},
		{"since future", Filter{Since: &future}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(r); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Page(t *testing.T) {
	var reports []*brand.Report
	for _, id := range []string{"a", "b", "c", "d"} {
		reports = append(reports, &brand.Report{ID: id})
	}

	got := Filter{Offset: 1, Limit: 2}.Page(reports)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("unexpected page: %v", ids(got))
	}
	if got := (Filter{Offset: 10}).Page(reports); len(got) != 0 {
		t.Errorf("expected empty page past the end, got %v", ids(got))
	}
	if got := (Filter{}).Page(reports); len(got) != 4 {
		t.Errorf("expected all reports without paging, got %v", ids(got))
	}
}

func ids(reports []*brand.Report) []string {
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.ID)
	}
	return out
}
