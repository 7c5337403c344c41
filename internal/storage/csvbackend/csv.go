package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order. The available_* columns are for
// spreadsheet readers; the *_json columns are what Query decodes.
var headers = []string{
	"id",
	"brand",
	"created_at",
	"duration_ms",
	"available_domains",
	"available_handles",
	"domains_json",
	"social_json",
}

// New creates a CSV-backed storage.Backend appending to filePath.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: open %s: %w", filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: stat: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, report *brand.Report) error {
	domainsJSON, err := json.Marshal(report.Domains)
	if err != nil {
		return fmt.Errorf("csvbackend: encode domains: %w", err)
	}
	socialJSON, err := json.Marshal(report.Social)
	if err != nil {
		return fmt.Errorf("csvbackend: encode social: %w", err)
	}

	var domains, handles []string
	for _, d := range report.Domains {
		if d.Available {
			domains = append(domains, d.Domain)
		}
	}
	for _, s := range report.Social {
		if s.Availability == brand.Available {
			handles = append(handles, string(s.Platform))
		}
	}

	record := []string{
		report.ID,
		report.Brand,
		report.CreatedAt.Format(time.RFC3339Nano),
		strconv.FormatInt(report.Duration.Milliseconds(), 10),
		strings.Join(domains, " "),
		strings.Join(handles, " "),
		string(domainsJSON),
		string(socialJSON),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csvbackend: seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("csvbackend: write: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csvbackend: write: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*brand.Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: seek: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*brand.Report{}, nil
		}
		return nil, fmt.Errorf("csvbackend: read header: %w", err)
	}

	matched := []*brand.Report{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: read: %w", err)
		}

		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		createdAt, _ := time.Parse(time.RFC3339Nano, record[2])
		durationMs, _ := strconv.ParseInt(record[3], 10, 64)

		res := &brand.Report{
			ID:        record[0],
			Brand:     record[1],
			CreatedAt: createdAt,
			Duration:  time.Duration(durationMs) * time.Millisecond,
		}
		if err := json.Unmarshal([]byte(record[6]), &res.Domains); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(record[7]), &res.Social); err != nil {
			continue
		}

		if filter.Match(res) {
			matched = append(matched, res)
		}
	}

	slices.SortStableFunc(matched, func(a, b *brand.Report) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return filter.Page(matched), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
