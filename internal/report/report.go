// Package report renders a search report for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
)

// Counts tallies verdicts for one pipeline.
type Counts struct {
	Available int `json:"available"`
	Taken     int `json:"taken"`
	Unknown   int `json:"unknown"`
}

// Total is the number of results counted.
func (c Counts) Total() int {
	return c.Available + c.Taken + c.Unknown
}

// Summary is a report plus verdict counts.
type Summary struct {
	Report    *brand.Report  `json:"report"`
	Domains   Counts         `json:"domains"`
	Social    Counts         `json:"social"`
	BlockedBy map[string]int `json:"blocked_by"`
}

// Summarize counts verdicts in r. A domain result carrying an error counts
// as unknown, since its availability flag was not confirmed by the registrar.
func Summarize(r *brand.Report) Summary {
	s := Summary{
		Report:    r,
		BlockedBy: make(map[string]int),
	}
	if r == nil {
		return s
	}

	for _, d := range r.Domains {
		switch {
		case d.Error != "":
			s.Domains.Unknown++
		case d.Available:
			s.Domains.Available++
		default:
			s.Domains.Taken++
		}
	}

	for _, sr := range r.Social {
		switch sr.Availability {
		case brand.Available:
			s.Social.Available++
		case brand.Taken:
			s.Social.Taken++
		default:
			s.Social.Unknown++
		}
		if sr.BlockedBy != "" {
			s.BlockedBy[sr.BlockedBy]++
		}
	}

	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

var funcs = map[string]any{
	"stamp": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	"round": func(d time.Duration) time.Duration { return d.Round(time.Millisecond) },
	"domainVerdict": func(d brand.DomainResult) string {
		switch {
		case d.Error != "":
			return "unknown"
		case d.Available:
			return "available"
		default:
			return "taken"
		}
	},
}

const textTmpl = `Brand Availability: {{.Report.Brand}}
------------------------------
Checked:   {{stamp .Report.CreatedAt}} ({{round .Report.Duration}})
Report ID: {{.Report.ID}}

Domains ({{.Domains.Available}} available, {{.Domains.Taken}} taken, {{.Domains.Unknown}} unknown)
{{- range .Report.Domains}}
  {{printf "%-32s" .Domain}} {{printf "%-10s" (domainVerdict .)}}{{with .Error}} {{.}}{{end}}
{{- else}}
  None
{{- end}}

Social ({{.Social.Available}} available, {{.Social.Taken}} taken, {{.Social.Unknown}} unknown)
{{- range .Report.Social}}
  {{printf "%-32s" (printf "%s/%s" .Platform .Username)}} {{printf "%-10s" .Availability.String}}{{with .Error}} {{.}}{{end}}{{with .BlockedBy}} (blocked by {{.}}){{end}}
{{- else}}
  None
{{- end}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if summary.Report == nil {
		return fmt.Errorf("report: nothing to render")
	}

	t, err := template.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}

	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Brand Availability: {{.Report.Brand}}</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
  .available { color: green; }
  .taken { color: #b00; }
  .unknown { color: #a60; }
</style>
</head>
<body>
  <h1>Brand Availability: {{.Report.Brand}}</h1>
  <p><strong>Checked:</strong> {{stamp .Report.CreatedAt}} ({{round .Report.Duration}})</p>

  <div class="stat-card">
    <div>Domains Available</div>
    <div class="stat-val">{{.Domains.Available}} / {{.Domains.Total}}</div>
  </div>
  <div class="stat-card">
    <div>Handles Available</div>
    <div class="stat-val">{{.Social.Available}} / {{.Social.Total}}</div>
  </div>
  <div class="stat-card">
    <div>Unable to Check</div>
    <div class="stat-val" style="color: {{if gt .Social.Unknown 0}}red{{else}}green{{end}};">{{.Social.Unknown}}</div>
  </div>

  <h3>Domains</h3>
  <table>
    <tr><th>Domain</th><th>Status</th><th>Note</th></tr>
    {{- range .Report.Domains}}
    {{- $v := domainVerdict .}}
    <tr><td>{{.Domain}}</td><td class="{{$v}}">{{$v}}</td><td>{{.Error}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>

  <h3>Social Handles</h3>
  <table>
    <tr><th>Platform</th><th>Username</th><th>Status</th><th>Note</th></tr>
    {{- range .Report.Social}}
    <tr><td>{{.Platform}}</td><td>{{.Username}}</td><td class="{{.Availability.String}}">{{.Availability.String}}</td><td>{{.Error}}{{with .BlockedBy}} (blocked by {{.}}){{end}}</td></tr>
    {{- else}}
    <tr><td colspan="4">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a standalone HTML page. Brand and usernames are user
// input, so html/template does the escaping.
func WriteHTML(w io.Writer, summary Summary) error {
	if summary.Report == nil {
		return fmt.Errorf("report: nothing to render")
	}

	t, err := htmltemplate.New("htmlReport").Funcs(funcs).Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}

	return nil
}
