package master

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

func ExportReportJSON(r Report) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return b, nil
}

var csvHeader = []string{"Suite", "Test", "Status", "Error", "Duration (ms)"}

// ExportReportCSV writes one row per test. Every field is quoted and embedded
// quotes are doubled.
func ExportReportCSV(r Report) string {
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	b.WriteByte('\n')
	for _, s := range r.Suites {
		for _, t := range s.Results {
			status := "FAIL"
			if t.Passed {
				status = "PASS"
			}
			row := []string{s.Name, t.TestName, status, t.Error, strconv.FormatInt(s.DurationMS, 10)}
			for i, f := range row {
				row[i] = quote(f)
			}
			b.WriteString(strings.Join(row, ","))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func mark(passed bool) string {
	if passed {
		return "✓"
	}
	return "✗"
}

// Render prints the suite table, the overall line and the recommendations.
func Render(w io.Writer, r Report) error {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Suite", "Total", "Passed", "Failed", "Pass Rate", "Duration"})
	t.SetAutoWrapText(false)
	for _, s := range r.Suites {
		t.Append([]string{
			s.Name,
			strconv.Itoa(s.Summary.Total),
			strconv.Itoa(s.Summary.Passed),
			strconv.Itoa(s.Summary.Failed),
			fmt.Sprintf("%d%%", s.Summary.PassRate),
			fmt.Sprintf("%.1fs", float64(s.DurationMS)/1000),
		})
	}
	t.SetFooter([]string{"Overall", strconv.Itoa(r.Overall.TotalTests), strconv.Itoa(r.Overall.Passed),
		strconv.Itoa(r.Overall.Failed), fmt.Sprintf("%d%%", r.Overall.PassRate), fmt.Sprintf("%.1fs", float64(r.DurationMS)/1000)})
	t.Render()

	if len(r.Recommendations) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\nRecommendations:"); err != nil {
		return err
	}
	for _, rec := range r.Recommendations {
		if _, err := fmt.Fprintf(w, "  - %s\n", rec); err != nil {
			return err
		}
	}
	return nil
}

// RenderSuite prints one row per test of a single suite.
func RenderSuite(w io.Writer, s SuiteResult) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", s.Name); err != nil {
		return err
	}
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"", "Test", "Duration", "Error"})
	t.SetAutoWrapText(false)
	t.SetColumnAlignment([]int{tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	for _, r := range s.Results {
		t.Append([]string{mark(r.Passed), r.TestName, fmt.Sprintf("%dms", r.DurationMS), r.Error})
	}
	t.Render()
	return nil
}
