// Package export renders scored assessments for people outside the tool:
// a versioned JSON document and markdown gap analysis, CAPA plan and
// auditor interview script.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"audit-readiness-service/internal/app"
)

// ReportVersion is embedded in every JSON export so consumers can detect format changes.
const ReportVersion = "1.2"

// Format names an export flavour.
type Format string

const (
	FormatJSON        Format = "json"
	FormatGapAnalysis Format = "gap-analysis"
	FormatCAPAPlan    Format = "capa-plan"
	FormatInterview   Format = "interview-script"
)

// ErrUnknownFormat is returned for formats Render does not know.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists every supported export.
func Formats() []Format {
	return []Format{FormatJSON, FormatGapAnalysis, FormatCAPAPlan, FormatInterview}
}

// Render produces the export body and its content type.
func Render(format Format, r app.Report) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		data, err := JSON(r)
		return data, "application/json", err
	case FormatGapAnalysis:
		return []byte(GapAnalysis(r)), "text/markdown; charset=utf-8", nil
	case FormatCAPAPlan:
		return []byte(CAPAPlan(r)), "text/markdown; charset=utf-8", nil
	case FormatInterview:
		return []byte(InterviewScript(r)), "text/markdown; charset=utf-8", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type document struct {
	ReportVersion string `json:"reportVersion"`
	app.Report
}

// JSON encodes the full report with its reportVersion.
func JSON(r app.Report) ([]byte, error) {
	data, err := json.MarshalIndent(document{ReportVersion: ReportVersion, Report: r}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

func header(sb *strings.Builder, title string, r app.Report) {
	res := r.Result
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("- **Score**: %d%% (%s)\n", res.Score, res.Status))
	if res.CriticalHit {
		sb.WriteString(fmt.Sprintf("- **Raw percentage**: %d%% (capped by critical failures)\n", res.RawPercentage))
	}
	sb.WriteString(fmt.Sprintf("- **Overall risk**: %s\n", res.RiskAssessment.OverallRisk))
	sb.WriteString(fmt.Sprintf("- **Maturity**: %s\n", res.RiskAssessment.Maturity))
	if r.Classification != nil {
		sb.WriteString(fmt.Sprintf("- **Device risk level**: %s\n", r.Classification.Level))
	}
	sb.WriteString(fmt.Sprintf("- **Answered**: %d of %d questions\n", res.AnsweredCount, res.QuestionCount))
	if !r.GeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("- **Generated**: %s\n", r.GeneratedAt.Format("2006-01-02 15:04 MST")))
	}
	sb.WriteString("\n")
}

func formatWeight(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
