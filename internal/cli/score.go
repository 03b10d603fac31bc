package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"audit-readiness-service/internal/app"
	"audit-readiness-service/internal/catalog"
	"audit-readiness-service/internal/domain"
	"audit-readiness-service/internal/export"
	"audit-readiness-service/internal/infra/memory"
	"audit-readiness-service/internal/scoring"
	"github.com/spf13/cobra"
)

// NewScoreCmd scores a set of responses offline and prints an export.
func NewScoreCmd() *cobra.Command {
	var (
		input      string
		catalogSrc string
		format     string
		frameworks []string
		answers    []string
		includeAll bool
		topGaps    int
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score responses from a JSON request file or --answer flags",
		Example: `  readiness score --input request.json --format gap-analysis
  readiness score --all --answer doc-control=no --answer capa-process=2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalogFile(catalogSrc)
			if err != nil {
				return err
			}

			var req app.EvaluateRequest
			if input != "" {
				if req, err = readRequest(cmd.InOrStdin(), input); err != nil {
					return err
				}
			}
			for _, f := range frameworks {
				req.Frameworks = append(req.Frameworks, domain.Framework(f))
			}
			if includeAll {
				req.IncludeAll = true
			}
			for _, raw := range answers {
				id, value, ok := strings.Cut(raw, "=")
				if !ok || id == "" {
					return fmt.Errorf("invalid --answer %q, want id=value", raw)
				}
				req.Responses = domain.UpsertResponse(req.Responses, domain.Response{QuestionID: id, Answer: domain.ParseAnswer(value)})
			}

			service := offlineService(cat, topGaps)
			report, err := service.Evaluate(cmd.Context(), req)
			if err != nil {
				return err
			}
			body, _, err := export.Render(export.Format(format), report)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON request file with frameworks, includeAll, device and responses (- for stdin)")
	cmd.Flags().StringVar(&catalogSrc, "catalog", "", "catalog YAML file (defaults to the built-in catalog)")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "output format: json, gap-analysis, capa-plan, interview-script")
	cmd.Flags().StringSliceVar(&frameworks, "framework", nil, "framework to include (repeatable)")
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "answer as questionId=value (repeatable)")
	cmd.Flags().BoolVar(&includeAll, "all", false, "include every framework")
	cmd.Flags().IntVar(&topGaps, "top", scoring.DefaultTopGaps, "number of top gaps to highlight")
	return cmd
}

// NewClassifyCmd prints the risk classification for device attributes.
func NewClassifyCmd() *cobra.Command {
	var attrs domain.DeviceAttributes
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify device risk from its regulatory class and properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(scoring.Classify(attrs))
		},
	}
	cmd.Flags().StringVar(&attrs.FDAClass, "fda-class", "", `FDA class, e.g. "Class II"`)
	cmd.Flags().StringVar(&attrs.EUClass, "eu-class", "", `EU MDR class, e.g. "Class IIb"`)
	cmd.Flags().BoolVar(&attrs.IsSterile, "sterile", false, "device is supplied sterile")
	cmd.Flags().BoolVar(&attrs.IsMeasuring, "measuring", false, "device has a measuring function")
	cmd.Flags().BoolVar(&attrs.HasActiveComponents, "active", false, "device has active components or software")
	cmd.Flags().BoolVar(&attrs.IsDrugDevice, "drug", false, "drug-device combination")
	cmd.Flags().StringVar(&attrs.DeviceCategory, "category", "", "free-form device category")
	return cmd
}

// NewQuestionsCmd lists catalog questions for the selected frameworks.
func NewQuestionsCmd() *cobra.Command {
	var (
		catalogSrc string
		frameworks []string
		includeAll bool
	)
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List catalog questions in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalogFile(catalogSrc)
			if err != nil {
				return err
			}
			selected := make([]domain.Framework, 0, len(frameworks))
			for _, f := range frameworks {
				selected = append(selected, domain.Framework(f))
			}
			questions := catalog.Filter(cat.Questions, selected, includeAll || len(selected) == 0)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tWEIGHT\tCRITICAL\tCLAUSE\tPROMPT")
			for _, q := range questions {
				critical := ""
				if q.Critical {
					critical = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\t%s\n", q.ID, q.Type, q.Weight, critical, q.ClauseRef, q.Prompt)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&catalogSrc, "catalog", "", "catalog YAML file (defaults to the built-in catalog)")
	cmd.Flags().StringSliceVar(&frameworks, "framework", nil, "framework to include (repeatable)")
	cmd.Flags().BoolVar(&includeAll, "all", false, "include every framework")
	return cmd
}

func loadCatalogFile(path string) (domain.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, err
	}
	return catalog.Parse(data)
}

func readRequest(stdin io.Reader, path string) (app.EvaluateRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return app.EvaluateRequest{}, err
	}
	var req app.EvaluateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return app.EvaluateRequest{}, fmt.Errorf("decode request %s: %w", path, err)
	}
	return req, nil
}

// offlineService scores against a fixed catalog without any external store.
func offlineService(cat domain.Catalog, topGaps int) *app.AssessmentService {
	loader := memory.NewStaticCatalogLoader(map[string]domain.Catalog{app.DefaultCatalogID: cat})
	return app.NewAssessmentService(
		memory.NewStateStore(),
		memory.NewCatalogRepository(loader, time.Hour),
		app.WithTopGaps(topGaps),
	)
}
