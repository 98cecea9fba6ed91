package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/frotaops/meterguard/internal/cli"
	"github.com/frotaops/meterguard/internal/engine"
	"github.com/frotaops/meterguard/internal/model"

	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect meter reading anomalies",
		Long: `Run a full analysis pass over the usage records: compute per-vehicle
baseline intervals, flag anomalous odometer and horimeter readings, and
propose corrections where a heuristic applies.

The pass is read-only; use 'meterguard fix' to apply corrections.`,
		RunE: runAnalyze,
	}

	cmd.Flags().StringP("vehicle", "v", "", "Limit the report to a single vehicle code")
	cmd.Flags().Bool("json", false, "Emit the analysis as JSON instead of styled output")
	cmd.Flags().Bool("baselines", false, "Print the per-vehicle baseline table")

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	vehicle, _ := cmd.Flags().GetString("vehicle")
	asJSON, _ := cmd.Flags().GetBool("json")
	showBaselines, _ := cmd.Flags().GetBool("baselines")

	ctx := cmd.Context()
	eng, store, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	analysis, err := eng.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if vehicle != "" {
		analysis = filterAnalysis(analysis, vehicle)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysisReport(analysis))
	}

	printAnalysis(analysis, showBaselines)
	return nil
}

// filterAnalysis narrows an analysis to one vehicle.
func filterAnalysis(a *engine.Analysis, vehicle string) *engine.Analysis {
	out := &engine.Analysis{Baselines: map[string]model.VehicleBaseline{}}
	if b, ok := a.Baselines[vehicle]; ok {
		out.Baselines[vehicle] = b
	}
	for _, r := range a.Records {
		if r.VehicleCode == vehicle {
			out.Records = append(out.Records, r)
		}
	}
	for _, an := range a.Anomalies {
		if an.Record.VehicleCode == vehicle {
			out.Anomalies = append(out.Anomalies, an)
		}
	}
	return out
}

// jsonAnomaly is the wire shape for one anomaly in --json output.
type jsonAnomaly struct {
	VehicleCode      string             `json:"vehicle_code"`
	Date             string             `json:"date"`
	Time             string             `json:"time,omitempty"`
	RowIndex         string             `json:"row_index"`
	Kind             model.IssueKind    `json:"kind"`
	Severity         model.Severity     `json:"severity"`
	MeterPrevious    float64            `json:"meter_previous"`
	MeterCurrent     float64            `json:"meter_current"`
	Interval         float64            `json:"interval"`
	BaselineInterval float64            `json:"baseline_interval"`
	DeviationPercent float64            `json:"deviation_percent"`
	Suggestion       *jsonSuggestion    `json:"suggestion,omitempty"`
}

type jsonSuggestion struct {
	Field         model.CorrectionField  `json:"field"`
	ProposedValue float64                `json:"proposed_value"`
	Method        model.CorrectionMethod `json:"method"`
	Rationale     string                 `json:"rationale"`
}

type jsonReport struct {
	Records   int                              `json:"records"`
	Vehicles  int                              `json:"vehicles"`
	Baselines map[string]model.VehicleBaseline `json:"baselines"`
	Anomalies []jsonAnomaly                    `json:"anomalies"`
}

func analysisReport(a *engine.Analysis) jsonReport {
	report := jsonReport{
		Records:   len(a.Records),
		Vehicles:  len(a.Baselines),
		Baselines: a.Baselines,
		Anomalies: make([]jsonAnomaly, 0, len(a.Anomalies)),
	}
	for _, an := range a.Anomalies {
		ja := jsonAnomaly{
			VehicleCode:      an.Record.VehicleCode,
			Date:             an.Record.Date.Format("2006-01-02"),
			Time:             an.Record.TimeOfDay,
			RowIndex:         an.Record.RowIndex,
			Kind:             an.Kind,
			Severity:         an.Severity,
			MeterPrevious:    an.Record.MeterPrevious,
			MeterCurrent:     an.Record.MeterCurrent,
			Interval:         an.Interval,
			BaselineInterval: an.Baseline.AverageInterval,
			DeviationPercent: an.DeviationPercent,
		}
		if an.Suggestion != nil {
			ja.Suggestion = &jsonSuggestion{
				Field:         an.Suggestion.Field,
				ProposedValue: an.Suggestion.ProposedValue,
				Method:        an.Suggestion.Method,
				Rationale:     an.Suggestion.Rationale,
			}
		}
		report.Anomalies = append(report.Anomalies, ja)
	}
	return report
}

func printAnalysis(a *engine.Analysis, showBaselines bool) {
	fmt.Println(cli.TitleStyle.Render("🔍 Meter Reading Analysis"))
	fmt.Printf("Records analyzed: %s   Vehicles: %s   Anomalies: %s\n\n",
		cli.BoldStyle.Render(fmt.Sprintf("%d", len(a.Records))),
		cli.BoldStyle.Render(fmt.Sprintf("%d", len(a.Baselines))),
		cli.BoldStyle.Render(fmt.Sprintf("%d", len(a.Anomalies))))

	if showBaselines {
		printBaselines(a.Baselines)
	}

	if len(a.Anomalies) == 0 {
		fmt.Println(cli.SuccessStyle.Render("✓ No anomalies detected"))
		return
	}

	for _, an := range a.Anomalies {
		printAnomaly(an)
	}

	pending := a.Pending()
	manual := a.Unsuggested()
	fmt.Printf("\n%s suggested fixes, %s need manual review\n",
		cli.SuccessStyle.Render(fmt.Sprintf("%d", len(pending))),
		cli.WarningStyle.Render(fmt.Sprintf("%d", len(manual))))
	if len(pending) > 0 {
		fmt.Println(cli.SubtleStyle.Render("Run 'meterguard fix --all' to apply all suggested corrections."))
	}
}

func printBaselines(baselines map[string]model.VehicleBaseline) {
	codes := make([]string, 0, len(baselines))
	for code := range baselines {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Println(cli.BoldStyle.Render("Baselines"))
	for _, code := range codes {
		b := baselines[code]
		if !b.HasBaseline() {
			fmt.Printf("  %-12s %s\n", code, cli.SubtleStyle.Render("insufficient data"))
			continue
		}
		fmt.Printf("  %-12s avg interval %s over %d records (%s)\n",
			code, formatValue(b.AverageInterval), b.RecordCount, b.Category)
	}
	fmt.Println()
}

func printAnomaly(an model.Anomaly) {
	r := an.Record
	header := fmt.Sprintf("[%s] %s  %s row %s  (%s)",
		cli.RenderSeverity(an.Severity),
		cli.BoldStyle.Render(r.VehicleCode),
		r.Date.Format("02/01/2006"),
		r.RowIndex,
		an.Kind)
	fmt.Println(header)
	fmt.Printf("  readings %s → %s  interval %s",
		formatValue(r.MeterPrevious), formatValue(r.MeterCurrent), formatValue(an.Interval))
	if an.Baseline.HasBaseline() {
		fmt.Printf("  (baseline %s, deviation %.0f%%)", formatValue(an.Baseline.AverageInterval), an.DeviationPercent)
	}
	fmt.Println()

	if an.Suggestion != nil {
		fmt.Printf("  %s set %s = %s  %s\n",
			cli.SuccessStyle.Render("fix:"),
			an.Suggestion.Field,
			formatValue(an.Suggestion.ProposedValue),
			cli.SubtleStyle.Render(an.Suggestion.Rationale))
	} else {
		fmt.Printf("  %s\n", cli.WarningStyle.Render("no automatic fix; manual review required"))
	}
}

// formatValue prints a meter value without trailing decimal noise.
func formatValue(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
