package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/frotaops/meterguard/internal/cli"
	"github.com/frotaops/meterguard/internal/engine"
	"github.com/frotaops/meterguard/internal/model"
	"github.com/frotaops/meterguard/internal/service"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func fixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Apply corrections to anomalous meter readings",
		Long: `Apply suggested corrections produced by the analysis pass, or set a
field manually for a single record.

Every applied correction writes an audit entry recording the old and new
values. Use 'meterguard audit' to review the correction history.`,
		RunE: runFix,
	}

	cmd.Flags().Bool("all", false, "Apply every suggested correction")
	cmd.Flags().StringP("row", "r", "", "Row index of a single record to fix")
	cmd.Flags().String("field", "", "Field for a manual fix (previous or current)")
	cmd.Flags().Float64("value", 0, "Value for a manual fix")
	cmd.Flags().StringP("user", "u", "", "Operator name recorded in the audit trail (default: OS user)")
	cmd.Flags().Bool("dry-run", false, "Show what would be applied without writing")

	return cmd
}

func runFix(cmd *cobra.Command, _ []string) error {
	all, _ := cmd.Flags().GetBool("all")
	row, _ := cmd.Flags().GetString("row")
	field, _ := cmd.Flags().GetString("field")
	value, _ := cmd.Flags().GetFloat64("value")
	user, _ := cmd.Flags().GetString("user")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if !all && row == "" {
		return fmt.Errorf("specify --all or --row <index>")
	}
	if all && row != "" {
		return fmt.Errorf("--all and --row are mutually exclusive")
	}
	if field != "" && row == "" {
		return fmt.Errorf("--field requires --row")
	}

	appliedBy := currentUser(user)

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

	if all {
		return fixAll(cmd, eng, analysis.Pending(), appliedBy, dryRun)
	}
	return fixOne(cmd, eng, analysis.Anomalies, row, field, value, appliedBy, dryRun)
}

func fixAll(cmd *cobra.Command, eng *engine.Engine, pending []model.Anomaly, appliedBy string, dryRun bool) error {
	if len(pending) == 0 {
		fmt.Println(cli.SuccessStyle.Render("✓ Nothing to fix"))
		return nil
	}

	if dryRun {
		fmt.Println(cli.TitleStyle.Render("Corrections that would be applied:"))
		for _, an := range pending {
			printAnomaly(an)
		}
		return nil
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Applying corrections...[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	result := eng.ApplyAll(cmd.Context(), pending, appliedBy, func(_, _ int, res service.ApplyResult) {
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
		if res.Err != nil {
			slog.Warn("Correction failed",
				"vehicle", res.VehicleCode,
				"row", res.RowIndex,
				"error", res.Err)
		}
	})

	fmt.Printf("\n%s corrections applied, %s failed in %s\n",
		cli.SuccessStyle.Render(fmt.Sprintf("%d", result.Fixed)),
		cli.ErrorStyle.Render(fmt.Sprintf("%d", result.Errors)),
		result.Duration.Round(time.Millisecond))
	if result.Errors > 0 {
		return fmt.Errorf("%d corrections failed", result.Errors)
	}
	return nil
}

func fixOne(cmd *cobra.Command, eng *engine.Engine, anomalies []model.Anomaly, row, field string, value float64, appliedBy string, dryRun bool) error {
	var target *model.Anomaly
	for i := range anomalies {
		if anomalies[i].Record.RowIndex == row {
			target = &anomalies[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no anomaly found for row %q; run 'meterguard analyze' to list flagged rows", row)
	}

	if dryRun {
		printAnomaly(*target)
		return nil
	}

	ctx := cmd.Context()

	var res service.ApplyResult
	if field != "" {
		cf := model.CorrectionField(field)
		if cf != model.FieldPrevious && cf != model.FieldCurrent {
			return fmt.Errorf("invalid field %q: must be previous or current", field)
		}
		res = eng.ApplyManual(ctx, *target, cf, value, appliedBy)
	} else {
		res = eng.ApplySuggestion(ctx, *target, appliedBy)
	}

	if res.Err != nil {
		return fmt.Errorf("failed to apply correction: %w", res.Err)
	}

	for name, storeErr := range res.StoreErrors {
		fmt.Println(cli.WarningStyle.Render(
			fmt.Sprintf("⚠ secondary store %s failed: %v", name, storeErr)))
	}
	fmt.Println(cli.SuccessStyle.Render(
		fmt.Sprintf("✓ Corrected %s row %s", target.Record.VehicleCode, row)))
	return nil
}
