package main

import (
	"fmt"

	"github.com/frotaops/meterguard/internal/cli"

	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the correction history",
		Long: `List applied corrections, newest first. Each entry records which field
changed, the old and new values, the heuristic used, and who applied it.`,
		RunE: runAudit,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show")

	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	ctx := cmd.Context()
	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ListRecentAuditEntries(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load audit entries: %w", err)
	}

	fmt.Println(cli.TitleStyle.Render("📋 Correction History"))

	if len(entries) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No corrections recorded yet."))
		return nil
	}

	for _, e := range entries {
		method := string(e.CorrectionMethod)
		if method == "" {
			method = "manual edit"
		}
		fmt.Printf("%s  %s  %s: %s → %s\n",
			cli.SubtleStyle.Render(e.AppliedAt.Local().Format("2006-01-02 15:04")),
			cli.BoldStyle.Render(e.VehicleCode),
			e.FieldCorrected,
			formatValue(e.OldValue),
			formatValue(e.NewValue))
		fmt.Printf("    record %s %s  %s  by %s (%s)\n",
			e.RecordDate.Format("02/01/2006"),
			e.RecordTime,
			method,
			e.AppliedBy,
			e.Source)
	}

	total, err := store.CountAuditEntries(ctx)
	if err == nil && total > len(entries) {
		fmt.Println(cli.SubtleStyle.Render(
			fmt.Sprintf("\nShowing %d of %d entries. Use --limit to see more.", len(entries), total)))
	}

	return nil
}
