package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gacha-lab/internal/ingest"
	"gacha-lab/internal/workspace"
)

var validateCmd = &cobra.Command{
	Use:   "validate [document]",
	Short: "Check that a workspace document is ready to calculate",
	Long: `Parses the document and walks the wizard steps in order, reporting the
first step that cannot be entered.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ws, err := ingest.ParseFile(args[0])
	if err != nil {
		return err
	}

	for _, step := range []workspace.Step{workspace.StepMaterials, workspace.StepProducts, workspace.StepCalculate} {
		if err := ws.ValidateStep(step); err != nil {
			return fmt.Errorf("cannot enter %s step: %w", step, err)
		}
	}

	snap := ws.Snapshot()
	units, cost := snap.Totals()
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d categories, %d material units, total cost %.2f\n",
		len(snap.Categories), units, cost)
	return nil
}
