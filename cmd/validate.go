package cmd

import (
	"os"

	"github.com/genclm/genctl/pkg/orchestrator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a training config without launching",
	Long: `Validate a training config against the full schema: type coercion, defaults,
and every cross-field constraint. All violations are reported in one pass.`,
	Run: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) {
	if !requireConfigFile(cmd) {
		os.Exit(1)
	}

	Verbose = verbose
	if verbose {
		setDebugLogFunctions()
	}

	overrides, err := cliOverrides()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	orch, err := orchestrator.NewOrchestrator(toolConfigFile)
	if err != nil {
		color.Red("Failed to initialize: %v", err)
		os.Exit(1)
	}

	cfg, warnings, err := orch.LoadRun(configFile, overrides)
	for _, w := range warnings {
		color.Yellow("Warning: %s", w)
	}
	if err != nil {
		printValidationError(err)
		os.Exit(1)
	}

	if !silent {
		color.Green("Config valid: %s mode on %s, world size %d, stopping at %s",
			cfg.Mode, cfg.ModelNameOrPath, cfg.WorldSize(), cfg.StoppingCondition())
	}
}
