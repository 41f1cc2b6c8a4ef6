package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/genclm/genctl/pkg/orchestrator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective training config",
	Long: `Print the effective config after defaults, cli overrides, and the documented
corrections have been applied - exactly what the trainer will receive.`,
	Run: runShow,
}

func init() {
	showCmd.Flags().BoolVarP(&jsonFormat, "json", "j", false, "print as json instead of yaml")
}

func runShow(cmd *cobra.Command, args []string) {
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

	out, err := yaml.Marshal(cfg)
	if err != nil {
		color.Red("Failed to render config: %v", err)
		os.Exit(1)
	}

	if jsonFormat {
		// round-trip through yaml so the json keys match the document schema
		var doc map[string]interface{}
		if err := yaml.Unmarshal(out, &doc); err != nil {
			color.Red("Failed to render config: %v", err)
			os.Exit(1)
		}
		jsonOut, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			color.Red("Failed to render config: %v", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonOut))
		return
	}

	fmt.Print(string(out))
}
