package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/genclm/genctl/pkg/config"
	"github.com/genclm/genctl/pkg/database"
	"github.com/genclm/genctl/pkg/launcher"
	"github.com/genclm/genctl/pkg/orchestrator"
	"github.com/genclm/genctl/pkg/session"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configFile     string
	toolConfigFile string
	mode           string
	nodes          int
	devices        int
	outputDir      string
	refModelPath   string
	checkpointPath string
	setOverrides   []string
	dryRun         bool
	jsonFormat     bool
	silent         bool
	verbose        bool
)

var Verbose bool

var rootCmd = &cobra.Command{
	Use:   "genctl",
	Short: "pre-flight validator and launcher for genc fine-tuning runs",
	Long: `genctl loads a genc training yaml, applies cli overrides, validates every
hyperparameter and cross-field constraint, then launches the external trainer.`,
	Run: runLaunch,
}

func Execute() {
	if !normalizeSilentFlag(os.Args) {
		printBanner()
	}

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// normalizeSilentFlag rewrites the single-dash spelling in place so the flag
// parser accepts it, and reports whether the flag is set at all.
func normalizeSilentFlag(args []string) bool {
	found := false
	for i, arg := range args {
		if arg == "-silent" {
			args[i] = "--silent"
		}
		if args[i] == "--silent" {
			found = true
		}
	}
	return found
}

func DebugLog(format string, args ...interface{}) {
	if Verbose {
		fmt.Printf("[DBG] "+format+"\n", args...)
	}
}

func setDebugLogFunctions() {
	config.DebugLog = DebugLog
	launcher.DebugLog = DebugLog
	orchestrator.DebugLog = DebugLog
	session.DebugLog = DebugLog
	database.DebugLog = DebugLog
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config_file", "c", "", "training config yaml (required)")
	rootCmd.PersistentFlags().StringVar(&toolConfigFile, "tool_config", "", "genctl tool config path (default: os config dir)")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "", "training mode (esft, edpo, ecpo, sft)")
	rootCmd.PersistentFlags().IntVar(&nodes, "nodes", 0, "number of nodes")
	rootCmd.PersistentFlags().IntVar(&devices, "devices", 0, "number of devices per node")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output_dir", "o", "", "run output directory")
	rootCmd.PersistentFlags().StringVar(&refModelPath, "ref_model_name_or_path", "", "reference model for preference losses")
	rootCmd.PersistentFlags().StringVar(&checkpointPath, "checkpoint_path", "", "checkpoint to resume from")
	rootCmd.PersistentFlags().StringArrayVar(&setOverrides, "set", nil, "override any config key (key=value, repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "silent mode - no banner or extra output")

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and print the trainer command without launching")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(versionCmd)
}

// cliOverrides folds the fixed flags and --set pairs into the override map the
// loader applies on top of the document. CLI values win over file values.
func cliOverrides() (map[string]string, error) {
	overrides := make(map[string]string)

	if mode != "" {
		overrides["mode"] = mode
	}
	if nodes > 0 {
		overrides["nodes"] = strconv.Itoa(nodes)
	}
	if devices > 0 {
		overrides["devices"] = strconv.Itoa(devices)
	}
	if outputDir != "" {
		overrides["output_dir"] = outputDir
	}
	if refModelPath != "" {
		overrides["ref_model_name_or_path"] = refModelPath
	}
	if checkpointPath != "" {
		overrides["checkpoint_path"] = checkpointPath
	}

	for _, kv := range setOverrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", kv)
		}
		overrides[key] = value
	}

	return overrides, nil
}

func requireConfigFile(cmd *cobra.Command) bool {
	if configFile == "" {
		color.Red("Error: -c/--config_file is required")
		cmd.Help()
		return false
	}
	return true
}

// printValidationError surfaces every collected violation, verbatim and in
// order, on stderr.
func printValidationError(err error) {
	red := color.New(color.FgRed)
	if verr, ok := err.(*config.ValidationError); ok {
		red.Fprintf(os.Stderr, "Config validation failed with %d error(s):\n", len(verr.Errors))
		for _, msg := range verr.Messages() {
			fmt.Fprintf(os.Stderr, "  - %s\n", msg)
		}
		return
	}
	red.Fprintf(os.Stderr, "Error: %v\n", err)
}

func runLaunch(cmd *cobra.Command, args []string) {
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

	result, err := orch.Launch(context.Background(), orchestrator.RunOptions{
		ConfigFile: configFile,
		Overrides:  overrides,
		DryRun:     dryRun,
	})
	if err != nil {
		if result == nil {
			printValidationError(err)
			os.Exit(1)
		}
		color.Red("Run %s failed: %v", result.RunID, err)
		os.Exit(result.ExitCode)
	}

	if dryRun {
		if !silent {
			color.Green("Config valid. Trainer command:")
		}
		fmt.Println(result.Command)
		return
	}

	if !silent {
		color.Green("Run %s completed in %v", result.RunID, result.Duration)
	}
}

func printBanner() {
	banner := color.CyanString(`
┌─┐┌─┐┌┐┌┌─┐┌┬┐┬
│ ┬├┤ ││││   │ │
└─┘└─┘┘└┘└─┘ ┴ ┴─┘
`)
	info := color.HiBlackString("pre-flight validator and launcher for genc fine-tuning runs")
	fmt.Println(banner)
	fmt.Println(info)
	fmt.Println()
}
