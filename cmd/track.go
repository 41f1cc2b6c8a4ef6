package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/genclm/genctl/pkg/database"
	"github.com/genclm/genctl/pkg/orchestrator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	trackStatus string
	trackMode   string
	trackAll    bool
	trackExport bool
)

var trackCmd = &cobra.Command{
	Use:   "track [run-id]",
	Short: "Query the run tracking database",
	Long:  `Query the run tracking database for a specific run or all tracked runs`,
	Run:   runTrack,
}

func init() {
	trackCmd.Flags().StringVar(&trackStatus, "status", "", "filter by status (submitted, running, completed, failed)")
	trackCmd.Flags().StringVar(&trackMode, "mode-filter", "", "filter by training mode (esft, edpo, ecpo, sft)")
	trackCmd.Flags().BoolVar(&trackAll, "all", false, "query all runs")
	trackCmd.Flags().BoolVar(&trackExport, "export", false, "re-index all tracked runs into elasticsearch")
}

func runTrack(cmd *cobra.Command, args []string) {
	if !trackAll && !trackExport && len(args) == 0 {
		color.Red("Error: either provide a run id or use --all")
		cmd.Help()
		os.Exit(1)
	}

	if trackAll && len(args) > 0 {
		color.Red("Error: cannot use both a run id and --all together")
		cmd.Help()
		os.Exit(1)
	}

	Verbose = verbose
	if verbose {
		setDebugLogFunctions()
	}

	orch, err := orchestrator.NewOrchestrator(toolConfigFile)
	if err != nil {
		color.Red("Failed to initialize: %v", err)
		os.Exit(1)
	}

	db := orch.GetDB()
	if db == nil || !db.IsEnabled() {
		color.Red("Error: run tracking database is not enabled. Please enable it in the genctl config")
		os.Exit(1)
	}

	if trackExport {
		count, err := orch.ExportRuns(context.Background())
		if err != nil {
			color.Red("Export failed: %v", err)
			os.Exit(1)
		}
		color.Green("Exported %d run(s) to elasticsearch", count)
		return
	}

	if trackStatus != "" {
		trackStatus = strings.ToUpper(trackStatus)
	}

	var records []database.RunRecord

	if trackAll {
		records, err = db.QueryRuns(trackMode, trackStatus)
		if err != nil {
			color.Red("Failed to query database: %v", err)
			os.Exit(1)
		}
	} else {
		record, err := db.QueryRun(args[0])
		if err != nil {
			color.Red("Failed to query database: %v", err)
			os.Exit(1)
		}
		records = append(records, *record)
	}

	if len(records) == 0 {
		color.Yellow("[INF] No tracked runs matched.")
		os.Exit(0)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, color.CyanString("RUN_ID\tMODE\tMODEL\tWORLD\tSTATUS\tSUBMITTED\tUPDATED"))
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range records {
		statusColor := color.GreenString
		switch r.Status {
		case database.StatusFailed:
			statusColor = color.RedString
		case database.StatusSubmitted, database.StatusRunning:
			statusColor = color.YellowString
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%s\t%s\t%s\n",
			r.RunID,
			r.Mode,
			r.Model,
			r.Nodes,
			r.Devices,
			statusColor(r.Status),
			r.SubmittedAt.Format("2006-01-02 15:04:05"),
			r.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	color.Green("\nTotal records: %d", len(records))
}
