package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/algotutor/internal/store"
	"github.com/abhisek/algotutor/internal/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect recorded chat-turn traces (enable with ALGOTUTOR_TRACE=1)",
}

var traceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions with recorded traces",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withStore(func(st *store.Store) error {
			sessions, err := st.TraceRepo().ListTraceSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No traces recorded.")
				return nil
			}
			fmt.Printf("%-32s  %6s  %7s  %-19s\n", "Session", "Turns", "Events", "Last activity")
			fmt.Println(strings.Repeat(rule, 72))
			for _, s := range sessions {
				fmt.Printf("%-32s  %6d  %7d  %-19s\n",
					truncate(s.SessionID, 32), s.Turns, s.Events, s.Last.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		})
	},
}

var traceViewCmd = &cobra.Command{
	Use:   "view [session]",
	Short: "Print the trace of a session, or of a saved trace file with --file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var doc trace.Document
			if err := json.Unmarshal(b, &doc); err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			trace.RenderDocument(os.Stdout, doc)
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("a session ID or --file is required")
		}

		limit, _ := cmd.Flags().GetInt("limit")
		return withStore(func(st *store.Store) error {
			recs, err := st.TraceRepo().QueryTrace(cmd.Context(), args[0], store.QueryOpts{Limit: limit})
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				return fmt.Errorf("no trace for session %s", args[0])
			}
			trace.RenderDocument(os.Stdout, trace.FromRecords(args[0], recs))
			return nil
		})
	},
}

func init() {
	traceListCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	traceViewCmd.Flags().IntP("limit", "n", 0, "Maximum number of events (0 = all)")
	traceViewCmd.Flags().String("file", "", "Render a JSON trace file instead of a stored session")

	traceCmd.AddCommand(traceListCmd)
	traceCmd.AddCommand(traceViewCmd)
}
