package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/algotutor/internal/server"
	"github.com/abhisek/algotutor/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tutor over HTTP and WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Addr
		}
		origins, _ := cmd.Flags().GetStringSlice("allow-origin")

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		var traces store.TraceRepo
		if cfg.Trace.Enabled {
			traces = rt.store.TraceRepo()
		}
		return server.New(rt.tutor, traces, origins).Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides ALGOTUTOR_ADDR, default :8080)")
	serveCmd.Flags().StringSlice("allow-origin", nil, "Allowed CORS/WebSocket origin; repeat for several (default: any)")
}
