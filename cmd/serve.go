package cmd

import (
	"github.com/spf13/cobra"

	coremon "github.com/kilianp07/taxico2/core/monitoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline once and serve the results over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, cleanup, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()
	defer coremon.Recover()

	ctx, stop := signalContext()
	defer stop()

	svc, closeFn, err := newService(cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	svc.SetOutput(cmd.OutOrStdout())
	return svc.Serve(ctx)
}
