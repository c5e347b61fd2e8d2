package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxico2/app"
	"github.com/kilianp07/taxico2/config"
	coremon "github.com/kilianp07/taxico2/core/monitoring"
	"github.com/kilianp07/taxico2/infra/logger"
	"github.com/kilianp07/taxico2/infra/monitoring"
)

var (
	cfgPath string
	strict  bool
)

var rootCmd = &cobra.Command{
	Use:          "taxico2",
	Short:        "Taxi trip CO2 enrichment and temporal aggregation",
	SilenceUsage: true,
	RunE:         runReport,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the pipeline and write the configured outputs",
	RunE:  runReport,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	for _, c := range []*cobra.Command{rootCmd, reportCmd} {
		c.Flags().BoolVar(&strict, "strict", false, "abort on the first invalid record")
	}
	rootCmd.AddCommand(reportCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// setup loads the configuration and initializes logging and monitoring. The
// returned cleanup flushes both.
func setup(cmd *cobra.Command, full bool) (*config.Config, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if f := cmd.Flags().Lookup("strict"); f != nil && f.Changed {
		cfg.Engine.Strict = strict
	}
	if full {
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, nil, err
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		logger.New("main").Warnf("sentry disabled: %v", err)
		mon = coremon.NopMonitor{}
	}
	coremon.Init(mon)
	cleanup := func() {
		coremon.Flush(2 * time.Second)
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
		}
	}
	return cfg, cleanup, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newService(cfg *config.Config) (*app.Service, func(), error) {
	svc, err := app.New(cfg)
	if err != nil {
		coremon.CaptureRun(err, "", "init")
		return nil, nil, err
	}
	closeFn := func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}
	return svc, closeFn, nil
}

func runReport(cmd *cobra.Command, args []string) error {
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
	_, err = svc.RunOnce(ctx)
	return err
}
