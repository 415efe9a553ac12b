package main

import(
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abworrall/fluxmaps/pkg/ebins"
	"github.com/abworrall/fluxmaps/pkg/fluxmaps"
	"github.com/abworrall/fluxmaps/pkg/mapstore"
)

type options struct {
	configFile string
	foreSub    bool
	policy     string
	outDir     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "mkdatafluxmaps",
		Short: "Sum counts and exposure maps over time, and make (foreground subtracted) flux maps per energy bin",
		Args:  cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts.verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := run(opts, log); err != nil {
				log.Error("mkdatafluxmaps failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "yaml config file")
	cmd.Flags().BoolVar(&opts.foreSub, "foresub", true, "fit and subtract the foreground model")
	cmd.Flags().StringVar(&opts.policy, "nforefit", string(fluxmaps.PolicyN),
		"which foreground normalization to subtract: "+fluxmaps.ListNormPolicies())
	cmd.Flags().StringVar(&opts.outDir, "outdir", "", "dir with the per-label manifests (overrides output_dir)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	cmd.MarkFlagRequired("config")

	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

func run(opts options, log *zap.Logger) error {
	cfg, err := fluxmaps.LoadConfig(opts.configFile)
	if err != nil {
		return err
	}
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}
	if err := cfg.Finalize(opts.foreSub); err != nil {
		return fmt.Errorf("config '%s': %w", opts.configFile, err)
	}
	policy, err := fluxmaps.ParseNormPolicy(opts.policy)
	if err != nil {
		return err
	}

	// Bail before any work if this run was already done
	if fluxmaps.ReportExists(cfg.ReportPath()) {
		return fmt.Errorf("%w: '%s'", fluxmaps.ErrReportExists, cfg.ReportPath())
	}

	log.Debug("final configuration", zap.String("yaml", cfg.AsYaml()))
	log.Info("mkdatafluxmaps starting", zap.String("config", opts.configFile), zap.Bool("foresub", opts.foreSub),
		zap.String("nforefit", string(policy)), zap.Int("macro_bins", len(cfg.MacroBins)))

	p := fluxmaps.NewPipeline(cfg, mapstore.NewFITSStore(), ebins.NewFITSIndex(), log)
	p.ForeSub = opts.foreSub
	p.Policy = policy

	rows, err := p.Run()
	if err != nil {
		return err
	}

	log.Info("mkdatafluxmaps done", zap.String("report", cfg.ReportPath()), zap.Int("rows", len(rows)))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
