package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coffersTech/seglog/internal/config"
	"github.com/coffersTech/seglog/internal/engine"
	"github.com/coffersTech/seglog/internal/slogbridge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("SEGLOG_LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	rootCmd := &cobra.Command{
		Use:          "seglog",
		Short:        "Segmented structured log writer",
		Long:         "seglog writes structured records to size-rotated segment files and keeps the log directory under its ceiling.",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRunCmd(logger))
	rootCmd.AddCommand(newInspectCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath string
	format     string
	compress   bool
	rate       int
	count      int
	duration   time.Duration
}

func newRunCmd(logger *logrus.Logger) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Write synthetic records until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			config.FromEnv(&cfg)
			if cmd.Flags().Changed("format") {
				cfg.Logger.DefaultFileType = opts.format
			}
			if cmd.Flags().Changed("compress") {
				cfg.Logger.DefaultCompress = opts.compress
			}
			return run(cmd.Context(), cfg, opts, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (defaults when empty)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "csv", "segment format: csv, bin, tlv, xlsx")
	cmd.Flags().BoolVar(&opts.compress, "compress", false, "compress sealed segments")
	cmd.Flags().IntVar(&opts.rate, "rate", 1000, "records per second")
	cmd.Flags().IntVar(&opts.count, "count", 0, "stop after this many records (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "stop after this long (0 = until interrupted)")
	return cmd
}

func run(ctx context.Context, cfg config.Config, opts runOptions, logger *logrus.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	p, err := engine.New(cfg,
		engine.WithLogger(logger),
		engine.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}
	if err := p.InitializeDefault(); err != nil {
		return err
	}
	if err := p.SetSchema("time", "level", "msg", "seq", "latency_ms", "ok"); err != nil {
		return err
	}
	if err := p.Start(); err != nil {
		return err
	}
	logger.WithField("pipeline", p.ID()).
		WithField("segment", p.CurrentSegment()).
		Infof("writing %d records/s", opts.rate)

	genErr := generate(ctx, p, opts)

	stopErr := p.Stop()
	stats := p.Stats()
	logger.WithFields(logrus.Fields{
		"published": stats.Published,
		"written":   stats.Written,
		"dropped":   stats.Dropped,
		"rotations": stats.Rotations,
	}).Info("seglog exited")

	if genErr != nil {
		return genErr
	}
	return stopErr
}

// generate publishes synthetic request logs through the slog bridge until
// ctx ends, the record budget is spent or the pipeline turns critical.
func generate(ctx context.Context, p *engine.Pipeline, opts runOptions) error {
	rate := opts.rate
	if rate <= 0 {
		rate = 1
	}
	if rate > int(time.Second) {
		rate = int(time.Second)
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	log := slog.New(slogbridge.NewHandler(p, &slogbridge.Options{Level: slog.LevelDebug}))
	levels := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

	for seq := 1; opts.count == 0 || seq <= opts.count; seq++ {
		select {
		case <-ctx.Done():
			return nil
		case <-p.Critical():
			return p.Err()
		case <-ticker.C:
		}

		lvl := levels[rand.Intn(len(levels))]
		log.Log(ctx, lvl, "request served",
			"seq", seq,
			"latency_ms", rand.Float64()*250,
			"ok", lvl < slog.LevelError)
	}
	return nil
}

// compile-time check that the pipeline can back the slog bridge
var _ slogbridge.Publisher = (*engine.Pipeline)(nil)
