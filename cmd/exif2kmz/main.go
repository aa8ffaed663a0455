package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quidome/exif2kmz-go/pkg/config"
	"github.com/quidome/exif2kmz-go/pkg/geotag"
	"github.com/quidome/exif2kmz-go/pkg/pipeline"
	"github.com/quidome/exif2kmz-go/pkg/scan"
)

const version = "0.1.0"

type options struct {
	root       string
	output     string
	configPath string
	reader     string
	maxDepth   int
	requireGPS bool
	verbose    bool
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var cfg config.Config

	rootCmd := &cobra.Command{
		Use:     "exif2kmz",
		Short:   "Convert geotagged photos into a KMZ archive",
		Long:    "exif2kmz reads the GPS tags of every photo below a directory and writes a KML document with one placemark per photo and a path connecting them in capture order, packaged together with the photos into a KMZ archive for Google Earth.",
		Version: version,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}

			var err error
			cfg, err = resolveConfig(cmd, opts)
			if err != nil {
				return err
			}

			opts.root, err = config.ExpandPath(opts.root)
			if err != nil {
				return err
			}
			opts.output, err = config.ExpandPath(opts.output)
			if err != nil {
				return err
			}
			if strings.TrimSpace(opts.output) == "" {
				return fmt.Errorf("output name must not be empty")
			}
			return scan.ValidateRoot(opts.root)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd, opts, cfg)
		},
	}

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	defaults := config.Default()
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.root, "root", "d", "", "directory holding the photos")
	flags.StringVarP(&opts.output, "output", "o", "", "output archive name; the extension is replaced by .kmz")
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&opts.reader, "reader", defaults.Reader, "metadata reader: "+strings.Join(geotag.Backends, " or "))
	flags.IntVar(&opts.maxDepth, "max-depth", defaults.MaxDepth, "maximum recursion depth (-1 = unlimited, 0 = no recursion)")
	flags.BoolVar(&opts.requireGPS, "require-gps", defaults.RequireGPS, "skip photos without GPS position tags")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	_ = rootCmd.MarkFlagRequired("root")
	_ = rootCmd.MarkFlagRequired("output")

	return rootCmd
}

// resolveConfig layers the config file, the environment and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("reader") {
		cfg.Reader = opts.reader
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = opts.maxDepth
	}
	if flags.Changed("require-gps") {
		cfg.RequireGPS = opts.requireGPS
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options, cfg config.Config) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
	defer func() { _ = logger.Sync() }()

	backendOpts, err := cfg.BackendOptions()
	if err != nil {
		return err
	}
	reader, err := geotag.Open(cfg.Reader, backendOpts)
	if err != nil {
		logger.Error("metadata reader unavailable", zap.String("reader", cfg.Reader), zap.Error(err))
		return err
	}
	if c, ok := reader.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("close metadata reader", zap.Error(err))
			}
		}()
	}
	logger.Debug("metadata reader ready", zap.String("reader", cfg.Reader))

	kmlOpts, err := cfg.KMLOptions()
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(logger, reader, cmd.OutOrStdout(), pipeline.Params{
		Root:       opts.root,
		Output:     opts.output,
		RequireGPS: cfg.RequireGPS,
		MaxDepth:   cfg.MaxDepth,
		Extensions: cfg.Extensions,
		KML:        kmlOpts,
	})
	if _, err := runner.Run(cmd.Context()); err != nil {
		logger.Error("conversion failed", zap.Error(err))
		return err
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}
