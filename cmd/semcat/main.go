// Package main provides the semcat binary entry point.
// Semcat turns DICOM study metadata into a DCAT catalog graph and serves
// pattern queries over it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semcat/api"
	"github.com/c360studio/semcat/config"
	"github.com/c360studio/semcat/export"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semcat"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "DICOM metadata catalog",
		Long: `Semcat extracts metadata from DICOM files, groups it into studies and
series, and publishes the result as a DCAT catalog graph.

It provides:
- Batch ingest of files or directory trees
- Export as N-Triples, Turtle or JSON-LD
- An HTTP service for dataset listing and pattern queries`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		ingestCmd(&flags),
		exportCmd(&flags),
		queryCmd(&flags),
		serveCmd(&flags),
		configCmd(&flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// setup loads configuration and builds the application.
func setup(ctx context.Context, flags *globalFlags) (*App, error) {
	logger := newLogger(flags.logLevel)
	cfg, err := config.NewLoader(logger).Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	return NewApp(ctx, cfg, logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// createOutput opens path for writing, or stdout when path is empty or "-".
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func ingestCmd(flags *globalFlags) *cobra.Command {
	var (
		reportPath string
		outPath    string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest DICOM files or directories into the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Ingest(ctx, args)
			if err != nil {
				return err
			}
			app.logger.Info("Ingest complete",
				"files", report.Files,
				"datasets", len(report.Datasets),
				"skipped", len(report.Manifest),
				"mapping_version", report.MappingVersion)

			if outPath != "" {
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				w, err := createOutput(outPath)
				if err != nil {
					return err
				}
				if err := app.exporter.WriteTo(w, report.Graph, f); err != nil {
					_ = w.Close()
					return err
				}
				if err := w.Close(); err != nil {
					return err
				}
			}
			return writeReport(reportPath, report)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "-", "Where to write the JSON ingest report")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Also write the batch graph to this file")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatNTriples), "Graph format (ntriples, turtle, jsonld)")
	return cmd
}

func writeReport(path string, report any) error {
	w, err := createOutput(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func exportCmd(flags *globalFlags) *cobra.Command {
	var (
		outPath string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored catalog graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			app, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.cfg.Storage.Path == "" {
				app.logger.Warn("No storage.path configured, the catalog is empty")
			}
			g, err := app.CatalogGraph()
			if err != nil {
				return err
			}
			w, err := createOutput(outPath)
			if err != nil {
				return err
			}
			if err := app.exporter.WriteTo(w, g, f); err != nil {
				_ = w.Close()
				return err
			}
			return w.Close()
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "Output file")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatTurtle), "Graph format (ntriples, turtle, jsonld)")
	return cmd
}

func queryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query <pattern>",
		Short: "Run a pattern query against the stored catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.queries.RunPattern(ctx, args[0])
			if err != nil {
				return err
			}
			return writeReport("-", api.NewResults(res))
		},
	}
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var watchDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Close()

			app.logger.Info("Starting semcat", "version", Version, "datasets", app.store.Count())
			return app.Serve(ctx, watchDir)
		},
	}

	cmd.Flags().StringVarP(&watchDir, "watch", "w", "", "Ingest this directory and re-ingest on changes")
	return cmd
}

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader(newLogger(flags.logLevel)).EnsureUserConfig()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(newLogger(flags.logLevel)).Load(flags.configPath)
			if err != nil {
				return err
			}
			return writeYAML(os.Stdout, cfg)
		},
	})
	return cmd
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
