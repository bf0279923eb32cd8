// Package main provides the CLI entrypoint for sectionals.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/sectionals/internal/archive"
	"github.com/verte-zerg/sectionals/internal/config"
	"github.com/verte-zerg/sectionals/internal/export"
	"github.com/verte-zerg/sectionals/internal/ingest"
	"github.com/verte-zerg/sectionals/internal/model"
	"github.com/verte-zerg/sectionals/internal/raceui"
	"github.com/verte-zerg/sectionals/internal/report"
	"github.com/verte-zerg/sectionals/internal/sectional"
	"github.com/verte-zerg/sectionals/internal/store"
)

const (
	defaultDataDir   = "sectionals"
	defaultCSVPath   = "all_race_summaries.csv"
	defaultRejectLog = "error.txt"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	unzipData string
	unzipOut  string

	ingestIn        string
	ingestCSV       string
	ingestRejectLog string
	ingestWorkers   int
	ingestStore     bool
	ingestNoStore   bool
	ingestDB        string

	decodeFormat string
	decodeIssues bool

	racesCourse string
	racesSince  string
	racesDB     string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sectionals",
		Short:         "Decode horse-race sectional timing documents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newUnzipCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newRacesCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newUnzipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unzip",
		Short: "Extract zipped deliveries into a flat document directory",
		Args:  cobra.NoArgs,
		RunE:  runUnzipCmd,
	}
	cmd.Flags().StringVar(&unzipData, "data", defaultDataDir, "directory holding .zip deliveries")
	cmd.Flags().StringVar(&unzipOut, "out", config.DefaultUnzippedDir(), "directory to extract documents into")
	return cmd
}

func runUnzipCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "data", &unzipData, fileCfg.Paths.Data)
	applyStringConfig(cmd, "out", &unzipOut, fileCfg.Paths.Unzipped)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := archive.ExtractAll(ctx, unzipData, unzipOut)
	if err != nil {
		return err
	}
	logErrf("Extracted %d files from %d archives into %s\n", res.Files, res.Archives, unzipOut)
	if res.Skipped > 0 {
		logErrf("Skipped %d entries with unsafe names\n", res.Skipped)
	}
	return nil
}

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Decode a document directory into CSV and the race store",
		Args:  cobra.NoArgs,
		RunE:  runIngestCmd,
	}
	cmd.Flags().StringVar(&ingestIn, "in", config.DefaultUnzippedDir(), "directory of .xml documents")
	cmd.Flags().StringVar(&ingestCSV, "csv", defaultCSVPath, "CSV output path")
	cmd.Flags().StringVar(&ingestRejectLog, "reject-log", defaultRejectLog, "file collecting documents without a race code")
	cmd.Flags().IntVar(&ingestWorkers, "workers", 0, "parallel decoders (default: number of CPUs)")
	cmd.Flags().BoolVar(&ingestStore, "store", true, "save races to the SQLite store")
	cmd.Flags().BoolVar(&ingestNoStore, "no-store", false, "skip the SQLite store")
	cmd.Flags().StringVar(&ingestDB, "db", config.DefaultDBPath(), "SQLite database path")
	return cmd
}

func runIngestCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "in", &ingestIn, fileCfg.Paths.Unzipped)
	applyStringConfig(cmd, "csv", &ingestCSV, fileCfg.Paths.CSV)
	applyStringConfig(cmd, "reject-log", &ingestRejectLog, fileCfg.Paths.RejectLog)
	applyIntConfig(cmd, "workers", &ingestWorkers, fileCfg.Ingest.Workers)
	applyBoolConfig(cmd, "store", &ingestStore, fileCfg.Ingest.Store)
	applyStringConfig(cmd, "db", &ingestDB, fileCfg.Paths.DB)
	if ingestWorkers < 0 {
		return fmt.Errorf("--workers must be >= 0")
	}

	csvFile, err := os.Create(ingestCSV)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	defer func() {
		if cerr := csvFile.Close(); cerr != nil {
			logErrf("failed to close csv: %v\n", cerr)
		}
	}()
	writer := export.NewWriter(csvFile)
	if err := writer.WriteHeader(); err != nil {
		return err
	}
	sinks := []ingest.Sink{export.NewSink(writer)}

	if ingestStore && !ingestNoStore {
		st, err := store.Open(ingestDB)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		sinks = append(sinks, store.Sink{Store: st})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	summary, err := ingest.Run(ctx, ingest.Options{
		Dir:       ingestIn,
		Workers:   ingestWorkers,
		RejectLog: ingestRejectLog,
		Logf: func(format string, args ...any) {
			logErrf(format+"\n", args...)
		},
	}, sinks...)
	if err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	logErrf("Run %s: %d files, %d decoded, %d written, %d rejected, %d failed, %d issues\n",
		summary.RunID, summary.Files, summary.Decoded, summary.Decoded-summary.Rejected,
		summary.Rejected, summary.Failed, summary.Issues)
	return nil
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Decode one document and print it",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecodeCmd,
	}
	cmd.Flags().StringVar(&decodeFormat, "format", formatTable, "output format: table, json or yaml")
	cmd.Flags().BoolVar(&decodeIssues, "issues", false, "print values that could not be decoded")
	return cmd
}

func runDecodeCmd(cmd *cobra.Command, args []string) error {
	path := args[0]
	race, issues, err := ingest.DecodeFile(path)
	if err != nil {
		var serr *sectional.SyntaxError
		if errors.As(err, &serr) {
			return fmt.Errorf("%s: offset %d: %w", path, serr.Offset, serr.Err)
		}
		return err
	}
	if !race.Valid() {
		logErrf("warning: %s has no race code; ingest would reject it\n", path)
	}
	if decodeIssues {
		for _, issue := range issues {
			logErrln(issue.String())
		}
	}
	return writeDecoded(cmd.OutOrStdout(), race, decodeFormat)
}

func writeDecoded(w io.Writer, race model.RaceSummary, format string) error {
	switch format {
	case formatTable:
		if err := report.WriteRace(w, race); err != nil {
			return err
		}
		if len(report.SpeedSeries(race.Horses)) == 0 {
			return nil
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		return report.PlotSpeeds(w, race.Horses, 0, 0)
	case formatJSON:
		data, err := json.MarshalIndent(race, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(race); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("--format must be one of %s, %s, %s", formatTable, formatJSON, formatYAML)
	}
}

func newRacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "races",
		Short: "Browse stored races",
		Args:  cobra.NoArgs,
		RunE:  runRacesCmd,
	}
	cmd.Flags().StringVar(&racesCourse, "course", "", "only races at this course")
	cmd.Flags().StringVar(&racesSince, "since", "", "only races on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&racesDB, "db", config.DefaultDBPath(), "SQLite database path")
	return cmd
}

func runRacesCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &racesDB, fileCfg.Paths.DB)

	filter := model.RaceFilter{Course: strings.TrimSpace(racesCourse)}
	if racesSince != "" {
		parsed, err := time.Parse("2006-01-02", racesSince)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}

	st, err := store.Open(racesDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	program := tea.NewProgram(raceui.NewModel(st, filter), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run race browser: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.CommandContext(context.Background(), parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# sectionals configuration
# Uncomment a value to enable it. CLI flags override config values.

[paths]
# data = %q              # Directory holding .zip deliveries
# unzipped = %q          # Extracted documents
# csv = %q               # CSV output
# reject-log = %q        # Documents without a race code
# db = %q                # SQLite database

[ingest]
# workers = 4            # Parallel decoders (0: number of CPUs)
# store = true           # Save races to the SQLite store
`,
		defaultDataDir,
		config.DefaultUnzippedDir(),
		defaultCSVPath,
		defaultRejectLog,
		config.DefaultDBPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
