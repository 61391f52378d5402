// Command telemetry-normalize converts one timing export to canonical CSV or
// JSON without running the server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/telemetry/internal/core"
	"github.com/JonMunkholm/telemetry/internal/logging"
	"github.com/JonMunkholm/telemetry/internal/vendors"
)

// errSkipped marks a noise file. The user message has already been printed.
var errSkipped = errors.New("file skipped")

// stdinName labels input read from standard input.
const stdinName = "stdin.csv"

func main() {
	cmd := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errSkipped) {
			os.Exit(2)
		}
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type normalizeFlags struct {
	vendors     []string
	encodings   []string
	format      string
	maxSize     int64
	sampleLines int
	diagnostics bool
	logLevel    string
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var flags normalizeFlags
	cmd := &cobra.Command{
		Use:           "telemetry-normalize [file]",
		Short:         "Normalize a timing or telemetry CSV export",
		Long:          "Reads one export from the given path, or standard input when no path or \"-\" is given, and writes the canonical table to standard output.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runNormalize(stdin, stdout, stderr, args, flags)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringSliceVar(&flags.vendors, "vendor", nil, "Vendor profiles to apply, in order")
	f.StringSliceVar(&flags.encodings, "encodings", core.DefaultEncodings, "Encoding fallback order")
	f.StringVar(&flags.format, "format", "csv", "Output format: csv or json")
	f.Int64Var(&flags.maxSize, "max-size", 100<<20, "Maximum input size in bytes, 0 disables")
	f.IntVar(&flags.sampleLines, "sample-lines", core.DefaultSampleLines, "Lines used for delimiter detection")
	f.BoolVar(&flags.diagnostics, "diagnostics", false, "Write diagnostics as JSON to standard error")
	f.StringVar(&flags.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	cmd.AddCommand(newVendorsCommand(stdout))
	cmd.AddCommand(newClassifyCommand(stdin, stdout))
	return cmd
}

func newVendorsCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List the built-in vendor profiles",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, p := range vendors.Profiles() {
				if _, err := fmt.Fprintf(stdout, "%-12s %s\n", p.Name, p.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newClassifyCommand(stdin io.Reader, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [file]",
		Short: "Report whether a file is a candidate or expected noise",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name, data, err := readInput(stdin, args, 0)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(stdout, "%s\t%s\t%s\n", name, core.Classify(name, data), core.DetectMIME(data))
			return err
		},
	}
}

type document struct {
	File        string           `json:"file"`
	Dialect     core.Dialect     `json:"dialect"`
	Shape       core.Shape       `json:"shape"`
	Columns     []core.Column    `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	Diagnostics core.Diagnostics `json:"diagnostics"`
}

func runNormalize(stdin io.Reader, stdout, stderr io.Writer, args []string, flags normalizeFlags) error {
	if flags.format != "csv" && flags.format != "json" {
		return fmt.Errorf("unknown format %q, want csv or json", flags.format)
	}
	if err := core.ValidateEncodings(flags.encodings); err != nil {
		return err
	}
	aliases, err := vendors.Table(flags.vendors...)
	if err != nil {
		return err
	}

	logger := logging.New(stderr, flags.logLevel, "text")

	name, data, err := readInput(stdin, args, flags.maxSize)
	if err != nil {
		return err
	}
	logger = logger.With("file", name)

	if class := core.Classify(name, data); class.Noise() {
		logger.Warn("file skipped", "class", class)
		fmt.Fprintln(stderr, core.FormatUserError(class.Err()))
		return errSkipped
	}

	res, err := core.Normalize(data, core.Options{
		Encodings:   flags.encodings,
		SampleLines: flags.sampleLines,
		Aliases:     aliases,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("normalize %s: %w", name, err)
	}

	d := res.Diagnostics
	logger.Info("file normalized",
		"delimiter", res.Dialect.DelimiterName(),
		"encoding", res.Dialect.Encoding,
		"rows", d.RowsOutput,
		"dropped", d.RowsDropped,
		"coercion_failures", d.TotalCoercionFailures(),
	)
	for _, w := range d.Warnings {
		logger.Warn(w)
	}

	if flags.format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(document{
			File:        name,
			Dialect:     res.Dialect,
			Shape:       res.Table.Shape,
			Columns:     res.Table.Columns,
			Rows:        res.Table.Records(),
			Diagnostics: d,
		}); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	} else if err := res.Table.WriteCSV(stdout); err != nil {
		return err
	}

	if flags.diagnostics {
		enc := json.NewEncoder(stderr)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	return nil
}

// readInput reads a path argument or standard input.
func readInput(stdin io.Reader, args []string, limit int64) (string, []byte, error) {
	name := stdinName
	r := stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		name = filepath.Base(args[0])
		r = f
	}

	data, err := io.ReadAll(core.NewSizeLimitReader(r, limit))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", name, err)
	}
	return name, data, nil
}
