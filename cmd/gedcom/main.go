// gedcom - GEDCOM 7 validation and formatting tool
//
// Usage:
//
//	gedcom validate [--fail-fast] [--envelope] [file...]   Validate documents
//	gedcom fmt [--max-line-length=N] [--escape=all] [file] Re-encode a document
//	gedcom stats [file]                                    Count records and tags
//	gedcom tags [--children=KEY] [--enum=SET]              Inspect the registry
//	gedcom version                                         Print version info
//
// Global flags: --config FILE, --spec FILE (repeatable extension sources),
// --log-level, --metrics (dump Prometheus metrics to stderr on exit).
//
// If no file is given, or the file is "-", reads from stdin.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Neumenon/gedcom7/gedcom"
	"github.com/Neumenon/gedcom7/internal/config"
	"github.com/Neumenon/gedcom7/internal/logging"
	"github.com/Neumenon/gedcom7/internal/metrics"
	"github.com/Neumenon/gedcom7/registry"
)

const (
	libVersion    = "0.3.0"
	gedcomVersion = "7.0"
)

// errInvalid marks a run that found violations; the report has already
// been printed.
var errInvalid = errors.New("invalid documents")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintf(os.Stderr, "gedcom: %v\n", err)
		}
		os.Exit(1)
	}
}

type app struct {
	cfgPath     string
	specs       []string
	logLevel    string
	showMetrics bool

	cfg     config.Config
	log     *slog.Logger
	reg     *registry.Registry
	metrics *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "gedcom",
		Short:         "Validate and format GEDCOM 7 files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.showMetrics && a.metrics != nil {
				return a.metrics.WriteText(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "config file (default $GEDCOM_CONFIG)")
	flags.StringSliceVar(&a.specs, "spec", nil, "extra specification source, YAML or JSON (repeatable)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.showMetrics, "metrics", false, "print Prometheus metrics to stderr on exit")

	root.AddCommand(
		a.validateCmd(),
		a.fmtCmd(),
		a.statsCmd(),
		a.tagsCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	cfg.ExtraSpecs = append(cfg.ExtraSpecs, a.specs...)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(logging.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Writer: cmd.ErrOrStderr()})
	a.metrics = metrics.New()

	start := time.Now()
	a.reg, err = loadRegistry(cfg.ExtraSpecs)
	if err != nil {
		return err
	}
	st := a.reg.Stats()
	a.log.Debug("registry built",
		"structures", st.Structures,
		"extensions", st.Extensions,
		"enum_sets", st.EnumSets,
		"calendars", st.Calendars,
		"elapsed", time.Since(start))
	return nil
}

// loadRegistry merges extension sources into the bundled definitions.
func loadRegistry(paths []string) (*registry.Registry, error) {
	if len(paths) == 0 {
		return registry.Default(), nil
	}
	sources := [][]byte{registry.DefaultSource()}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read spec: %w", err)
		}
		sources = append(sources, data)
	}
	return registry.Build(sources...)
}

// openInput opens a named file, or stdin for "" and "-".
func openInput(cmd *cobra.Command, name string) (io.ReadCloser, string, error) {
	if name == "" || name == "-" {
		return io.NopCloser(cmd.InOrStdin()), "<stdin>", nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, name, fmt.Errorf("open file: %w", err)
	}
	return f, name, nil
}

// closeInto closes c and reports its error through errp unless an
// earlier error is already there.
func closeInto(errp *error, c io.Closer, what string) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = fmt.Errorf("%s: %w", what, cerr)
	}
}

// decode reads one document and records its metrics.
func (a *app) decode(r io.Reader, name string, failFast bool) (*gedcom.Genealogy, *gedcom.Report, error) {
	var (
		g      *gedcom.Genealogy
		report *gedcom.Report
		err    error
	)
	cr := &countingReader{r: r}
	_ = a.metrics.Time("decode", func() error {
		g, report, err = gedcom.Decode(cr, a.reg, gedcom.DecodeOptions{
			Name:     name,
			FailFast: failFast,
			Escape:   a.cfg.EscapeMode(),
			Logger:   a.log,
		})
		return err
	})
	a.metrics.AddIO(cr.lines, cr.bytes)
	return g, report, err
}

type countingReader struct {
	r     io.Reader
	bytes int64
	lines int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.bytes += int64(n)
	for _, b := range p[:n] {
		if b == '\n' {
			c.lines++
		}
	}
	return n, err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gedcom %s (GEDCOM %s)\n", libVersion, gedcomVersion)
		},
	}
}
