package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Neumenon/gedcom7/gedcom"
	"github.com/Neumenon/gedcom7/internal/metrics"
	"github.com/Neumenon/gedcom7/internal/report"
)

type fileResult struct {
	name   string
	report *gedcom.Report
	err    error
}

func (a *app) validateCmd() *cobra.Command {
	var (
		failFast bool
		envelope bool
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Decode and validate documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("fail-fast") {
				a.cfg.FailFast = failFast
			}
			if cmd.Flags().Changed("envelope") {
				a.cfg.RequireEnvelope = envelope
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.Workers = workers
			}
			if len(args) == 0 {
				args = []string{"-"}
			}
			results := a.validateFiles(cmd, args)

			p := report.New(cmd.OutOrStdout())
			var valid, invalid, failed int
			for _, r := range results {
				p.File(r.name, r.report, r.err)
				switch {
				case r.err != nil && (r.report == nil || r.report.Valid()):
					failed++
				case r.report.Valid():
					valid++
				default:
					invalid++
				}
			}
			if len(results) > 1 {
				p.Summary(valid, invalid, failed)
			}
			if invalid+failed > 0 {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop each document at its first violation")
	cmd.Flags().BoolVar(&envelope, "envelope", false, "require HEAD first and TRLR last")
	cmd.Flags().IntVar(&workers, "workers", 0, "files validated concurrently (default from config)")
	return cmd
}

// validateFiles checks every file concurrently over the shared registry
// and returns the results in argument order.
func (a *app) validateFiles(cmd *cobra.Command, names []string) []fileResult {
	results := make([]fileResult, len(names))
	eg, ctx := errgroup.WithContext(cmd.Context())
	eg.SetLimit(max(a.cfg.Workers, 1))

	for i, name := range names {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = fileResult{name: name, err: err}
				return nil
			}
			results[i] = a.validateFile(cmd, name)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (a *app) validateFile(cmd *cobra.Command, name string) fileResult {
	rc, display, err := openInput(cmd, name)
	if err != nil {
		a.metrics.ObserveDocument(metrics.ResultError)
		return fileResult{name: display, err: err}
	}
	defer rc.Close()

	mode := gedcom.ModeCollectAll
	if a.cfg.FailFast {
		mode = gedcom.ModeFailFast
	}

	g, decodeReport, err := a.decode(rc, display, a.cfg.FailFast)
	out := &gedcom.Report{}
	if decodeReport != nil {
		out.Violations = append(out.Violations, decodeReport.Violations...)
	}
	if err != nil && (decodeReport == nil || decodeReport.Valid()) {
		// I/O failure rather than a malformed line.
		a.metrics.ObserveDocument(metrics.ResultError)
		return fileResult{name: display, err: err}
	}
	if !a.cfg.FailFast || out.Valid() {
		var vr *gedcom.Report
		_ = a.metrics.Time("validate", func() error {
			vr = gedcom.Validate(g, gedcom.ValidateOptions{
				Mode:            mode,
				RequireEnvelope: a.cfg.RequireEnvelope,
				Logger:          a.log,
			})
			return nil
		})
		decoded := make(map[int]bool, len(out.Violations))
		for _, v := range out.Violations {
			decoded[v.Line] = true
		}
		for _, v := range vr.Violations {
			// Decode already reported the unknown tag on this line.
			if v.Code == gedcom.CodeUnknownTag && decoded[v.Line] {
				continue
			}
			out.Violations = append(out.Violations, v)
		}
		out.Warnings = append(out.Warnings, vr.Warnings...)
	}

	a.metrics.ObserveRecords(g.Counts())
	a.metrics.ObserveReport(out)
	if out.Valid() {
		a.metrics.ObserveDocument(metrics.ResultValid)
	} else {
		a.metrics.ObserveDocument(metrics.ResultInvalid)
	}
	a.log.Info("validated", "file", display, "records", len(g.Records), "violations", len(out.Violations))
	return fileResult{name: display, report: out}
}
