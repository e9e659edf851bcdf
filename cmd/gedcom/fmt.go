package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Neumenon/gedcom7/gedcom"
	"github.com/Neumenon/gedcom7/stream"
)

func (a *app) fmtCmd() *cobra.Command {
	var (
		maxLine    int
		escape     string
		assignUIDs bool
		digest     bool
		verify     string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Re-encode a document in canonical line form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			opts := gedcom.EncodeOptions{
				MaxLineLength: a.cfg.MaxLineLength,
				Escape:        a.cfg.EscapeMode(),
				Digest:        digest || verify != "",
			}
			if cmd.Flags().Changed("max-line-length") {
				opts.MaxLineLength = maxLine
			}
			if cmd.Flags().Changed("escape") {
				mode, ok := stream.ParseEscapeMode(escape)
				if !ok {
					return fmt.Errorf("unknown escape mode %q", escape)
				}
				opts.Escape = mode
			}
			var want stream.Digest
			if verify != "" {
				var ok bool
				if want, ok = stream.ParseDigest(verify); !ok {
					return fmt.Errorf("malformed digest %q", verify)
				}
			}

			rc, display, err := openInput(cmd, name)
			if err != nil {
				return err
			}
			defer rc.Close()
			g, _, err := a.decode(rc, display, true)
			if err != nil {
				return err
			}

			if assignUIDs {
				n, err := g.Builder().AssignUIDs()
				if err != nil {
					return fmt.Errorf("assign uids: %w", err)
				}
				a.log.Info("assigned uids", "file", display, "count", n)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, cerr := os.Create(output)
				if cerr != nil {
					return fmt.Errorf("create output: %w", cerr)
				}
				defer closeInto(&err, f, "close output")
				w = f
			}

			enc := gedcom.NewEncoder(w, opts)
			if err := a.metrics.Time("encode", func() error { return enc.Encode(g.Records) }); err != nil {
				return err
			}
			a.metrics.AddIO(enc.Lines(), enc.BytesWritten())
			if digest {
				fmt.Fprintln(cmd.ErrOrStderr(), enc.Digest())
			}
			if verify != "" && enc.Digest() != want {
				return fmt.Errorf("digest mismatch: wrote %s, want %s", enc.Digest(), want)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxLine, "max-line-length", 0, "split payloads into CONC lines of at most N bytes (0 = never)")
	cmd.Flags().StringVar(&escape, "escape", "leading", "@ escaping: leading or all")
	cmd.Flags().BoolVar(&assignUIDs, "assign-uids", false, "add a UID to every record that permits one and has none")
	cmd.Flags().BoolVar(&digest, "digest", false, "print the sha256 and crc32 of the output to stderr")
	cmd.Flags().StringVar(&verify, "verify", "", "fail unless the output matches this digest (as printed by --digest)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
