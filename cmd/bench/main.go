// bench - GEDCOM throughput runner
//
// Builds synthetic family trees of increasing size and measures:
//   - Encode, decode and validate wall time
//   - Bytes and lines on the wire
//   - Round-trip fidelity (digest of the re-encoded output)
//
// Output: CSV and markdown summary
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Neumenon/gedcom7/chrono"
	"github.com/Neumenon/gedcom7/gedcom"
	"github.com/Neumenon/gedcom7/registry"
	"github.com/Neumenon/gedcom7/stream"
)

type CaseResult struct {
	Name       string
	Families   int
	Records    int
	Lines      int
	Bytes      int64
	Encode     time.Duration
	Decode     time.Duration
	Validate   time.Duration
	Violations int
	RoundTrip  bool
}

// MBps returns the decode throughput in megabytes per second.
func (r CaseResult) MBps() float64 {
	if r.Decode <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Decode.Seconds() / (1 << 20)
}

type benchCase struct {
	name     string
	families int
	maxLine  int
	escape   stream.EscapeMode
}

var cases = []benchCase{
	{"tiny", 10, 0, stream.EscapeLeading},
	{"small", 100, 0, stream.EscapeLeading},
	{"medium", 1000, 0, stream.EscapeLeading},
	{"large", 10000, 0, stream.EscapeLeading},
	{"medium-conc-40", 1000, 40, stream.EscapeLeading},
	{"medium-escape-all", 1000, 0, stream.EscapeAll},
}

func main() {
	reg := registry.Default()

	fmt.Fprintf(os.Stderr, "GEDCOM Benchmark Runner\n")
	fmt.Fprintf(os.Stderr, "=======================\n")
	fmt.Fprintf(os.Stderr, "Registry: %d structures\n\n", reg.Stats().Structures)

	var results []CaseResult
	for _, c := range cases {
		r, err := run(reg, c)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skip %s: %v\n", c.name, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "%-20s %8d lines %10d bytes  decode %v\n", r.Name, r.Lines, r.Bytes, r.Decode)
		results = append(results, r)
	}

	csvPath := "bench_results.csv"
	csvFile, err := os.Create(csvPath)
	if err == nil {
		writeCSV(csvFile, results)
		csvFile.Close()
		fmt.Fprintf(os.Stderr, "CSV written to: %s\n", csvPath)
	}

	date := time.Now().Format("2006-01-02")
	mdPath := "BENCH_" + date + ".md"
	mdFile, err := os.Create(mdPath)
	if err == nil {
		writeMarkdown(mdFile, results, date)
		mdFile.Close()
		fmt.Fprintf(os.Stderr, "Markdown written to: %s\n", mdPath)
	}

	var totalBytes int64
	var totalDecode time.Duration
	failed := 0
	for _, r := range results {
		totalBytes += r.Bytes
		totalDecode += r.Decode
		if !r.RoundTrip || r.Violations > 0 {
			failed++
		}
	}
	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Cases:        %d\n", len(results))
	fmt.Printf("Total bytes:  %d\n", totalBytes)
	fmt.Printf("Decode time:  %v\n", totalDecode)
	if totalDecode > 0 {
		fmt.Printf("Throughput:   %.1f MB/s\n", float64(totalBytes)/totalDecode.Seconds()/(1<<20))
	}
	fmt.Printf("Failures:     %d\n", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func run(reg *registry.Registry, c benchCase) (CaseResult, error) {
	g, err := synthesize(reg, c.families)
	if err != nil {
		return CaseResult{}, fmt.Errorf("build: %w", err)
	}
	opts := gedcom.EncodeOptions{MaxLineLength: c.maxLine, Escape: c.escape, Digest: true}

	var buf bytes.Buffer
	enc := gedcom.NewEncoder(&buf, opts)
	start := time.Now()
	if err := enc.Encode(g.Records); err != nil {
		return CaseResult{}, fmt.Errorf("encode: %w", err)
	}
	encodeTime := time.Since(start)
	want := enc.Digest()

	start = time.Now()
	decoded, _, err := gedcom.Decode(bytes.NewReader(buf.Bytes()), reg, gedcom.DecodeOptions{Name: c.name, Escape: c.escape})
	if err != nil {
		return CaseResult{}, fmt.Errorf("decode: %w", err)
	}
	decodeTime := time.Since(start)

	start = time.Now()
	report := gedcom.Validate(decoded, gedcom.ValidateOptions{RequireEnvelope: true})
	validateTime := time.Since(start)

	again := gedcom.NewEncoder(io.Discard, opts)
	if err := again.Encode(decoded.Records); err != nil {
		return CaseResult{}, fmt.Errorf("re-encode: %w", err)
	}

	return CaseResult{
		Name:       c.name,
		Families:   c.families,
		Records:    len(decoded.Records),
		Lines:      enc.Lines(),
		Bytes:      enc.BytesWritten(),
		Encode:     encodeTime,
		Decode:     decodeTime,
		Validate:   validateTime,
		Violations: len(report.Violations),
		RoundTrip:  again.Digest() == want,
	}, nil
}

// synthesize builds a document with the given number of couples, each with
// one child, dated events and a shared note.
func synthesize(reg *registry.Registry, families int) (*gedcom.Genealogy, error) {
	g := gedcom.New("synthetic", reg)
	b := g.Builder()
	if _, err := b.Header("7.0"); err != nil {
		return nil, err
	}

	note, err := b.Record("SNOTE")
	if err != nil {
		return nil, err
	}
	note.Payload = gedcom.Text("@home\n" + strings.Repeat("Parish register transcription. ", 4))

	for i := range families {
		fam, err := b.Record("FAM")
		if err != nil {
			return nil, err
		}
		year := 1700 + i%300
		if _, err := b.AttachChild(fam, "MARR", gedcom.NoPayload(), ""); err != nil {
			return nil, err
		}
		marr := fam.Children[len(fam.Children)-1]
		if _, err := b.AttachChild(marr, "DATE", gedcom.DatePayload(chrono.About(chrono.NewDate(year, "JUN", 0))), ""); err != nil {
			return nil, err
		}

		for _, role := range []struct{ tag, sex, given string }{{"HUSB", "M", "John"}, {"WIFE", "F", "Mary"}, {"CHIL", "U", "Ann"}} {
			indi, err := person(b, role.given, fmt.Sprintf("Family%d", i), role.sex, year)
			if err != nil {
				return nil, err
			}
			if _, err := b.AttachChild(fam, role.tag, gedcom.Pointer(indi.Xref), ""); err != nil {
				return nil, err
			}
			link := "FAMS"
			if role.tag == "CHIL" {
				link = "FAMC"
			}
			if _, err := b.AttachChild(indi, link, gedcom.Pointer(fam.Xref), ""); err != nil {
				return nil, err
			}
			if _, err := b.AttachChild(indi, "SNOTE", gedcom.Pointer(note.Xref), ""); err != nil {
				return nil, err
			}
		}
	}

	if _, err := b.Trailer(); err != nil {
		return nil, err
	}
	return g, nil
}

func person(b *gedcom.Builder, given, surname, sex string, year int) (*gedcom.Node, error) {
	indi, err := b.Record("INDI")
	if err != nil {
		return nil, err
	}
	if _, err := b.Add(indi, "NAME", given+" /"+surname+"/"); err != nil {
		return nil, err
	}
	if _, err := b.Add(indi, "SEX", sex); err != nil {
		return nil, err
	}
	birt, err := b.Add(indi, "BIRT", "")
	if err != nil {
		return nil, err
	}
	if _, err := b.AttachChild(birt, "DATE", gedcom.DatePayload(chrono.Exact(chrono.NewDate(year-25, "MAR", 1+year%28))), ""); err != nil {
		return nil, err
	}
	return indi, nil
}

func writeCSV(w io.Writer, results []CaseResult) {
	fmt.Fprintln(w, "name,families,records,lines,bytes,encode_us,decode_us,validate_us,mb_per_s,violations,round_trip")
	for _, r := range results {
		fmt.Fprintf(w, "%s,%d,%d,%d,%d,%d,%d,%d,%.1f,%d,%t\n",
			r.Name, r.Families, r.Records, r.Lines, r.Bytes,
			r.Encode.Microseconds(), r.Decode.Microseconds(), r.Validate.Microseconds(),
			r.MBps(), r.Violations, r.RoundTrip)
	}
}

func writeMarkdown(w io.Writer, results []CaseResult, date string) {
	fmt.Fprintf(w, "# GEDCOM Benchmark Results\n\n")
	fmt.Fprintf(w, "**Date:** %s  \n", date)
	fmt.Fprintf(w, "**Cases:** %d  \n\n", len(results))

	fmt.Fprintf(w, "## Fastest Decode (by MB/s)\n\n")
	sorted := make([]CaseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MBps() > sorted[j].MBps()
	})
	fmt.Fprintf(w, "| Case | Bytes | MB/s |\n")
	fmt.Fprintf(w, "|------|-------|------|\n")
	for i := 0; i < min(5, len(sorted)); i++ {
		r := sorted[i]
		fmt.Fprintf(w, "| %s | %d | %.1f |\n", r.Name, r.Bytes, r.MBps())
	}

	fmt.Fprintf(w, "\n### Failures\n\n")
	var bad []CaseResult
	for _, r := range results {
		if !r.RoundTrip || r.Violations > 0 {
			bad = append(bad, r)
		}
	}
	if len(bad) == 0 {
		fmt.Fprintf(w, "_None - every case round-trips and validates._\n\n")
	} else {
		fmt.Fprintf(w, "| Case | Violations | Round trip |\n")
		fmt.Fprintf(w, "|------|------------|------------|\n")
		for _, r := range bad {
			fmt.Fprintf(w, "| %s | %d | %t |\n", r.Name, r.Violations, r.RoundTrip)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "## Methodology\n\n")
	fmt.Fprintf(w, "- **Input:** synthetic couples with one child, dated marriage and births, one shared note\n")
	fmt.Fprintf(w, "- **Round trip:** sha256 of the re-encoded decode output equals the original encoding\n")
	fmt.Fprintf(w, "- **Validate:** default registry with the HEAD/TRLR envelope required\n\n")

	fmt.Fprintf(w, "## Detailed Results\n\n")
	fmt.Fprintf(w, "| Case | Records | Lines | Bytes | Encode | Decode | Validate |\n")
	fmt.Fprintf(w, "|------|---------|-------|-------|--------|--------|----------|\n")
	for _, r := range results {
		fmt.Fprintf(w, "| %s | %d | %d | %d | %v | %v | %v |\n",
			truncateName(r.Name, 25), r.Records, r.Lines, r.Bytes,
			r.Encode.Round(time.Microsecond), r.Decode.Round(time.Microsecond), r.Validate.Round(time.Microsecond))
	}
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
