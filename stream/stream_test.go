package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// ============================================================
// Writer Tests
// ============================================================

func TestWriter_MinimalLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	lines := []*Line{
		{Level: 0, Xref: "@F1@", Tag: "FAM"},
		{Level: 1, Tag: "DATE", Payload: "JAN 2020"},
		{Level: 1, Tag: "CHIL", Payload: "@I1@", Pointer: true},
	}
	for _, l := range lines {
		if err := w.WriteLine(l); err != nil {
			t.Fatalf("WriteLine failed: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	got := buf.String()
	want := "0 @F1@ FAM\n1 DATE JAN 2020\n1 CHIL @I1@\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if w.Lines() != 3 {
		t.Errorf("Lines = %d, want 3", w.Lines())
	}
	if w.BytesWritten() != int64(len(want)) {
		t.Errorf("BytesWritten = %d, want %d", w.BytesWritten(), len(want))
	}
}

func TestWriter_Escaping(t *testing.T) {
	tests := []struct {
		mode    EscapeMode
		payload string
		want    string
	}{
		{EscapeLeading, "@me is a handle", "1 NOTE @@me is a handle\n"},
		{EscapeLeading, "me@example.com", "1 NOTE me@example.com\n"},
		{EscapeLeading, "@@@@ four", "1 NOTE @@@@@ four\n"},
		{EscapeAll, "me@example.com", "1 NOTE me@@example.com\n"},
		{EscapeAll, "@x@", "1 NOTE @@x@@\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf, WithWriteEscape(tt.mode))
		if err := w.WriteLine(&Line{Level: 1, Tag: "NOTE", Payload: tt.payload}); err != nil {
			t.Fatalf("WriteLine failed: %v", err)
		}
		w.Flush()
		if buf.String() != tt.want {
			t.Errorf("%s %q: got %q, want %q", tt.mode, tt.payload, buf.String(), tt.want)
		}
	}
}

func TestWriter_Rejects(t *testing.T) {
	bad := []*Line{
		{Level: -1, Tag: "NOTE"},
		{Level: 0, Tag: "note"},
		{Level: 0, Tag: ""},
		{Level: 0, Xref: "I1", Tag: "INDI"},
		{Level: 1, Tag: "NOTE", Payload: "two\nlines"},
		{Level: 1, Tag: "NOTE", Payload: "cr\r"},
		{Level: 1, Tag: "CHIL", Payload: "I1", Pointer: true},
	}
	for _, l := range bad {
		w := NewWriter(io.Discard)
		if err := w.WriteLine(l); err == nil {
			t.Errorf("expected error for %+v", l)
		}
	}
}

func TestWriter_Digest(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithDigest())
	w.WriteLine(&Line{Level: 0, Tag: "HEAD"})
	w.WriteLine(&Line{Level: 0, Tag: "TRLR"})
	w.Flush()

	got := w.Digest()
	want := DigestBytes(buf.Bytes())
	if got != want {
		t.Errorf("Digest = %s, want %s", got, want)
	}
	if got.IsZero() {
		t.Error("expected non-zero digest")
	}

	parsed, ok := ParseDigest(got.String())
	if !ok || parsed != got {
		t.Errorf("ParseDigest(%q) = %v, %v", got.String(), parsed, ok)
	}

	plain := NewWriter(io.Discard)
	if !plain.Digest().IsZero() {
		t.Error("expected zero digest without WithDigest")
	}
}

// ============================================================
// Reader Tests
// ============================================================

func TestReader_MinimalLines(t *testing.T) {
	input := "0 HEAD\n1 GEDC\n2 VERS 7.0\n0 @I1@ INDI\n1 FAMC @F1@\n0 TRLR\n"
	r := NewReader(strings.NewReader(input))

	lines, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6", len(lines))
	}

	if lines[2].Level != 2 || lines[2].Tag != "VERS" || lines[2].Payload != "7.0" {
		t.Errorf("line 3: got %+v", lines[2])
	}
	if lines[3].Xref != "@I1@" || lines[3].Tag != "INDI" || lines[3].HasPayload() {
		t.Errorf("line 4: got %+v", lines[3])
	}
	if !lines[4].Pointer || lines[4].Payload != "@F1@" {
		t.Errorf("line 5: got %+v", lines[4])
	}
	if lines[5].LineNo != 6 {
		t.Errorf("LineNo = %d, want 6", lines[5].LineNo)
	}
	if r.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", r.BytesRead(), len(input))
	}
}

func TestReader_CRLFAndBOM(t *testing.T) {
	input := "\uFEFF0 HEAD\r\n1 NOTE hi\r\n0 TRLR"
	lines, err := NewReader(strings.NewReader(input)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0].Tag != "HEAD" {
		t.Errorf("Tag = %q, want HEAD", lines[0].Tag)
	}
	if lines[1].Payload != "hi" {
		t.Errorf("Payload = %q, want hi", lines[1].Payload)
	}
	if lines[2].Tag != "TRLR" {
		t.Errorf("Tag = %q, want TRLR", lines[2].Tag)
	}
}

func TestReader_Unescape(t *testing.T) {
	input := "0 @N1@ SNOTE @@ one leading\n1 CONT @@@@@ has four\n0 @N2@ SNOTE single@internal\n"
	lines, err := NewReader(strings.NewReader(input)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	want := []string{"@ one leading", "@@@@ has four", "single@internal"}
	for i, w := range want {
		if lines[i].Payload != w {
			t.Errorf("line %d: Payload = %q, want %q", i+1, lines[i].Payload, w)
		}
		if lines[i].Pointer {
			t.Errorf("line %d: unexpected pointer", i+1)
		}
	}

	all, err := NewReader(strings.NewReader("1 NOTE me@@example.com\n"), WithReadEscape(EscapeAll)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if all[0].Payload != "me@example.com" {
		t.Errorf("Payload = %q", all[0].Payload)
	}
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		input  string
		reason string
	}{
		{"\n", "blank line"},
		{"HEAD\n", "expected level"},
		{"00 HEAD\n", "leading zero"},
		{"0  HEAD\n", "malformed tag"},
		{"0HEAD\n", "expected space after level"},
		{"0 @I1 INDI\n", "unterminated xref"},
		{"0 @i1@ INDI\n", "malformed xref"},
		{"0 @I1@INDI\n", "expected space after xref"},
		{"0 head\n", "malformed tag"},
		{"1 N-TE x\n", "malformed tag"},
	}
	for _, tt := range tests {
		_, err := NewReader(strings.NewReader(tt.input)).Next()
		if err == nil {
			t.Errorf("%q: expected error", tt.input)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%q: expected ParseError, got %T: %v", tt.input, err, err)
			continue
		}
		if !strings.Contains(pe.Reason, tt.reason) {
			t.Errorf("%q: reason %q does not mention %q", tt.input, pe.Reason, tt.reason)
		}
		if pe.Line != 1 {
			t.Errorf("%q: Line = %d, want 1", tt.input, pe.Line)
		}
	}
}

func TestReader_EOF(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.Next()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_LineTooLong(t *testing.T) {
	input := "1 NOTE " + strings.Repeat("x", 100) + "\n"
	r := NewReader(strings.NewReader(input), WithMaxLineSize(50))

	_, err := r.Next()
	if err == nil {
		t.Error("expected error for long line")
	}
}

// ============================================================
// Round-trip Tests
// ============================================================

func TestRoundtrip_Lines(t *testing.T) {
	input := `0 HEAD
1 GEDC
2 VERS 7.0
0 @I1@ INDI
1 NAME John /Doe/
1 NOTE me@example.com is an example email address.
2 CONT @@me and @I are example social media handles.
2 CONT @@@@@ has four @ characters where only the first is escaped.
0 @N19@ SNOTE @@ at at front and @ inside line and
1 CONT @@ at after CONT and @ inside CONT's line too.
0 TRLR
`
	lines, err := NewReader(strings.NewReader(input)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, l := range lines {
		if err := w.WriteLine(l); err != nil {
			t.Fatalf("WriteLine failed: %v", err)
		}
	}
	w.Flush()

	if buf.String() != input {
		t.Errorf("roundtrip mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), input)
	}
}

func TestEscapeModes(t *testing.T) {
	for _, s := range []string{"", "@", "@@", "a@b", "@lead", "@@@@ x", "x@"} {
		for _, m := range []EscapeMode{EscapeLeading, EscapeAll} {
			if got := Unescape(Escape(s, m), m); got != s {
				t.Errorf("%s: Unescape(Escape(%q)) = %q", m, s, got)
			}
		}
	}
	if m, ok := ParseEscapeMode("ALL"); !ok || m != EscapeAll {
		t.Errorf("ParseEscapeMode(ALL) = %v, %v", m, ok)
	}
	if _, ok := ParseEscapeMode("none"); ok {
		t.Error("expected ParseEscapeMode(none) to fail")
	}
}

func TestParseDigest_Rejects(t *testing.T) {
	d := DigestBytes([]byte("0 HEAD\n0 TRLR\n"))
	upper := strings.ToUpper(strings.TrimPrefix(d.String(), "sha256:"))
	if got, ok := ParseDigest("sha256:" + strings.Replace(upper, "CRC32:", "crc32:", 1)); !ok || got != d {
		t.Errorf("ParseDigest(upper case) = %v, %v", got, ok)
	}

	bad := []string{
		"",
		"sha256:abc crc32:00000000",
		"md5:" + strings.Repeat("0", 64) + " crc32:00000000",
		"sha256:" + strings.Repeat("z", 64) + " crc32:00000000",
		"sha256:" + strings.Repeat("0", 64) + " crc32:0",
		"sha256:" + strings.Repeat("0", 64),
	}
	for _, s := range bad {
		if _, ok := ParseDigest(s); ok {
			t.Errorf("ParseDigest(%q) should fail", s)
		}
	}
}
