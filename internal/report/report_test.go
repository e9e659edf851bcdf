package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Neumenon/gedcom7/gedcom"
)

func sample() *gedcom.Report {
	return &gedcom.Report{
		Violations: []gedcom.Violation{
			{Code: gedcom.CodeEnum, Path: "INDI.SEX", Line: 3, Message: `"Q" is not a value of enumset-SEX`},
			{Code: gedcom.CodeEnvelope, Message: "document must end with TRLR"},
		},
		Warnings: []gedcom.Violation{
			{Code: gedcom.CodeUnknownTag, Path: "INDI._EXT", Line: 4, Message: "extension _EXT is not documented in HEAD.SCHMA"},
		},
	}
}

func TestPlain_File(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	assert.False(t, p.Styled())

	p.File("ok.ged", &gedcom.Report{}, nil)
	p.File("bad.ged", sample(), nil)
	p.File("gone.ged", nil, errors.New("no such file"))

	want := "OK\tok.ged\n" +
		"FAIL\tbad.ged\t2\n" +
		"bad.ged:3: error: INDI.SEX: \"Q\" is not a value of enumset-SEX [enum]\n" +
		"bad.ged:0: error: document must end with TRLR [envelope]\n" +
		"bad.ged:4: warning: INDI._EXT: extension _EXT is not documented in HEAD.SCHMA [unknown_tag]\n" +
		"ERROR\tgone.ged\tno such file\n"
	assert.Equal(t, want, buf.String())
}

func TestPlain_SummaryAndCounts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)
	p.Summary(2, 1, 0)
	p.Counts("records", map[string]int{"INDI": 2, "FAM": 1, "HEAD": 1})
	p.List("tags", []string{"FAM", "INDI"})

	want := "TOTAL\t3\tvalid=2\tinvalid=1\terror=0\n" +
		"records\tINDI\t2\n" +
		"records\tFAM\t1\n" +
		"records\tHEAD\t1\n" +
		"FAM\nINDI\n"
	assert.Equal(t, want, buf.String())
}

func TestStyled_File(t *testing.T) {
	var buf bytes.Buffer
	p := NewStyled(&buf)
	assert.True(t, p.Styled())

	p.File("ok.ged", nil, nil)
	p.File("bad.ged", sample(), nil)
	p.Summary(1, 1, 0)

	out := buf.String()
	assert.Contains(t, out, "✓ ok.ged")
	assert.Contains(t, out, "✗ bad.ged (2 violations)")
	assert.Contains(t, out, "INDI.SEX: \"Q\" is not a value of enumset-SEX")
	assert.Contains(t, out, "⚠")
	assert.Contains(t, out, "2 files: 1 valid, 1 invalid, 0 failed")
}

func TestStyled_Counts(t *testing.T) {
	var buf bytes.Buffer
	NewStyled(&buf).Counts("records", map[string]int{"INDI": 12, "FAM": 3})
	out := buf.String()
	assert.Contains(t, out, "records")
	assert.Contains(t, out, "INDI      12")
	assert.Contains(t, out, "FAM        3")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("INDI")), bytes.Index(buf.Bytes(), []byte("FAM")))
}
