package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/gedcom7/internal/config"
	"github.com/Neumenon/gedcom7/stream"
)

const minimal = "0 HEAD\n1 GEDC\n2 VERS 7.0\n0 TRLR\n"

// run executes the root command in isolation from the user's config.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("GEDCOM_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "gedcom 0.3.0 (GEDCOM 7.0)\n", out)
}

// ============================================================
// validate
// ============================================================

func TestValidateValid(t *testing.T) {
	out, _, err := run(t, "", "validate", "--envelope", "testdata/family.ged")
	require.NoError(t, err)
	assert.Equal(t, "OK\ttestdata/family.ged\n", out)
}

func TestValidateStdin(t *testing.T) {
	out, _, err := run(t, minimal, "validate")
	require.NoError(t, err)
	assert.Equal(t, "OK\t<stdin>\n", out)
}

func TestValidateInvalid(t *testing.T) {
	out, _, err := run(t, "", "validate", "testdata/bad.ged")
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "FAIL\ttestdata/bad.ged\t2\n")
	assert.Contains(t, out, "testdata/bad.ged:5: error: INDI.SEX")
	assert.Contains(t, out, "[enum]")
	assert.Contains(t, out, "testdata/bad.ged:6: error: INDI.FAMS")
	assert.Contains(t, out, "[unresolved_xref]")
}

func TestValidateMalformedStdin(t *testing.T) {
	out, _, err := run(t, "0 HEAD\n2 GEDC\n0 TRLR\n", "validate")
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "FAIL\t<stdin>")
	assert.Contains(t, out, "[malformed_line]")
}

func TestValidateUnknownTagOnce(t *testing.T) {
	out, _, err := run(t, "0 HEAD\n1 GEDC\n2 VERS 7.0\n1 BOGUS x\n0 TRLR\n", "validate")
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "FAIL\t<stdin>\t1\n")
	assert.Contains(t, out, "<stdin>:4: error: ")
	assert.NotContains(t, out, "[unknown_tag]")
}

func TestValidateMany(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.ged")
	out, _, err := run(t, "", "validate", "--workers", "2",
		"testdata/family.ged", "testdata/bad.ged", missing)
	require.ErrorIs(t, err, errInvalid)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "OK\ttestdata/family.ged", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "FAIL\ttestdata/bad.ged"))
	assert.Contains(t, out, "ERROR\t"+missing+"\t")
	assert.Equal(t, "TOTAL\t3\tvalid=1\tinvalid=1\terror=1", lines[len(lines)-1])
}

func TestValidateEnvelope(t *testing.T) {
	doc := "0 @I1@ INDI\n" + minimal
	_, _, err := run(t, doc, "validate")
	require.NoError(t, err)

	out, _, err := run(t, doc, "validate", "--envelope")
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "[envelope]")
}

func TestValidateMetrics(t *testing.T) {
	_, errOut, err := run(t, "", "--metrics", "validate", "testdata/family.ged")
	require.NoError(t, err)
	assert.Contains(t, errOut, `gedcom_documents_total{result="valid"} 1`)
	assert.Contains(t, errOut, `gedcom_records_total{tag="INDI"} 2`)
}

// ============================================================
// fmt
// ============================================================

func TestFmtRoundTrip(t *testing.T) {
	want, err := os.ReadFile("testdata/family.ged")
	require.NoError(t, err)

	out, _, err := run(t, "", "fmt", "testdata/family.ged")
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestFmtDigest(t *testing.T) {
	out, errOut, err := run(t, minimal, "fmt", "--digest")
	require.NoError(t, err)
	assert.Equal(t, minimal, out)
	assert.Equal(t, stream.DigestBytes([]byte(minimal)).String()+"\n", errOut)
}

func TestFmtVerify(t *testing.T) {
	want := stream.DigestBytes([]byte(minimal)).String()
	out, _, err := run(t, minimal, "fmt", "--verify", want)
	require.NoError(t, err)
	assert.Equal(t, minimal, out)

	other := stream.DigestBytes([]byte("0 TRLR\n")).String()
	_, _, err = run(t, minimal, "fmt", "--verify", other)
	assert.ErrorContains(t, err, "digest mismatch")

	_, _, err = run(t, minimal, "fmt", "--verify", "sha256:nope")
	assert.ErrorContains(t, err, `malformed digest "sha256:nope"`)
}

type failingCloser struct{ err error }

func (c failingCloser) Close() error { return c.err }

func TestCloseInto(t *testing.T) {
	boom := errors.New("disk full")

	var err error
	closeInto(&err, failingCloser{boom}, "close output")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "close output: disk full", err.Error())

	first := errors.New("encode failed")
	err = first
	closeInto(&err, failingCloser{boom}, "close output")
	assert.Same(t, first, err)

	err = nil
	closeInto(&err, failingCloser{}, "close output")
	assert.NoError(t, err)
}

func TestFmtOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ged")
	out, _, err := run(t, "", "fmt", "--max-line-length", "20", "-o", path, "testdata/family.ged")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "3 CONC ")

	// Folding back restores the original document.
	again, _, err := run(t, string(data), "fmt")
	require.NoError(t, err)
	want, err := os.ReadFile("testdata/family.ged")
	require.NoError(t, err)
	assert.Equal(t, string(want), again)
}

func TestFmtEscapeAll(t *testing.T) {
	doc := "0 HEAD\n1 GEDC\n2 VERS 7.0\n1 NOTE a@b\n0 TRLR\n"
	out, _, err := run(t, doc, "fmt", "--escape", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "1 NOTE a@@b\n")

	_, _, err = run(t, doc, "fmt", "--escape", "some")
	assert.ErrorContains(t, err, `unknown escape mode "some"`)
}

func TestFmtAssignUIDs(t *testing.T) {
	out, _, err := run(t, "", "fmt", "--assign-uids", "testdata/family.ged")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n1 UID "))
}

func TestFmtMalformed(t *testing.T) {
	_, _, err := run(t, "0 HEAD\n2 GEDC\n", "fmt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level jumps")
}

// ============================================================
// stats and tags
// ============================================================

func TestStats(t *testing.T) {
	out, _, err := run(t, "", "stats", "testdata/family.ged")
	require.NoError(t, err)
	assert.Contains(t, out, "records\tINDI\t2\n")
	assert.Contains(t, out, "records\tFAM\t1\n")
	assert.Contains(t, out, "tags\tDATE\t2\n")
	assert.Contains(t, out, "tags\tFAMS\t2\n")
	assert.Contains(t, out, "_SKYPEID http://xmlns.com/foaf/0.1/skypeID\n")
}

func TestTags(t *testing.T) {
	out, _, err := run(t, "", "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "\nINDI\n")
	assert.NotContains(t, out, "_LOC")

	out, _, err = run(t, "", "tags", "--spec", "testdata/extension.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "_LOC\n")
}

func TestTagsChildren(t *testing.T) {
	out, _, err := run(t, "", "tags", "--children", "record-FAM")
	require.NoError(t, err)
	assert.Contains(t, out, "HUSB {0:1} FAM-HUSB\n")
	assert.Contains(t, out, "CHIL {0:M} CHIL\n")

	out, _, err = run(t, "", "tags", "--children", ".")
	require.NoError(t, err)
	assert.Contains(t, out, "HEAD {0:1} HEAD\n")

	_, _, err = run(t, "", "tags", "--children", "FAMX")
	assert.Error(t, err)
}

func TestTagsEnum(t *testing.T) {
	out, _, err := run(t, "", "tags", "--enum", "enumset-SEX")
	require.NoError(t, err)
	assert.Equal(t, "M\nF\nX\nU\n", out)

	_, _, err = run(t, "", "tags", "--enum", "enumset-NOPE")
	assert.ErrorContains(t, err, "unknown enumeration set")
}

func TestTagsCalendars(t *testing.T) {
	out, _, err := run(t, "", "tags", "--calendars")
	require.NoError(t, err)
	assert.Contains(t, out, "GREGORIAN JAN,FEB,MAR,APR,MAY,JUN,JUL,AUG,SEP,OCT,NOV,DEC epochs=BCE,BC\n")
}

// ============================================================
// config
// ============================================================

func TestConfigFromEnv(t *testing.T) {
	doc := "0 HEAD\n1 GEDC\n2 VERS 7.0\n1 NOTE a@b\n0 TRLR\n"
	t.Setenv("GEDCOM_ESCAPE", "all")
	out, _, err := run(t, doc, "fmt")
	require.NoError(t, err)
	assert.Contains(t, out, "1 NOTE a@@b\n")
}

func TestConfigInvalid(t *testing.T) {
	t.Setenv("GEDCOM_WORKERS", "0")
	_, _, err := run(t, minimal, "validate")
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gedcom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("require_envelope: true\n"), 0o644))

	out, _, err := run(t, "0 @I1@ INDI\n"+minimal, "--config", path, "validate")
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "[envelope]")

	_, _, err = run(t, minimal, "--config", filepath.Join(t.TempDir(), "none.yaml"), "validate")
	assert.Error(t, err)
}
