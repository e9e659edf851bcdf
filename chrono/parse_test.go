package chrono

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/gedcom7/registry"
)

func reg() *registry.Registry { return registry.Default() }

func TestLexer(t *testing.T) {
	toks, err := NewLexer("BET @#DJULIAN@ 1 JAN 1700 AND 1710 (about then)").Tokenize()
	require.NoError(t, err)

	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokenWord, TokenEscape, TokenInt, TokenWord, TokenInt, TokenWord, TokenInt, TokenPhrase, TokenEOF,
	}, types)
	assert.Equal(t, "JULIAN", toks[1].Value)
	assert.Equal(t, "about then", toks[7].Value)
	assert.Equal(t, 4, toks[1].Pos)
}

func TestLexer_Errors(t *testing.T) {
	for _, in := range []string{"1 JAN 2000 #", "@#DJULIAN 2000", "(open", "(x) 2000", "@XJULIAN@ 1"} {
		t.Run(in, func(t *testing.T) {
			_, err := NewLexer(in).Tokenize()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDate))
		})
	}
}

func TestParse_Forms(t *testing.T) {
	tests := []struct {
		in    string
		qual  Qualifier
		start string
		end   string
	}{
		{"2020", QualifierNone, "2020", ""},
		{"JAN 2020", QualifierNone, "JAN 2020", ""},
		{"1 jan 2020", QualifierNone, "1 JAN 2020", ""},
		{"ABT 1850", QualifierAbout, "1850", ""},
		{"CAL 1850", QualifierCalculated, "1850", ""},
		{"EST MAR 1850", QualifierEstimated, "MAR 1850", ""},
		{"BEF 1900", QualifierBefore, "1900", ""},
		{"AFT 10 DEC 1900", QualifierAfter, "10 DEC 1900", ""},
		{"BET 1900 AND 1910", QualifierBetween, "1900", "1910"},
		{"FROM 1900", QualifierFrom, "1900", ""},
		{"FROM 1900 TO 1910", QualifierFrom, "1900", "1910"},
		{"TO 1910", QualifierTo, "", "1910"},
		{"44 BCE", QualifierNone, "44 BCE", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse(reg(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.qual, v.Qualifier)
			if tt.start == "" {
				assert.Nil(t, v.Start)
			} else {
				require.NotNil(t, v.Start)
				assert.Equal(t, tt.start, v.Start.String())
				assert.Equal(t, "GREGORIAN", v.Start.Calendar)
			}
			if tt.end == "" {
				assert.Nil(t, v.End)
			} else {
				require.NotNil(t, v.End)
				assert.Equal(t, tt.end, v.End.String())
			}
		})
	}
}

func TestParse_EpochYear(t *testing.T) {
	v, err := Parse(reg(), "1 BC")
	require.NoError(t, err)
	require.NotNil(t, v.Start)
	assert.Equal(t, 1, v.Start.Year)
	assert.Equal(t, "BC", v.Start.Epoch)
	assert.Equal(t, -1, v.Start.SignedYear())

	v, err = Parse(reg(), "2 BCE")
	require.NoError(t, err)
	assert.Equal(t, -2, v.Start.SignedYear())

	for _, in := range []string{"0 BC", "0 BCE", "0", "JAN 0", "JULIAN 0 BCE"} {
		_, err := Parse(reg(), in)
		require.Error(t, err, in)
		var de *InvalidDateError
		require.True(t, errors.As(err, &de), in)
		assert.Contains(t, de.Msg, "year 0")
	}
}

func TestParse_Calendars(t *testing.T) {
	v, err := Parse(reg(), "JULIAN 29 FEB 1700")
	require.NoError(t, err)
	assert.Equal(t, "JULIAN", v.Start.Calendar)
	assert.Equal(t, 29, v.Start.Day)

	v, err = Parse(reg(), "@#DJULIAN@ 1 JAN 1700")
	require.NoError(t, err)
	assert.Equal(t, "JULIAN", v.Start.Calendar)

	v, err = Parse(reg(), "@#DFRENCH R@ 6 COMP 11")
	require.NoError(t, err)
	assert.Equal(t, "FRENCH_R", v.Start.Calendar)
	assert.Equal(t, "COMP", v.Start.Month)

	v, err = Parse(reg(), "HEBREW 1 adr 5780")
	require.NoError(t, err)
	assert.Equal(t, "ADR", v.Start.Month)

	v, err = Parse(reg(), "BET JULIAN 1700 AND GREGORIAN 1710")
	require.NoError(t, err)
	assert.Equal(t, "JULIAN", v.Start.Calendar)
	assert.Equal(t, "GREGORIAN", v.End.Calendar)
	assert.Equal(t, "BET JULIAN 1700 AND 1710", v.String())

	// Unregistered extension calendars accept their own months and epochs.
	v, err = Parse(reg(), "_MAYAN 3 _POP 2000 _BAKTUN")
	require.NoError(t, err)
	assert.Equal(t, "_MAYAN", v.Start.Calendar)
	assert.Equal(t, "_POP", v.Start.Month)
	assert.Equal(t, "_BAKTUN", v.Start.Epoch)

	// A lone extension word followed by a year reads as a month.
	v, err = Parse(reg(), "_LEAP 2000")
	require.NoError(t, err)
	assert.Equal(t, "GREGORIAN", v.Start.Calendar)
	assert.Equal(t, "_LEAP", v.Start.Month)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		in  string
		msg string
	}{
		{"32 JAN 2000", "exceeds the 31 days"},
		{"30 FEB 2000", "exceeds the 29 days"},
		{"0 JAN 2000", "invalid day"},
		{"1 FOO 2000", "unknown month"},
		{"HEBREW 1 JAN 5780", "unknown month"},
		{"FRENCH_R 11 BCE", "not permitted"},
		{"2000 AD", "not permitted"},
		{"MARTIAN 2000", "unknown month"},
		{"@#DMARTIAN@ 2000", "unknown calendar"},
		{"BET 1900", "BET without AND"},
		{"1900 AND 1910", "unexpected"},
		{"AND 1910", "AND without BET"},
		{"ABT", "missing date"},
		{"FROM 1900 TO", "missing date"},
		{"JULIAN", "calendar without date"},
		{"JAN", "malformed date"},
		{"1 2 3", "malformed date"},
		{"(just a phrase)", "phrase without date"},
		{"1 JAN 2000 @#DJULIAN@", "calendar escape inside date"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(reg(), tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDate))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParse_Phrase(t *testing.T) {
	v, err := Parse(reg(), "ABT 1850 (family bible)")
	require.NoError(t, err)
	assert.Equal(t, "family bible", v.Phrase)
	assert.Equal(t, "ABT 1850 (family bible)", v.String())
}

func TestParse_Empty(t *testing.T) {
	v, err := Parse(reg(), "")
	require.NoError(t, err)
	assert.True(t, v.IsEmpty())
	assert.Equal(t, "", v.String())
}

func TestParse_NilSourceUsesBundled(t *testing.T) {
	v, err := Parse(nil, "1 JAN 2000")
	require.NoError(t, err)
	assert.Equal(t, "JAN", v.Start.Month)
}

func TestValidate_TimeExclusivity(t *testing.T) {
	noon := Time{Hour: 12, Minute: 0, Second: -1}

	single := MustParse(reg(), "1 JAN 2000").WithTime(noon)
	assert.NoError(t, single.Validate())

	approx := MustParse(reg(), "ABT 1 JAN 2000").WithTime(noon)
	assert.NoError(t, approx.Validate())

	for _, in := range []string{"FROM 1900 TO 1910", "TO 1910", "BET 1900 AND 1910", "BEF 1900", "AFT 1900"} {
		v := MustParse(reg(), in).WithTime(noon)
		err := v.Validate()
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidDate))
	}
}

func TestParseExact(t *testing.T) {
	d, err := ParseExact(reg(), "7 MAR 2024")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, "MAR", 7), d)

	for _, in := range []string{"MAR 2024", "2024", "ABT 7 MAR 2024", "JULIAN 7 MAR 2024", "7 MAR 2024 BCE", "7 MAR 2024 (x)"} {
		_, err := ParseExact(reg(), in)
		assert.Error(t, err, in)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want Time
	}{
		{"02:30", Time{Hour: 2, Minute: 30, Second: -1}},
		{"2:30", Time{Hour: 2, Minute: 30, Second: -1}},
		{"23:59:59", Time{Hour: 23, Minute: 59, Second: 59}},
		{"12:00:00.250Z", Time{Hour: 12, Second: 0, Fraction: "250", UTC: true}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "02:30", Time{Hour: 2, Minute: 30, Second: -1}.String())
	assert.Equal(t, "12:00:00.250Z", Time{Hour: 12, Fraction: "250", UTC: true}.String())

	for _, in := range []string{"24:00", "12", "12:60", "12:00:60", "12:0", "12:00:00.", "ab:cd", "1:2:3:4"} {
		_, err := ParseTime(in)
		assert.Error(t, err, in)
	}
}

func TestBuilders(t *testing.T) {
	a := NewDate(1900, "", 0)
	b := NewDate(1910, "DEC", 31)

	tests := []struct {
		v    DateValue
		want string
	}{
		{Exact(NewDate(-44, "MAR", 15)), "15 MAR 44 BCE"},
		{About(a), "ABT 1900"},
		{Calculated(a), "CAL 1900"},
		{Estimated(a), "EST 1900"},
		{Before(b), "BEF 31 DEC 1910"},
		{After(a), "AFT 1900"},
		{Between(a, b), "BET 1900 AND 31 DEC 1910"},
		{Period(&a, &b), "FROM 1900 TO 31 DEC 1910"},
		{Period(&a, nil), "FROM 1900"},
		{Period(nil, &b), "TO 31 DEC 1910"},
		{Exact(NewDate(1700, "JAN", 1).In("JULIAN")), "JULIAN 1 JAN 1700"},
		{About(a).WithPhrase("roughly"), "ABT 1900 (roughly)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
			require.NoError(t, Check(reg(), tt.v))

			parsed, err := Parse(reg(), tt.v.String())
			require.NoError(t, err)
			assert.Equal(t, tt.v.String(), parsed.String())
		})
	}

	assert.Error(t, Check(reg(), Exact(NewDate(2000, "FEB", 30))))
	assert.Error(t, Check(reg(), Between(a, b).WithTime(Time{Hour: 1, Second: -1})))
}
