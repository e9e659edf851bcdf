// Package gedcom builds, validates, encodes and decodes GEDCOM 7 record
// trees against a registry of structure definitions.
//
// A Genealogy holds level-0 records and the cross-reference table that
// binds identifiers to them. Trees are grown with a Builder, which
// rejects children the registry does not permit and children beyond
// their maximum cardinality:
//
//	g := gedcom.New("family", nil)
//	b := g.Builder()
//	b.Header("7.0")
//	indi, _ := b.Record("INDI")
//	b.Add(indi, "NAME", "Ada /Lovelace/")
//	b.Trailer()
//
//	report := gedcom.Validate(g, gedcom.ValidateOptions{})
//	err := g.Encode(os.Stdout, gedcom.EncodeOptions{})
//
// Decode reads the line format back. It checks syntax and nesting only;
// Validate applies the structural rules: permitted children,
// cardinalities, enumeration values, pointer targets and dates.
//
// Extension tags (those starting with '_') are accepted anywhere.
// Extensions without a registry entry are opaque and their subtrees are
// not validated.
package gedcom
