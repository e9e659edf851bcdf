// Package registry holds the typed GEDCOM specification table.
//
// A Registry is built once from one or more specification sources (YAML
// or JSON), each a mapping from structure key or URI to an entry:
//
//	g7:record-FAM:
//	  standard tag: FAM
//	  payload: null
//	  substructures:
//	    MARR: "{0:M}"
//	    FAM-HUSB: "{0:1}"
//
// Several structures share a wire tag (DATE appears as DATE, HEAD-DATE
// and DATE-exact), so children are resolved by tag in the context of
// their parent's key with Child. Entries may also declare enumeration
// sets, enumeration values, calendars, months and data types.
//
// After Build returns the Registry is immutable and safe for concurrent
// use. Default returns the bundled GEDCOM 7.0 registry.
package registry
