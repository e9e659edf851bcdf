package registry

import "strings"

// PayloadKind classifies a payload-type identifier.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadString
	PayloadOptionalY // "Y|<NULL>"
	PayloadInteger
	PayloadEnum
	PayloadEnumList
	PayloadPointer
	PayloadTextList
	PayloadLanguage
	PayloadDate
	PayloadDatePeriod
	PayloadDateExact
	PayloadTime
	PayloadAge
	PayloadName
	PayloadFilePath
	PayloadMediaType
	PayloadOther
)

var payloadKindNames = map[PayloadKind]string{
	PayloadNone:       "none",
	PayloadString:     "string",
	PayloadOptionalY:  "Y|<NULL>",
	PayloadInteger:    "integer",
	PayloadEnum:       "enum",
	PayloadEnumList:   "enum-list",
	PayloadPointer:    "pointer",
	PayloadTextList:   "text-list",
	PayloadLanguage:   "language",
	PayloadDate:       "date",
	PayloadDatePeriod: "date-period",
	PayloadDateExact:  "date-exact",
	PayloadTime:       "time",
	PayloadAge:        "age",
	PayloadName:       "name",
	PayloadFilePath:   "file-path",
	PayloadMediaType:  "media-type",
	PayloadOther:      "other",
}

func (k PayloadKind) String() string {
	if s, ok := payloadKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// PayloadType is a parsed payload-type identifier.
type PayloadType struct {
	Raw  string // expanded identifier as written in the source
	Kind PayloadKind

	// Target is the structure key a pointer payload must reference.
	Target    string
	targetURI string
}

// IsDate reports whether the payload is one of the date forms.
func (p PayloadType) IsDate() bool {
	return p.Kind == PayloadDate || p.Kind == PayloadDatePeriod || p.Kind == PayloadDateExact
}

// Known CURIE prefixes accepted in specification sources.
var prefixes = map[string]string{
	"g7":   "https://gedcom.io/terms/v7/",
	"xsd":  "http://www.w3.org/2001/XMLSchema#",
	"dcat": "http://www.w3.org/ns/dcat#",
}

// ExpandURI expands a CURIE such as "g7:record-INDI" to its full URI.
// Strings without a known prefix are returned unchanged.
func ExpandURI(s string) string {
	prefix, rest, ok := strings.Cut(s, ":")
	if !ok {
		return s
	}
	if base, ok := prefixes[prefix]; ok {
		return base + rest
	}
	return s
}

// lastSegment returns the part of a URI after the last '/' or '#'.
func lastSegment(uri string) string {
	if i := strings.LastIndexAny(uri, "/#"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

func isURI(s string) bool {
	if strings.Contains(s, "://") {
		return true
	}
	prefix, _, ok := strings.Cut(s, ":")
	if !ok {
		return false
	}
	_, known := prefixes[prefix]
	return known
}

const (
	g7Base  = "https://gedcom.io/terms/v7/"
	xsdBase = "http://www.w3.org/2001/XMLSchema#"
)

// ParsePayloadType classifies a payload-type identifier. An empty
// identifier means the structure carries no payload.
func ParsePayloadType(raw string) PayloadType {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return PayloadType{Kind: PayloadNone}
	}
	if strings.HasPrefix(raw, "@<") && strings.HasSuffix(raw, ">@") {
		target := ExpandURI(raw[2 : len(raw)-2])
		return PayloadType{Raw: "@<" + target + ">@", Kind: PayloadPointer, targetURI: target}
	}

	uri := ExpandURI(raw)
	p := PayloadType{Raw: uri}
	switch uri {
	case "Y|<NULL>":
		p.Kind = PayloadOptionalY
	case xsdBase + "string":
		p.Kind = PayloadString
	case xsdBase + "nonNegativeInteger":
		p.Kind = PayloadInteger
	case xsdBase + "Language":
		p.Kind = PayloadLanguage
	case g7Base + "type-Enum":
		p.Kind = PayloadEnum
	case g7Base + "type-List#Enum":
		p.Kind = PayloadEnumList
	case g7Base + "type-List#Text":
		p.Kind = PayloadTextList
	case g7Base + "type-Date":
		p.Kind = PayloadDate
	case g7Base + "type-Date#period":
		p.Kind = PayloadDatePeriod
	case g7Base + "type-Date#exact":
		p.Kind = PayloadDateExact
	case g7Base + "type-Time":
		p.Kind = PayloadTime
	case g7Base + "type-Age":
		p.Kind = PayloadAge
	case g7Base + "type-Name":
		p.Kind = PayloadName
	case g7Base + "type-FilePath":
		p.Kind = PayloadFilePath
	case "http://www.w3.org/ns/dcat#mediaType":
		p.Kind = PayloadMediaType
	default:
		p.Kind = PayloadOther
	}
	return p
}
