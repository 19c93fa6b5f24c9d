package productinfo

import (
	"strconv"
	"strings"
)

// Structural aliases.
const (
	FieldNameID       = "@id"
	FieldNameNodeName = "@nodeName"
	FieldNamePath     = "@path"
)

// FieldKind discriminates structural node metadata from content attributes.
type FieldKind uint8

const (
	// FieldContent reads a content-defined attribute by alias.
	FieldContent FieldKind = iota
	// FieldID reads the node id.
	FieldID
	// FieldNodeName reads the node name.
	FieldNodeName
	// FieldPath reads the comma separated ancestor path.
	FieldPath
	// FieldUnknownStructural is an "@" alias with no structural meaning. It
	// never resolves.
	FieldUnknownStructural
)

// Field identifies what to read from a node.
type Field struct {
	Kind  FieldKind
	Alias string
}

// ContentField builds a content attribute field.
func ContentField(alias string) Field {
	return Field{Kind: FieldContent, Alias: alias}
}

// ParseField maps an alias onto a Field. Aliases starting with "@" address
// structural metadata.
func ParseField(alias string) Field {
	alias = strings.TrimSpace(alias)
	if !strings.HasPrefix(alias, "@") {
		return ContentField(alias)
	}
	switch alias {
	case FieldNameID:
		return Field{Kind: FieldID, Alias: alias}
	case FieldNameNodeName:
		return Field{Kind: FieldNodeName, Alias: alias}
	case FieldNamePath:
		return Field{Kind: FieldPath, Alias: alias}
	default:
		return Field{Kind: FieldUnknownStructural, Alias: alias}
	}
}

// IsZero reports whether the field addresses nothing.
func (f Field) IsZero() bool {
	return f.Alias == ""
}

// Structural reports whether the field reads node metadata.
func (f Field) Structural() bool {
	return f.Kind != FieldContent
}

func (f Field) String() string {
	return f.Alias
}

func (f Field) valueOf(rec NodeRecord) string {
	switch f.Kind {
	case FieldContent:
		return rec.Attributes[f.Alias]
	case FieldID:
		return strconv.FormatInt(rec.ID, 10)
	case FieldNodeName:
		return rec.Name
	case FieldPath:
		return rec.PathString()
	default:
		return ""
	}
}
