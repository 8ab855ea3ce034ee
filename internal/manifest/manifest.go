// Package manifest resolves qualified external call targets to declared
// effect sets. The effect propagator consumes only the Resolver interface;
// the JSON document format is the stable external contract the compiler
// toolchain writes, and this package does not care how the bytes were
// obtained.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/riftlang/riftcheck/internal/effects"
)

// Resolution reports how (or whether) a qualified name was matched.
// The resolution order is fixed: exact member match, then the declaring
// type's wildcard member, then the type-level default, then the
// namespace-level default, then Unknown.
type Resolution int

const (
	ResolvedMember Resolution = iota
	ResolvedTypeWildcard
	ResolvedTypeDefault
	ResolvedNamespaceDefault
	Unknown
)

func (r Resolution) String() string {
	switch r {
	case ResolvedMember:
		return "member"
	case ResolvedTypeWildcard:
		return "type-wildcard"
	case ResolvedTypeDefault:
		return "type-default"
	case ResolvedNamespaceDefault:
		return "namespace-default"
	case Unknown:
		return "unknown"
	default:
		return "?"
	}
}

// Resolver maps an external qualified name to its declared effect set.
// Implementations must be safe for concurrent use: the propagator consults
// the resolver from multiple workers.
type Resolver interface {
	Resolve(qualified string) (effects.Set, Resolution)
}

// Document is a parsed effect manifest.
//
// The JSON layout is keyed namespace -> type -> member -> effect codes,
// with optional "_default" entries at the namespace and type level and an
// optional "*" wildcard member per type:
//
//	{
//	  "namespaces": {
//	    "System.IO": {
//	      "_default": ["fs:rw"],
//	      "types": {
//	        "File": {
//	          "_default": ["fs:rw"],
//	          "members": {
//	            "Exists": ["fs:r"],
//	            "*": ["fs:rw"]
//	          }
//	        }
//	      }
//	    }
//	  }
//	}
type Document struct {
	namespaces map[string]*namespaceEntry
}

type namespaceEntry struct {
	def   *effects.Set
	types map[string]*typeEntry
}

type typeEntry struct {
	def      *effects.Set
	wildcard *effects.Set
	members  map[string]effects.Set
}

type jsonDocument struct {
	Namespaces map[string]jsonNamespace `json:"namespaces"`
}

type jsonNamespace struct {
	Default []string            `json:"_default"`
	Types   map[string]jsonType `json:"types"`
}

type jsonType struct {
	Default []string            `json:"_default"`
	Members map[string][]string `json:"members"`
}

// Load reads and parses a manifest document.
func Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}

// Parse parses a manifest document from raw JSON.
func Parse(data []byte) (*Document, error) {
	var jd jsonDocument
	if err := json.Unmarshal(data, &jd); err != nil {
		return nil, fmt.Errorf("malformed manifest: %w", err)
	}

	doc := &Document{namespaces: make(map[string]*namespaceEntry, len(jd.Namespaces))}
	for nsName, jns := range jd.Namespaces {
		ns := &namespaceEntry{types: make(map[string]*typeEntry, len(jns.Types))}
		if jns.Default != nil {
			set, err := parseSet(jns.Default)
			if err != nil {
				return nil, fmt.Errorf("namespace %q default: %w", nsName, err)
			}
			ns.def = &set
		}
		for typeName, jt := range jns.Types {
			te := &typeEntry{members: make(map[string]effects.Set, len(jt.Members))}
			if jt.Default != nil {
				set, err := parseSet(jt.Default)
				if err != nil {
					return nil, fmt.Errorf("type %s.%s default: %w", nsName, typeName, err)
				}
				te.def = &set
			}
			for member, codes := range jt.Members {
				set, err := parseSet(codes)
				if err != nil {
					return nil, fmt.Errorf("member %s.%s.%s: %w", nsName, typeName, member, err)
				}
				if member == "*" {
					te.wildcard = &set
					continue
				}
				te.members[member] = set
			}
			ns.types[typeName] = te
		}
		doc.namespaces[nsName] = ns
	}
	return doc, nil
}

func parseSet(codes []string) (effects.Set, error) {
	parsed, err := effects.ParseAll(codes)
	if err != nil {
		return effects.Set{}, err
	}
	return effects.NewSet(parsed...), nil
}

// Resolve implements Resolver. A qualified name has the form
// "Namespace.Type.Member" where the namespace may itself be dotted.
func (d *Document) Resolve(qualified string) (effects.Set, Resolution) {
	nsName, typeName, member, ok := splitQualified(qualified)
	if !ok {
		return effects.Set{}, Unknown
	}

	ns, ok := d.namespaces[nsName]
	if !ok {
		return effects.Set{}, Unknown
	}

	if te, ok := ns.types[typeName]; ok {
		if set, ok := te.members[member]; ok {
			return set, ResolvedMember
		}
		if te.wildcard != nil {
			return *te.wildcard, ResolvedTypeWildcard
		}
		if te.def != nil {
			return *te.def, ResolvedTypeDefault
		}
	}
	if ns.def != nil {
		return *ns.def, ResolvedNamespaceDefault
	}
	return effects.Set{}, Unknown
}

// splitQualified splits "A.B.Type.Member" into namespace "A.B", type
// "Type", and member "Member". At least three segments are required.
func splitQualified(qualified string) (ns, typeName, member string, ok bool) {
	parts := strings.Split(qualified, ".")
	if len(parts) < 3 {
		return "", "", "", false
	}
	member = parts[len(parts)-1]
	typeName = parts[len(parts)-2]
	ns = strings.Join(parts[:len(parts)-2], ".")
	return ns, typeName, member, true
}

// Static is a fixed-table resolver for tests and embedding scenarios.
type Static map[string]effects.Set

// Resolve implements Resolver via exact lookup.
func (s Static) Resolve(qualified string) (effects.Set, Resolution) {
	if set, ok := s[qualified]; ok {
		return set, ResolvedMember
	}
	return effects.Set{}, Unknown
}
