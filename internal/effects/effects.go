// Package effects models the closed side-effect code set of the Rift
// language and the join-semilattice of effect sets used by interprocedural
// propagation.
//
// An effect code has the form "family:capability", e.g. "fs:r" or "db:rw".
// Within one family, the "rw" capability subsumes both "r" and "w"; a
// function declared with "fs:rw" may therefore call into code that only
// needs "fs:r".
package effects

import (
	"fmt"
	"sort"
	"strings"
)

// Code is a single effect code drawn from the closed enumeration, in
// "family:capability" form.
type Code string

// Capability suffixes understood by the subtyping relation.
const (
	capRead      = "r"
	capWrite     = "w"
	capReadWrite = "rw"
	capExec      = "x"
)

// families is the closed set of resource families, mapped to the
// capabilities each family admits.
var families = map[string][]string{
	"fs":   {capRead, capWrite, capReadWrite},
	"net":  {capRead, capWrite, capReadWrite},
	"db":   {capRead, capWrite, capReadWrite},
	"env":  {capRead, capWrite, capReadWrite},
	"con":  {capRead, capWrite, capReadWrite},
	"time": {capRead},
	"rand": {capRead},
	"proc": {capExec},
}

// Parse validates s against the closed enumeration and returns it as a Code.
func Parse(s string) (Code, error) {
	family, capability, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("malformed effect code %q: want family:capability", s)
	}
	caps, ok := families[family]
	if !ok {
		return "", fmt.Errorf("unknown effect family %q in %q", family, s)
	}
	for _, c := range caps {
		if c == capability {
			return Code(s), nil
		}
	}
	return "", fmt.Errorf("family %q does not admit capability %q", family, capability)
}

// MustParse is Parse for known-good literals; it panics on invalid input.
func MustParse(s string) Code {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseAll parses a list of effect code strings.
func ParseAll(ss []string) ([]Code, error) {
	out := make([]Code, 0, len(ss))
	for _, s := range ss {
		c, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Family returns the resource family of the code.
func (c Code) Family() string {
	family, _, _ := strings.Cut(string(c), ":")
	return family
}

// Capability returns the capability part of the code.
func (c Code) Capability() string {
	_, capability, _ := strings.Cut(string(c), ":")
	return capability
}

func (c Code) String() string { return string(c) }

// Subsumes reports whether holding c satisfies a requirement for other.
// A code subsumes itself, and "rw" subsumes "r" and "w" of the same family.
func (c Code) Subsumes(other Code) bool {
	if c == other {
		return true
	}
	if c.Family() != other.Family() {
		return false
	}
	if c.Capability() != capReadWrite {
		return false
	}
	oc := other.Capability()
	return oc == capRead || oc == capWrite
}

// Universe returns every code in the closed enumeration, sorted.
func Universe() []Code {
	var out []Code
	for family, caps := range families {
		for _, capability := range caps {
			out = append(out, Code(family+":"+capability))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
