package domain

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// versionRegex matches "<prefix>C<digits>" base names, e.g. "PlanC3"
var versionRegex = regexp.MustCompile(`^(.*)C([0-9]+)$`)

// VersionedName is a base name split into its version prefix and number
type VersionedName struct {
	Prefix  string
	Version int
}

// String renders the name without suffix
func (v VersionedName) String() string {
	return fmt.Sprintf("%sC%d", v.Prefix, v.Version)
}

// SplitExt splits a document path into directory, base name without
// suffix, and suffix (including the dot)
func SplitExt(p string) (dir, base, ext string) {
	dir, file := path.Split(p)
	ext = path.Ext(file)
	return strings.TrimSuffix(dir, "/"), strings.TrimSuffix(file, ext), ext
}

// ParseVersionedName parses a base name. Names without a "C<digits>"
// suffix are version 0 of themselves.
func ParseVersionedName(base string) VersionedName {
	m := versionRegex.FindStringSubmatch(base)
	if m == nil {
		return VersionedName{Prefix: base}
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return VersionedName{Prefix: base}
	}
	return VersionedName{Prefix: m[1], Version: n}
}

// versionOf returns the version a document has within the prefix family,
// or false when it belongs to another family
func versionOf(docPath, prefix string) (int, bool) {
	_, base, _ := SplitExt(docPath)
	if base == prefix {
		return 0, true
	}
	m := versionRegex.FindStringSubmatch(base)
	if m == nil || m[1] != prefix {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextVersionPath computes the path of a document derived from source.
// groupMembers are the members of the source's linkage group, or nil when
// the source is ungrouped. The new version is one past the highest version
// of the source's prefix found among the group members, so numbering stays
// collision-free whichever member is cloned.
func NextVersionPath(source string, groupMembers []string) string {
	dir, base, ext := SplitExt(source)
	name := ParseVersionedName(base)

	highest := name.Version
	for _, m := range groupMembers {
		if v, ok := versionOf(m, name.Prefix); ok && v > highest {
			highest = v
		}
	}

	next := VersionedName{Prefix: name.Prefix, Version: highest + 1}
	return path.Join(dir, next.String()+ext)
}
