package core

import "strings"

// SafeName turns a dotted field path into a LookML identifier.
func SafeName(name string) string {
	return strings.ReplaceAll(name, ".", "__")
}

// TextualName turns a dotted field path into space separated words.
func TextualName(name string) string {
	return strings.ReplaceAll(name, ".", " ")
}

// LastSegment returns the last element of a dotted path.
func LastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ParentPath returns everything before the last element of a dotted path.
func ParentPath(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return ""
}
