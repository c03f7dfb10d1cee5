package cloud

import "strings"

// ObjectName strips the stage prefix from a listed remote key, yielding the
// object name relative to the stage. A key outside the prefix violates the
// enumeration contract. A key equal to the prefix is a zero-byte directory
// marker and yields an empty name, which callers skip.
func ObjectName(key, prefix string) (string, error) {
	name, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return "", &FileNameParseError{Key: key, Prefix: prefix}
	}
	return name, nil
}
