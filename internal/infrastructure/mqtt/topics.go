package mqtt

import "strings"

// JoinTopic builds "{prefix}/{suffix}" without doubling separators.
//
// Example: JoinTopic("room1", "temperature") returns "room1/temperature".
func JoinTopic(prefix, suffix string) string {
	prefix = strings.TrimRight(prefix, "/")
	suffix = strings.TrimLeft(suffix, "/")
	switch {
	case prefix == "":
		return suffix
	case suffix == "":
		return prefix
	}
	return prefix + "/" + suffix
}
