// Package naming implements the hierarchical dot-separated node naming
// scheme and the "previous sibling" helper the resolver uses when a
// mapping's query root is "previous".
package naming

import (
	"strconv"
	"strings"
)

// Child returns the name of the slot-th child of parent, e.g.
// Child("n0.2", "1") == "n0.2.1".
func Child(parent, slot string) string {
	return parent + "." + slot
}

// Depth counts the dots in name, e.g. Depth("n0.2.1") == 2.
func Depth(name string) int {
	return strings.Count(name, ".")
}

// Previous returns the hierarchical name of the sibling with index one
// less than name's terminal numeric slot. It returns ("", false) when the
// last component isn't a non-negative integer, or is zero (slot 0 has no
// previous sibling), matching get_previous_name in the original tool.
func Previous(name string) (string, bool) {
	dot := strings.LastIndex(name, ".")
	if dot == -1 {
		return "", false
	}
	last := name[dot+1:]
	n, err := strconv.Atoi(last)
	if err != nil || n <= 0 {
		return "", false
	}
	return name[:dot] + "." + strconv.Itoa(n-1), true
}
