package asset

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultName is used when a new object is given an empty name.
const DefaultName = "Untitled"

func folded(names []string) map[string]bool {
	fold := cases.Fold()
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[fold.String(n)] = true
	}
	return taken
}

// Dedupe returns name unchanged when no sibling carries it, compared with
// Unicode case folding. Otherwise it appends " (n)" with the smallest n that
// is free.
func Dedupe(name string, siblings []string) string {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	taken := folded(siblings)
	fold := cases.Fold()
	if !taken[fold.String(name)] {
		return name
	}
	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s (%d)", name, n)
		if !taken[fold.String(cand)] {
			return cand
		}
	}
}

// DedupeFile is Dedupe for file names: the counter goes before the
// extension, so "beep.wav" becomes "beep (1).wav".
func DedupeFile(name string, siblings []string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if strings.TrimSpace(stem) == "" {
		stem = DefaultName
	}
	taken := folded(siblings)
	fold := cases.Fold()
	if !taken[fold.String(stem+ext)] {
		return stem + ext
	}
	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !taken[fold.String(cand)] {
			return cand
		}
	}
}

// validName rejects names that cannot be used as a single path element.
func validName(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}
