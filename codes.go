package main

import (
	"sort"
	"strings"
)

// ReplacementRules maps a source code to the codes it stands for.
type ReplacementRules map[string][]string

func sortedCodes(known map[string]bool) []string {
	out := make([]string, 0, len(known))
	for c := range known {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// matchCodes returns every known code that occurs literally in summary.
// Matching is case sensitive with no tokenization. Codes are tried in sorted
// order so the result is deterministic.
func matchCodes(summary string, known map[string]bool) []string {
	var matched []string
	for _, code := range sortedCodes(known) {
		if code == "" {
			continue
		}
		if strings.Contains(summary, code) {
			matched = append(matched, code)
		}
	}
	return matched
}

// resolveCodes expands codes through the rules exactly once. Targets are
// never looked up again, so A -> [B] with B -> [C] resolves A to B.
func resolveCodes(codes []string, rules ReplacementRules) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if targets, has := rules[code]; has && len(targets) > 0 {
			out = append(out, targets...)
			continue
		}
		out = append(out, code)
	}
	return out
}

// dedupeCodes trims codes, drops blanks and keeps the first occurrence of each.
func dedupeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// parseRemark splits a remark cell into its codes. Codes are separated by
// spaces; line breaks inside the cell count as separators too.
func parseRemark(remark string) []string {
	return dedupeCodes(strings.Fields(cellText(remark)))
}

// parseTargets reads the target list of a replacement rule as typed by a
// user, accepting both ASCII and full-width commas.
func parseTargets(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")
	return dedupeCodes(strings.Split(s, ","))
}
