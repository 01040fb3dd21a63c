package main

import "strings"

// filterEffects returns effects matching the query (case-insensitive substring match)
func filterEffects(allNames []string, query string) []string {
	if query == "" {
		return allNames
	}

	queryLower := strings.ToLower(query)
	filtered := make([]string, 0)
	for _, name := range allNames {
		if strings.Contains(strings.ToLower(name), queryLower) {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

// indexOf returns the position of name in names, or 0 when absent.
func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return 0
}

// isNameRune accepts the characters effect ids are made of.
func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}
