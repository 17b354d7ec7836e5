package ingest

import "strings"

// headerIndex maps trimmed header names to their column position, dropping
// duplicate names so the first occurrence wins.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if _, seen := index[name]; seen {
			continue
		}
		index[name] = i
	}
	return index
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// findSubstringColumn returns the first column whose header contains probe,
// deterministic by column order.
func findSubstringColumn(header []string, probe string) int {
	for i, h := range header {
		if strings.Contains(strings.TrimSpace(h), probe) {
			return i
		}
	}
	return -1
}
