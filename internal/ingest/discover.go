package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiscoverWorkbooks scans dir for spreadsheet inputs. The workbook whose
// filename contains catalogMarker is the product catalog; every other
// workbook is a valuation source. Excel lock files (~$ prefix) are ignored.
// A missing catalog workbook and an empty valuation set are the two fatal
// preconditions of a run.
func DiscoverWorkbooks(dir, catalogMarker string) (string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, fmt.Errorf("read input dir: %w", err)
	}

	catalogPath := ""
	valuationPaths := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".xls") && !strings.HasSuffix(lower, ".xlsx") {
			continue
		}
		path := filepath.Join(dir, name)
		if strings.Contains(name, catalogMarker) {
			if catalogPath == "" {
				catalogPath = path
			}
			continue
		}
		valuationPaths = append(valuationPaths, path)
	}

	if catalogPath == "" {
		return "", nil, fmt.Errorf("no catalog workbook (filename containing %q) in %s", catalogMarker, dir)
	}
	if len(valuationPaths) == 0 {
		return "", nil, fmt.Errorf("no valuation workbooks in %s", dir)
	}

	return catalogPath, valuationPaths, nil
}
