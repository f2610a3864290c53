package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// ColumnMap holds resolved column indexes for building entities. City
// and Address are -1 when the table carries no such column.
type ColumnMap struct {
	Name    int
	City    int
	Address int
}

const defaultNameColumn = "Consignee Name"

// DetectColumns resolves the entity columns in a header row. Explicit
// column names are matched case-insensitively and must exist; empty
// overrides fall back to auto-detection: the default name column or any
// header containing "name", and substring matches for city/address.
func DetectColumns(header []string, nameCol, cityCol, addressCol string) (ColumnMap, error) {
	cols := ColumnMap{Name: -1, City: -1, Address: -1}

	if nameCol != "" {
		idx := findColumn(header, nameCol)
		if idx < 0 {
			return cols, eris.Errorf("fetcher: name column %q not found in header", nameCol)
		}
		cols.Name = idx
	} else {
		cols.Name = findColumn(header, defaultNameColumn)
		if cols.Name < 0 {
			cols.Name = findColumnContaining(header, "name")
		}
		if cols.Name < 0 {
			return cols, eris.New("fetcher: no business name column found; pass one explicitly")
		}
	}

	if cityCol != "" {
		idx := findColumn(header, cityCol)
		if idx < 0 {
			return cols, eris.Errorf("fetcher: city column %q not found in header", cityCol)
		}
		cols.City = idx
	} else {
		cols.City = findColumnContaining(header, "city")
	}

	if addressCol != "" {
		idx := findColumn(header, addressCol)
		if idx < 0 {
			return cols, eris.Errorf("fetcher: address column %q not found in header", addressCol)
		}
		cols.Address = idx
	} else {
		cols.Address = findColumnContaining(header, "address")
	}

	return cols, nil
}

// foldCaser gives locale-independent case folding for header matching.
var foldCaser = cases.Fold()

func findColumn(header []string, name string) int {
	want := foldCaser.String(name)
	for i, h := range header {
		if foldCaser.String(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

func findColumnContaining(header []string, substr string) int {
	for i, h := range header {
		if strings.Contains(foldCaser.String(h), substr) {
			return i
		}
	}
	return -1
}
