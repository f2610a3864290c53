package fetcher

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// ReadCSV reads a CSV document into a header row plus data rows.
// Rows may have differing field counts; quoting is lenient because
// exported trade spreadsheets are rarely well-formed.
func ReadCSV(r io.Reader) (header []string, rows [][]string, err error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetcher: parse csv")
	}
	if len(all) == 0 {
		return nil, nil, eris.New("fetcher: csv input is empty")
	}
	return all[0], all[1:], nil
}

// ReadCSVFile reads a CSV file from disk.
func ReadCSVFile(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetcher: open csv file")
	}
	defer f.Close()
	return ReadCSV(f)
}
