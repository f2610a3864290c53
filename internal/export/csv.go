package export

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/timberline-data/enrich-cli/internal/model"
)

// WriteCSV writes the batch to a UTF-8 CSV file with the fixed header
// row. The file is created or truncated.
func WriteCSV(path string, results []model.ResearchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, res := range results {
		if err := w.Write(Row(res)); err != nil {
			return eris.Wrapf(err, "export: write csv row for %q", res.Entity.Name)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}

	zap.L().Info("export: csv written", zap.String("path", path), zap.Int("rows", len(results)))
	return nil
}
