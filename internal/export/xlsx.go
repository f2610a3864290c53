package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/timberline-data/enrich-cli/internal/model"
)

const resultsSheetName = "Research Results"

// WriteXLSX writes the batch to an XLSX workbook with a single results
// sheet, bold header row, and the fixed column order.
func WriteXLSX(path string, results []model.ResearchResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(resultsSheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true

	header := sheet.AddRow()
	for _, col := range Columns {
		cell := header.AddCell()
		cell.SetString(col)
		cell.SetStyle(headerStyle)
	}

	for _, res := range results {
		row := sheet.AddRow()
		for _, v := range Row(res) {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save xlsx file")
	}

	zap.L().Info("export: xlsx written", zap.String("path", path), zap.Int("rows", len(results)))
	return nil
}
