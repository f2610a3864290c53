package fetcher

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/timberline-data/enrich-cli/internal/model"
)

// Entities maps table rows onto entities using the resolved columns.
// Rows with a blank name cell are skipped; short rows are padded.
func Entities(rows [][]string, cols ColumnMap) []model.Entity {
	out := make([]model.Entity, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(cell(row, cols.Name))
		if name == "" {
			continue
		}
		out = append(out, model.Entity{
			Name:            name,
			ExpectedCity:    strings.TrimSpace(cell(row, cols.City)),
			ExpectedAddress: strings.TrimSpace(cell(row, cols.Address)),
		})
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// LoadEntities resolves an input reference (local path or http/ftp
// URL), reads the table, and returns its entities. Column overrides
// may be empty, in which case they are auto-detected from the header.
func LoadEntities(ctx context.Context, input, nameCol, cityCol, addressCol string) ([]model.Entity, error) {
	tmpDir, err := os.MkdirTemp("", "enrich-input-*")
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	path, err := Localize(ctx, input, tmpDir)
	if err != nil {
		return nil, err
	}

	header, rows, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	cols, err := DetectColumns(header, nameCol, cityCol, addressCol)
	if err != nil {
		return nil, err
	}

	entities := Entities(rows, cols)
	zap.L().Info("fetcher: input loaded",
		zap.String("input", input),
		zap.Int("rows", len(rows)),
		zap.Int("entities", len(entities)),
		zap.Int("name_col", cols.Name),
		zap.Int("city_col", cols.City),
		zap.Int("address_col", cols.Address),
	)
	return entities, nil
}
