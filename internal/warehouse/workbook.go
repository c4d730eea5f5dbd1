package warehouse

import (
	"context"
	"fmt"

	"github.com/newthinker/nseetl/internal/core"
	"github.com/newthinker/nseetl/internal/storage/archive"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// Workbook writes the star schema as one xlsx file with a sheet per table
type Workbook struct {
	storage archive.Storage
	name    string
}

// NewWorkbook creates a sink writing to name inside storage
func NewWorkbook(storage archive.Storage, name string) *Workbook {
	return &Workbook{storage: storage, name: name}
}

func (w *Workbook) Name() string {
	return "workbook"
}

// Load renders and overwrites the workbook
func (w *Workbook) Load(ctx context.Context, schema *core.StarSchema) error {
	data, err := RenderWorkbook(schema)
	if err != nil {
		return err
	}
	return w.storage.Write(ctx, w.name, data)
}

// RenderWorkbook builds the xlsx bytes for schema
func RenderWorkbook(schema *core.StarSchema) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	bhav := make([][]any, len(schema.FactBhav))
	for i, r := range schema.FactBhav {
		bhav[i] = []any{r.ID, r.Symbol, r.Sector, r.Date.Format(dateLayout), r.LastPrice}
	}
	ma := make([][]any, len(schema.FactMA))
	for i, r := range schema.FactMA {
		ma[i] = []any{r.ID, r.Sector, r.Date.Format(dateLayout), r.Close}
	}
	dims := make([][]any, len(schema.Dates))
	for i, d := range schema.Dates {
		dims[i] = []any{d.ID, d.Date.Format(dateLayout), d.Day, d.Weekday, d.Week, d.Month, d.Quarter, d.Year, d.Flag}
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{TableFactBhav, []any{"ID_BHAV", "SYMBOL", "SECTOR", "DATE", "LAST_PRICE"}, bhav},
		{TableFactMA, []any{"ID_MA", "SECTOR", "DATE", "CLOSE"}, ma},
		{TableDimDate, []any{"ID_DATETIME", "DATE", "DAY", "WEEKDAY", "WEEK", "MONTH", "QUARTER", "YEAR", "FLAG"}, dims},
	}

	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return nil, core.WrapError(core.ErrStorage, fmt.Errorf("sheet %s: %w", s.name, err))
		}
		if err := writeRow(f, s.name, 1, s.header); err != nil {
			return nil, err
		}
		for i, row := range s.rows {
			if err := writeRow(f, s.name, i+2, row); err != nil {
				return nil, err
			}
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("encoding workbook: %w", err))
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return core.WrapError(core.ErrStorage, fmt.Errorf("sheet %s row %d: %w", sheet, row, err))
	}
	return nil
}
