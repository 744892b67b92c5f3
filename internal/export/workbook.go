package export

import (
	"fmt"

	"github.com/google/renameio/v2"
	"github.com/xuri/excelize/v2"
)

// statsSheetName is the name of the optional aggregate sheet.
const statsSheetName = "Statistics"

// sheet is a named grid of cells, header row first.
type sheet struct {
	name string
	rows [][]any
}

func dataSheet(name string, columns []string, rows []Row) *sheet {
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	sh := &sheet{name: name, rows: [][]any{header}}
	for _, r := range rows {
		sh.rows = append(sh.rows, r.values(columns))
	}
	return sh
}

// statsSheet returns nil when there are no statistics to write.
func statsSheet(stats []Stat) *sheet {
	if len(stats) == 0 {
		return nil
	}
	sh := &sheet{name: statsSheetName, rows: [][]any{{"Metric", "Value"}}}
	for _, s := range stats {
		sh.rows = append(sh.rows, []any{s.Metric, s.Value})
	}
	return sh
}

// writeWorkbook renders the sheets and atomically places the file at path.
// The workbook is written to a pending file in the same directory and only
// renamed into place once fully written.
func writeWorkbook(path string, data, stats *sheet) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), data.name); err != nil {
		return fmt.Errorf("name sheet %s: %w", data.name, err)
	}
	if err := fillSheet(f, data); err != nil {
		return err
	}
	if stats != nil {
		if _, err := f.NewSheet(stats.name); err != nil {
			return fmt.Errorf("add sheet %s: %w", stats.name, err)
		}
		if err := fillSheet(f, stats); err != nil {
			return err
		}
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := f.WriteTo(pf); err != nil {
		return fmt.Errorf("serialize workbook: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit workbook: %w", err)
	}
	return nil
}

func fillSheet(f *excelize.File, sh *sheet) error {
	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sh.name, i+1, err)
		}
		if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sh.name, i+1, err)
		}
	}

	if len(sh.rows) == 0 || len(sh.rows[0]) == 0 {
		return nil
	}
	lastCol, err := excelize.ColumnNumberToName(len(sh.rows[0]))
	if err != nil {
		return fmt.Errorf("sheet %s: %w", sh.name, err)
	}
	if err := f.SetColWidth(sh.name, "A", lastCol, 20); err != nil {
		return fmt.Errorf("sheet %s: %w", sh.name, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("sheet %s: %w", sh.name, err)
	}
	if err := f.SetCellStyle(sh.name, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("sheet %s: %w", sh.name, err)
	}
	return nil
}
