package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const defaultReportSheet = "Split Ledger"

var reportColumns = []string{"Date", "Summary", "Department", "Debit", "Credit", "Code"}

// excelReport renders a split result into a sheet of an xlsx workbook. Header
// cells span rows 1 and 2; entries start on row 3 and a totals row follows.
type excelReport struct {
	sheet     string
	overwrite bool
}

var _ Renderer = excelReport{}

// defaultReportPath puts the report next to the source ledger.
func defaultReportPath(src string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(filepath.Dir(src), base+"_separate_ledger.xlsx")
}

func (r excelReport) sheetName() string {
	if r.sheet == "" {
		return defaultReportSheet
	}
	return r.sheet
}

// prepare opens dest, or starts a new workbook, with an empty report sheet.
func (r excelReport) prepare(dest string) (*excelize.File, error) {
	name := r.sheetName()
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		f := excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "rename sheet to %q", name)
		}
		return f, nil
	}

	f, err := excelize.OpenFile(dest)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dest)
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "look up sheet %q", name)
	}
	if idx >= 0 {
		if !r.overwrite {
			f.Close()
			return nil, errors.Wrapf(ErrSheetExists, "%q in %s", name, dest)
		}
		// The last sheet of a workbook cannot be deleted, so build the new one
		// under a temporary name first.
		tmp := name + "~"
		if _, err := f.NewSheet(tmp); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "create sheet %q", tmp)
		}
		if err := f.DeleteSheet(name); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "delete sheet %q", name)
		}
		if err := f.SetSheetName(tmp, name); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "rename sheet %q", tmp)
		}
		return f, nil
	}
	if _, err := f.NewSheet(name); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "create sheet %q", name)
	}
	return f, nil
}

func (r excelReport) Render(ctx context.Context, res SplitResult, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", dest)
	}
	f, err := r.prepare(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	name := r.sheetName()

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	headStyle, err := f.NewStyle(&excelize.Style{
		Border:    border,
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	textStyle, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return errors.Wrap(err, "text style")
	}
	amountStyle, err := f.NewStyle(&excelize.Style{Border: border, NumFmt: 3})
	if err != nil {
		return errors.Wrap(err, "amount style")
	}

	for i, title := range reportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetCellValue(name, col+"1", title); err != nil {
			return errors.Wrapf(err, "write header %q", title)
		}
		if err := f.MergeCell(name, col+"1", col+"2"); err != nil {
			return errors.Wrapf(err, "merge header %q", title)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(reportColumns))
	if err := f.SetCellStyle(name, "A1", lastCol+"2", headStyle); err != nil {
		return errors.Wrap(err, "style header")
	}

	row := 3
	for _, e := range res.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		vals := []interface{}{e.Date, e.Abstract, e.Department, e.Debit, e.Credit, e.Code}
		if err := f.SetSheetRow(name, cell, &vals); err != nil {
			return errors.Wrapf(err, "write row %d", row)
		}
		row++
	}
	totalCell, _ := excelize.CoordinatesToCellName(1, row)
	totals := []interface{}{"", "Total", "", res.TotalDebit, res.TotalCredit, ""}
	if err := f.SetSheetRow(name, totalCell, &totals); err != nil {
		return errors.Wrap(err, "write totals")
	}

	if err := f.SetCellStyle(name, "A3", "C"+strconv.Itoa(row), textStyle); err != nil {
		return errors.Wrap(err, "style entries")
	}
	if err := f.SetCellStyle(name, "D3", "E"+strconv.Itoa(row), amountStyle); err != nil {
		return errors.Wrap(err, "style amounts")
	}
	if err := f.SetCellStyle(name, "F3", "F"+strconv.Itoa(row), textStyle); err != nil {
		return errors.Wrap(err, "style codes")
	}
	for col, width := range map[string]float64{"A": 12, "B": 40, "C": 16, "D": 14, "E": 14, "F": 10} {
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return errors.Wrapf(err, "width of column %s", col)
		}
	}

	idx, err := f.GetSheetIndex(name)
	if err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	if err := f.SaveAs(dest); err != nil {
		return errors.Wrapf(err, "save %s", dest)
	}
	loggerFrom(ctx).Info().Str("file", dest).Str("sheet", name).Int("entries", len(res.Entries)).Msg("Wrote report")
	return nil
}
