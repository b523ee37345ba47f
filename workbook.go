package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// openWorkbook picks a reader by file extension. sheet may be empty, which
// selects the first sheet.
func openWorkbook(path, sheet string) (Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return &xlsxBook{path: path, sheet: sheet}, nil
	case ".xls":
		return &xlsBook{path: path, sheet: sheet}, nil
	case ".csv":
		return &csvBook{path: path}, nil
	}
	return nil, errors.Errorf("unsupported workbook type: %s", path)
}

// resolveSheet finds want among names: exact match first, then equal after
// normalization, then the first name containing want.
func resolveSheet(want string, names []string) (string, error) {
	if len(names) == 0 {
		return "", errors.Wrap(ErrSheetNotFound, "workbook has no sheets")
	}
	if strings.TrimSpace(want) == "" {
		return names[0], nil
	}
	for _, n := range names {
		if n == want {
			return n, nil
		}
	}
	nw := normalizeText(want)
	for _, n := range names {
		if normalizeText(n) == nw {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.Contains(normalizeText(n), nw) {
			return n, nil
		}
	}
	return "", errors.Wrapf(ErrSheetNotFound, "%q, available: %s", want, strings.Join(names, ", "))
}

// padRows pads every row to the widest row, so fixed column positions exist
// even where the reader trimmed trailing empty cells.
func padRows(raw [][]string) []Row {
	var width int
	for _, r := range raw {
		width = max(width, len(r))
	}
	rows := make([]Row, len(raw))
	for i, r := range raw {
		row := make(Row, width)
		copy(row, r)
		rows[i] = row
	}
	return rows
}

// amountColumns are read as stored values. Their number format may round,
// parenthesize or scale what a reader displays.
var amountColumns = []int{colDebit, colCredit}

// mergeRawAmounts copies the amount columns of raw over display, row by row.
func mergeRawAmounts(display, raw [][]string) {
	for i, n := 0, min(len(display), len(raw)); i < n; i++ {
		for _, c := range amountColumns {
			if c >= len(raw[i]) {
				continue
			}
			for len(display[i]) <= c {
				display[i] = append(display[i], "")
			}
			display[i][c] = raw[i][c]
		}
	}
}

type xlsxBook struct {
	path  string
	sheet string
}

func (b *xlsxBook) open() (*excelize.File, string, error) {
	f, err := excelize.OpenFile(b.path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "open %s", b.path)
	}
	name, err := resolveSheet(b.sheet, f.GetSheetList())
	if err != nil {
		f.Close()
		return nil, "", err
	}
	return f, name, nil
}

func (b *xlsxBook) ReadRows(ctx context.Context) ([]Row, error) {
	f, name, err := b.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	display, err := f.GetRows(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", name)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "read values of sheet %q", name)
	}
	mergeRawAmounts(display, raw)
	loggerFrom(ctx).Debug().Str("file", b.path).Str("sheet", name).Int("rows", len(display)).Msg("Read workbook")
	return padRows(display), nil
}

func (b *xlsxBook) WriteCells(ctx context.Context, updates []CellUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	f, name, err := b.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	for _, u := range updates {
		cell, err := excelize.CoordinatesToCellName(u.Col, u.Row)
		if err != nil {
			return 0, errors.Wrapf(err, "cell at row %d, column %d", u.Row, u.Col)
		}
		if err := f.SetCellValue(name, cell, u.Value); err != nil {
			return 0, errors.Wrapf(err, "set %s", cell)
		}
	}
	if err := f.Save(); err != nil {
		return 0, errors.Wrapf(err, "save %s", b.path)
	}
	loggerFrom(ctx).Debug().Str("file", b.path).Int("cells", len(updates)).Msg("Saved workbook")
	return len(updates), nil
}

// xlsBook reads legacy BIFF workbooks. They cannot be written back.
type xlsBook struct {
	path  string
	sheet string
}

func (b *xlsBook) ReadRows(ctx context.Context) ([]Row, error) {
	wb, err := xls.Open(b.path, "utf-8")
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", b.path)
	}
	if wb == nil {
		return nil, errors.Errorf("open %s: no workbook stream", b.path)
	}
	names := make([]string, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		if s := wb.GetSheet(i); s != nil {
			names = append(names, s.Name)
		} else {
			names = append(names, fmt.Sprintf("Sheet%d", i+1))
		}
	}
	name, err := resolveSheet(b.sheet, names)
	if err != nil {
		return nil, err
	}
	var sheet *xls.WorkSheet
	for i, n := range names {
		if n == name {
			sheet = wb.GetSheet(i)
			break
		}
	}
	if sheet == nil {
		return nil, errors.Wrapf(ErrSheetNotFound, "%q is unreadable", name)
	}

	rows := make([]*xls.Row, int(sheet.MaxRow)+1)
	raw := make([][]string, len(rows))
	for i := range rows {
		rows[i] = xlsRow(sheet, i)
		if rows[i] == nil {
			continue
		}
		// Rows created from cells alone carry no column bounds.
		width := rows[i].LastCol()
		if width == 0 {
			width = minColumns
		}
		raw[i] = make([]string, width)
		for j := range raw[i] {
			raw[i][j] = rows[i].Col(j)
		}
	}

	// Cells are formatted when read, so amounts are read again without formats.
	rawNumbers(wb)
	for i, row := range rows {
		if row == nil {
			continue
		}
		for _, c := range amountColumns {
			if c < len(raw[i]) {
				raw[i][c] = row.Col(c)
			}
		}
	}
	loggerFrom(ctx).Debug().Str("file", b.path).Str("sheet", name).Int("rows", len(raw)).Msg("Read legacy workbook")
	return padRows(raw), nil
}

// xlsRow returns nil for rows the sheet holds no record of.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// rawNumbers resets every cell format to General. Custom formats would
// otherwise turn numbers into dates.
func rawNumbers(wb *xls.WorkBook) {
	for _, xf := range wb.Xfs {
		switch x := xf.(type) {
		case *xls.Xf8:
			x.Format = 0
		case *xls.Xf5:
			x.Format = 0
		}
	}
}

func (b *xlsBook) WriteCells(_ context.Context, updates []CellUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	return 0, errors.Wrapf(ErrReadOnly, "%s: save it as .xlsx to fill remarks", b.path)
}
