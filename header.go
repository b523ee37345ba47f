package main

import (
	"fmt"
	"strings"
)

// Row is one sheet row as displayed, 0-based by column.
type Row []string

// Fixed column contract with the ledger export. Changing any of these is a
// breaking change for every sheet produced so far.
const (
	colDate       = 0
	colSummary    = 1
	colDebit      = 2
	colCredit     = 3
	colDepartment = 8
	colRemark     = 9

	minColumns = 10
)

// HeaderLayout is the text expected in the header row. Marker identifies the
// header row through the remark column; Labels are checked on the other
// designated columns.
type HeaderLayout struct {
	Marker string         `yaml:"marker"`
	Labels map[int]string `yaml:"labels"`
}

func defaultHeaderLayout() HeaderLayout {
	return HeaderLayout{
		Marker: "Remark",
		Labels: map[int]string{
			colDate:       "Date",
			colSummary:    "Summary",
			colDebit:      "Debit",
			colCredit:     "Credit",
			colDepartment: "Department",
			colRemark:     "Remark",
		},
	}
}

func (h HeaderLayout) label(col int) string {
	if l, ok := h.Labels[col]; ok && l != "" {
		return l
	}
	return defaultHeaderLayout().Labels[col]
}

func (h HeaderLayout) marker() string {
	if h.Marker != "" {
		return h.Marker
	}
	return h.label(colRemark)
}

func rowIsBlank(row Row) bool {
	for _, c := range row {
		if !isBlank(c) {
			return false
		}
	}
	return true
}

// locateHeader finds the header row and validates it. The returned index is
// 0-based into rows.
func locateHeader(rows []Row, layout HeaderLayout) (int, Row, error) {
	marker := normalizeText(layout.marker())
	for idx, row := range rows {
		if rowIsBlank(row) {
			continue
		}
		if len(row) < minColumns {
			for _, c := range row {
				if normalizeText(c) == marker {
					return -1, nil, formatErrorf(idx+1, 0,
						"header has %d columns, expected at least %d", len(row), minColumns)
				}
			}
			continue
		}
		if normalizeText(row[colRemark]) != marker {
			continue
		}
		if err := validateHeader(idx, row, layout); err != nil {
			return -1, nil, err
		}
		return idx, row, nil
	}
	return -1, nil, formatErrorf(0, 0,
		"header not found: no row has %q in column %d", layout.marker(), colRemark+1)
}

// validateHeader reports every designated column whose header cell does not
// contain the expected label, not only the first one.
func validateHeader(idx int, row Row, layout HeaderLayout) error {
	cols := []int{colDate, colSummary, colDebit, colCredit, colDepartment}

	var mismatched []string
	for _, col := range cols {
		expected := layout.label(col)
		actual := ""
		if col < len(row) {
			actual = row[col]
		}
		if strings.Contains(normalizeText(actual), normalizeText(expected)) {
			continue
		}
		shown := strings.TrimSpace(actual)
		if shown == "" {
			shown = "blank"
		}
		mismatched = append(mismatched,
			fmt.Sprintf("column %d expected %q, found %q", col+1, expected, shown))
	}
	if len(mismatched) > 0 {
		return formatErrorf(idx+1, 0, "header mismatch: %s", strings.Join(mismatched, "; "))
	}
	return nil
}
