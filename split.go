package main

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one share of a ledger row attributed to a single code.
type LedgerEntry struct {
	Date       string
	Abstract   string
	Department string
	Debit      int64
	Credit     int64
	Code       string
}

// SplitResult holds the entries in sheet order. The totals are summed entry
// by entry, so they can differ from the rounded row totals when a row is
// shared by several codes.
type SplitResult struct {
	Entries     []LedgerEntry
	TotalDebit  int64
	TotalCredit int64
}

type splitter struct {
	layout HeaderLayout
}

// splitShare divides an amount across n codes and rounds half to even, the
// same as the spreadsheet users' own tooling: 2.5 -> 2, 3.5 -> 4.
func splitShare(amount decimal.Decimal, n int) int64 {
	return amount.Div(decimal.NewFromInt(int64(n))).RoundBank(0).IntPart()
}

// split returns the entries and every code seen in a remark.
func (s splitter) split(ctx context.Context, rows []Row, hdr int) (SplitResult, []string, error) {
	log := loggerFrom(ctx)
	var res SplitResult
	var seen []string

	for i := hdr + 1; i < len(rows); i++ {
		row := rows[i]
		sheetRow := i + 1
		if rowIsBlank(row) {
			continue
		}
		if len(row) < minColumns {
			return SplitResult{}, nil, formatErrorf(sheetRow, 0,
				"row has %d columns, expected at least %d", len(row), minColumns)
		}
		date := cellText(row[colDate])
		if date == "" {
			continue
		}

		debit, err := coerceAmount(row[colDebit], sheetRow, colDebit+1, s.layout.label(colDebit))
		if err != nil {
			return SplitResult{}, nil, err
		}
		credit, err := coerceAmount(row[colCredit], sheetRow, colCredit+1, s.layout.label(colCredit))
		if err != nil {
			return SplitResult{}, nil, err
		}
		department := cellText(row[colDepartment])
		if department == "" {
			return SplitResult{}, nil, formatErrorf(sheetRow, colDepartment+1,
				"%q is blank", s.layout.label(colDepartment))
		}
		codes := parseRemark(row[colRemark])
		if len(codes) == 0 {
			return SplitResult{}, nil, formatErrorf(sheetRow, colRemark+1,
				"%q has no codes", s.layout.label(colRemark))
		}

		shareDebit := splitShare(debit, len(codes))
		shareCredit := splitShare(credit, len(codes))
		abstract := cellText(row[colSummary])
		for _, code := range codes {
			res.Entries = append(res.Entries, LedgerEntry{
				Date:       date,
				Abstract:   abstract,
				Department: department,
				Debit:      shareDebit,
				Credit:     shareCredit,
				Code:       code,
			})
			res.TotalDebit += shareDebit
			res.TotalCredit += shareCredit
		}
		seen = append(seen, codes...)
		log.Debug().Int("row", sheetRow).Strs("codes", codes).Int64("debit", shareDebit).Int64("credit", shareCredit).Msg("Split row")
	}

	if len(res.Entries) == 0 {
		return SplitResult{}, nil, formatErrorf(0, 0, "no valid entries produced")
	}
	return res, dedupeCodes(seen), nil
}
