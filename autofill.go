package main

import (
	"context"
	"strings"
)

type fill struct {
	update  CellUpdate
	summary string
	codes   []string
}

type autoFiller struct {
	rules ReplacementRules
	dis   *disambiguator
}

// run walks the data rows in sheet order. It returns the fills collected so
// far even when it stops early, so the caller can still write them.
func (f *autoFiller) run(ctx context.Context, rows []Row, hdr int) (AutoFillOutcome, []fill, error) {
	log := loggerFrom(ctx)
	var out AutoFillOutcome
	var fills []fill

	for i := hdr + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return out, fills, err
		}
		row := rows[i]
		sheetRow := i + 1
		if len(row) < minColumns {
			continue
		}
		if !isBlank(row[colRemark]) {
			continue
		}
		date := cellText(row[colDate])
		summary := cellText(row[colSummary])
		if date == "" || summary == "" {
			continue
		}

		codes := matchCodes(summary, f.dis.known)
		if len(codes) == 0 {
			state, selected, err := f.dis.ask(ctx, summary, sheetRow)
			if err != nil {
				return out, fills, err
			}
			switch state {
			case stateAborted:
				log.Info().Int("row", sheetRow).Msg("Aborted by user")
				out.Aborted = true
				return out, fills, nil
			case stateSkipped, stateSkipAll:
				continue
			}
			if len(selected) == 0 {
				continue
			}
			codes = selected
		}

		resolved := dedupeCodes(resolveCodes(codes, f.rules))
		log.Debug().Int("row", sheetRow).Strs("matched", codes).Strs("resolved", resolved).Msg("Filling remark")
		fills = append(fills, fill{
			update:  CellUpdate{Row: sheetRow, Col: colRemark + 1, Value: strings.Join(resolved, " ")},
			summary: summary,
			codes:   resolved,
		})
	}
	return out, fills, nil
}
