package main

import (
	"context"

	"github.com/pkg/errors"
)

// CellUpdate is a single cell write. Row and Col are 1-based.
type CellUpdate struct {
	Row   int
	Col   int
	Value string
}

// Workbook is the ledger sheet. ReadRows loads every row of the target sheet
// at once; WriteCells saves all updates at once and leaves every other cell
// untouched.
type Workbook interface {
	ReadRows(ctx context.Context) ([]Row, error)
	WriteCells(ctx context.Context, updates []CellUpdate) (int, error)
}

// CodeStore holds the known codes.
type CodeStore interface {
	KnownCodes(ctx context.Context) (map[string]bool, error)
	// EnsureCodes inserts the codes that are missing and ignores the rest.
	EnsureCodes(ctx context.Context, codes []string) error
}

// RuleStore holds the replacement rules.
type RuleStore interface {
	Rules(ctx context.Context) (ReplacementRules, error)
}

// HistoryRecorder remembers which codes a summary was filled with, so later
// passes can suggest them.
type HistoryRecorder interface {
	RecordFill(ctx context.Context, summary string, codes []string) error
}

// Renderer writes a split result somewhere a human can read it.
type Renderer interface {
	Render(ctx context.Context, res SplitResult, dest string) error
}

// rowLearner is implemented by suggesters that learn from the rows of the
// sheet being filled.
type rowLearner interface {
	learnRows(rows []Row)
}

// AutoFillOutcome is the result of one auto-fill pass.
type AutoFillOutcome struct {
	Updated int
	Aborted bool
}

// Pipeline ties the ledger sheet to the stores and the human.
type Pipeline struct {
	book      Workbook
	codes     CodeStore
	rules     RuleStore
	ui        Interactor
	layout    HeaderLayout
	suggester Suggester
	history   HistoryRecorder
}

type Option func(*Pipeline)

func WithLayout(l HeaderLayout) Option     { return func(p *Pipeline) { p.layout = l } }
func WithSuggester(s Suggester) Option     { return func(p *Pipeline) { p.suggester = s } }
func WithHistory(h HistoryRecorder) Option { return func(p *Pipeline) { p.history = h } }

func NewPipeline(book Workbook, codes CodeStore, rules RuleStore, ui Interactor, opts ...Option) *Pipeline {
	p := &Pipeline{
		book:   book,
		codes:  codes,
		rules:  rules,
		ui:     ui,
		layout: defaultHeaderLayout(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) load(ctx context.Context) ([]Row, int, error) {
	rows, err := p.book.ReadRows(ctx)
	if err != nil {
		return nil, -1, errors.Wrap(err, "read rows")
	}
	idx, _, err := locateHeader(rows, p.layout)
	if err != nil {
		return nil, -1, err
	}
	loggerFrom(ctx).Debug().Int("header_row", idx+1).Int("rows", len(rows)).Msg("Located header")
	return rows, idx, nil
}

// AutoFill writes codes into every blank remark cell it can resolve, asking
// the human about rows whose summary matches no known code. Cells resolved
// before an abort, a cancelled context or a prompt failure are still written.
func (p *Pipeline) AutoFill(ctx context.Context) (AutoFillOutcome, error) {
	log := loggerFrom(ctx)
	rows, hdr, err := p.load(ctx)
	if err != nil {
		return AutoFillOutcome{}, err
	}
	known, err := p.codes.KnownCodes(ctx)
	if err != nil {
		return AutoFillOutcome{}, errors.Wrap(err, "load known codes")
	}
	rules, err := p.rules.Rules(ctx)
	if err != nil {
		return AutoFillOutcome{}, errors.Wrap(err, "load replacement rules")
	}
	if l, ok := p.suggester.(rowLearner); ok {
		l.learnRows(rows[hdr+1:])
	}

	f := &autoFiller{
		rules: rules,
		dis:   newDisambiguator(p.ui, p.codes, p.suggester, known),
	}
	out, fills, runErr := f.run(ctx, rows, hdr)

	if len(fills) > 0 {
		updates := make([]CellUpdate, 0, len(fills))
		for _, fl := range fills {
			updates = append(updates, fl.update)
		}
		if _, err := p.book.WriteCells(ctx, updates); err != nil {
			return AutoFillOutcome{Aborted: out.Aborted}, errors.Wrap(err, "write remarks")
		}
		out.Updated = len(updates)
		if p.history != nil {
			for _, fl := range fills {
				if err := p.history.RecordFill(ctx, fl.summary, fl.codes); err != nil {
					log.Warn().Err(err).Int("row", fl.update.Row).Msg("Unable to record fill history")
				}
			}
		}
	}
	log.Info().Int("updated", out.Updated).Bool("aborted", out.Aborted).Msg("Auto-fill finished")
	return out, runErr
}

// SplitLedger divides every attributed row across its codes.
func (p *Pipeline) SplitLedger(ctx context.Context) (SplitResult, error) {
	rows, hdr, err := p.load(ctx)
	if err != nil {
		return SplitResult{}, err
	}
	s := splitter{layout: p.layout}
	res, seen, err := s.split(ctx, rows, hdr)
	if err != nil {
		return SplitResult{}, err
	}
	if err := p.codes.EnsureCodes(ctx, seen); err != nil {
		return SplitResult{}, errors.Wrap(err, "register remark codes")
	}
	loggerFrom(ctx).Info().
		Int("entries", len(res.Entries)).
		Int64("total_debit", res.TotalDebit).
		Int64("total_credit", res.TotalCredit).
		Msg("Split finished")
	return res, nil
}

// SplitAndRender splits the ledger and hands the result to r.
func (p *Pipeline) SplitAndRender(ctx context.Context, r Renderer, dest string) (SplitResult, error) {
	res, err := p.SplitLedger(ctx)
	if err != nil {
		return SplitResult{}, err
	}
	if err := r.Render(ctx, res, dest); err != nil {
		return res, errors.Wrapf(err, "render report to %s", dest)
	}
	return res, nil
}
