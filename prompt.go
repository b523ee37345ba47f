package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Action is what the user decided for one unmatched row.
type Action int

const (
	ActionSubmit Action = iota
	ActionSkip
	ActionSkipAll
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionSubmit:
		return "submit"
	case ActionSkip:
		return "skip"
	case ActionSkipAll:
		return "skip_all"
	case ActionAbort:
		return "abort"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Prompt is shown once per row whose summary matched no known code.
type Prompt struct {
	Summary   string
	Row       int      // 1-based sheet row
	Known     []string // sorted vocabulary
	Suggested []string // advisory, best first
}

// Response is the answer to a Prompt. Codes only matter for ActionSubmit.
type Response struct {
	Action Action
	Codes  []string
}

func Submit(codes ...string) Response { return Response{Action: ActionSubmit, Codes: codes} }
func Skip() Response                  { return Response{Action: ActionSkip} }
func SkipAll() Response               { return Response{Action: ActionSkipAll} }
func Abort() Response                 { return Response{Action: ActionAbort} }

// Interactor asks a human. Prompt blocks until they answer.
type Interactor interface {
	Prompt(ctx context.Context, p Prompt) (Response, error)
}

// Suggester proposes codes for a summary that matched nothing.
type Suggester interface {
	Suggest(ctx context.Context, summary string, known []string) ([]string, error)
}

type protocolState int

const (
	stateApplied protocolState = iota
	stateSkipped
	stateSkipAll
	stateAborted
)

// disambiguator owns the vocabulary and the skip-all flag for a single pass.
type disambiguator struct {
	ui        Interactor
	store     CodeStore
	suggester Suggester
	known     map[string]bool
	skipAll   bool
}

func newDisambiguator(ui Interactor, store CodeStore, suggester Suggester, known map[string]bool) *disambiguator {
	return &disambiguator{ui: ui, store: store, suggester: suggester, known: known}
}

// ask runs the protocol for one row. Codes are returned only in stateApplied
// and may be empty, which means leave the row alone.
func (d *disambiguator) ask(ctx context.Context, summary string, row int) (protocolState, []string, error) {
	log := loggerFrom(ctx)
	if d.skipAll {
		log.Debug().Int("row", row).Msg("Skipping prompt, skip all is set")
		return stateSkipped, nil, nil
	}
	if d.ui == nil {
		return stateSkipped, nil, nil
	}

	known := sortedCodes(d.known)
	p := Prompt{Summary: summary, Row: row, Known: known}
	if d.suggester != nil {
		sugg, err := d.suggester.Suggest(ctx, summary, known)
		if err != nil {
			log.Warn().Err(err).Int("row", row).Msg("Unable to get suggestions")
		}
		p.Suggested = sugg
	}

	resp, err := d.ui.Prompt(ctx, p)
	if err != nil {
		return stateAborted, nil, errors.Wrapf(err, "prompt for row %d", row)
	}
	log.Debug().Int("row", row).Stringer("action", resp.Action).Strs("codes", resp.Codes).Msg("Prompt answered")

	switch resp.Action {
	case ActionAbort:
		return stateAborted, nil, nil
	case ActionSkipAll:
		d.skipAll = true
		return stateSkipAll, nil, nil
	case ActionSkip:
		return stateSkipped, nil, nil
	case ActionSubmit:
	default:
		return stateAborted, nil, errors.Errorf("unknown action %v for row %d", resp.Action, row)
	}

	codes := dedupeCodes(resp.Codes)
	if len(codes) == 0 {
		return stateApplied, nil, nil
	}
	var fresh []string
	for _, c := range codes {
		if !d.known[c] {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) > 0 {
		if err := d.store.EnsureCodes(ctx, fresh); err != nil {
			return stateAborted, nil, errors.Wrapf(err, "register codes %v", fresh)
		}
		for _, c := range fresh {
			d.known[c] = true
		}
		log.Info().Strs("codes", fresh).Msg("Registered new codes")
	}
	return stateApplied, codes, nil
}
