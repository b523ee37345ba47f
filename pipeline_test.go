package main

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

var testHeader = Row{"Date", "Summary", "Debit", "Credit", "", "", "", "", "Department", "Remark"}

func dataRow(date, summary, debit, credit, dept, remark string) Row {
	return Row{date, summary, debit, credit, "", "", "", "", dept, remark}
}

type memBook struct {
	rows   []Row
	writes [][]CellUpdate
}

func (b *memBook) ReadRows(context.Context) ([]Row, error) {
	out := make([]Row, len(b.rows))
	for i, r := range b.rows {
		out[i] = append(Row(nil), r...)
	}
	return out, nil
}

func (b *memBook) WriteCells(_ context.Context, updates []CellUpdate) (int, error) {
	b.writes = append(b.writes, updates)
	for _, u := range updates {
		b.rows[u.Row-1][u.Col-1] = u.Value
	}
	return len(updates), nil
}

func (b *memBook) remark(sheetRow int) string { return b.rows[sheetRow-1][colRemark] }

type memStore struct {
	codes map[string]bool
	rules ReplacementRules
	fills map[string][]string
}

func newMemStore(codes ...string) *memStore {
	s := &memStore{codes: make(map[string]bool), rules: make(ReplacementRules), fills: make(map[string][]string)}
	for _, c := range codes {
		s.codes[c] = true
	}
	return s
}

func (s *memStore) KnownCodes(context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(s.codes))
	for c := range s.codes {
		out[c] = true
	}
	return out, nil
}

func (s *memStore) EnsureCodes(_ context.Context, codes []string) error {
	for _, c := range codes {
		s.codes[c] = true
	}
	return nil
}

func (s *memStore) Rules(context.Context) (ReplacementRules, error) { return s.rules, nil }

func (s *memStore) RecordFill(_ context.Context, summary string, codes []string) error {
	s.fills[summary] = codes
	return nil
}

type scriptedUI struct {
	responses []Response
	prompts   []Prompt
	err       error
}

func (u *scriptedUI) Prompt(_ context.Context, p Prompt) (Response, error) {
	u.prompts = append(u.prompts, p)
	if u.err != nil {
		return Response{}, u.err
	}
	if len(u.responses) == 0 {
		return Response{}, errors.Errorf("unexpected prompt for row %d", p.Row)
	}
	r := u.responses[0]
	u.responses = u.responses[1:]
	return r, nil
}

func TestAutoFillHappyPath(t *testing.T) {
	book := &memBook{rows: []Row{
		testHeader,
		dataRow("2024-01-01", "paid to KW for filing", "", "", "", ""),
	}}
	store := newMemStore("KW")
	ui := &scriptedUI{}

	out, err := NewPipeline(book, store, store, ui, WithHistory(store)).AutoFill(context.Background())
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if out.Updated != 1 || out.Aborted {
		t.Errorf("got %+v, want 1 update", out)
	}
	if got := book.remark(2); got != "KW" {
		t.Errorf("remark = %q, want KW", got)
	}
	if len(ui.prompts) != 0 {
		t.Errorf("unexpected prompts: %+v", ui.prompts)
	}
	if got := store.fills["paid to KW for filing"]; len(got) != 1 || got[0] != "KW" {
		t.Errorf("history = %v", got)
	}
}

func TestAutoFillIdempotent(t *testing.T) {
	book := &memBook{rows: []Row{
		testHeader,
		dataRow("2024-01-01", "KW filing", "", "", "", ""),
		dataRow("2024-01-02", "HL and KW", "", "", "", ""),
	}}
	store := newMemStore("KW", "HL")
	p := NewPipeline(book, store, store, &scriptedUI{})

	first, err := p.AutoFill(context.Background())
	if err != nil || first.Updated != 2 {
		t.Fatalf("first pass: %+v, %v", first, err)
	}
	before := []string{book.remark(2), book.remark(3)}

	second, err := p.AutoFill(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.Updated != 0 {
		t.Errorf("second pass updated %d, want 0", second.Updated)
	}
	if len(book.writes) != 1 {
		t.Errorf("got %d writes, want 1", len(book.writes))
	}
	if book.remark(2) != before[0] || book.remark(3) != before[1] {
		t.Errorf("remarks changed: %q %q", book.remark(2), book.remark(3))
	}
	if before[1] != "HL KW" {
		t.Errorf("remark = %q, want sorted match order", before[1])
	}
}

func TestAutoFillAbortStopsProcessing(t *testing.T) {
	book := &memBook{rows: []Row{
		testHeader,
		dataRow("2024-01-01", "KW fee", "", "", "", ""),
		dataRow("2024-01-02", "unknown", "", "", "", ""),
		dataRow("2024-01-03", "HL fee", "", "", "", ""),
	}}
	store := newMemStore("KW", "HL")
	ui := &scriptedUI{responses: []Response{Abort()}}

	out, err := NewPipeline(book, store, store, ui).AutoFill(context.Background())
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if !out.Aborted || out.Updated != 1 {
		t.Errorf("got %+v, want aborted with 1 update", out)
	}
	if book.remark(2) != "KW" {
		t.Errorf("R1 remark = %q, want KW", book.remark(2))
	}
	if book.remark(4) != "" {
		t.Errorf("R3 remark = %q, want untouched", book.remark(4))
	}
	if len(ui.prompts) != 1 || ui.prompts[0].Row != 3 {
		t.Errorf("prompts = %+v, want one for row 3", ui.prompts)
	}
}

func TestAutoFillSkipAll(t *testing.T) {
	book := &memBook{rows: []Row{
		testHeader,
		dataRow("2024-01-01", "first unknown", "", "", "", ""),
		dataRow("2024-01-02", "second unknown", "", "", "", ""),
		dataRow("2024-01-03", "KW fee", "", "", "", ""),
	}}
	store := newMemStore("KW")
	ui := &scriptedUI{responses: []Response{SkipAll()}}
	p := NewPipeline(book, store, store, ui)

	out, err := p.AutoFill(context.Background())
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if out.Updated != 1 || len(ui.prompts) != 1 {
		t.Errorf("got %+v with %d prompts, want 1 update and 1 prompt", out, len(ui.prompts))
	}
	if book.remark(2) != "" || book.remark(3) != "" {
		t.Errorf("skipped rows were written")
	}

	// The flag only lasts for one pass.
	ui.responses = []Response{Skip(), Skip()}
	if _, err := p.AutoFill(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(ui.prompts) != 3 {
		t.Errorf("got %d prompts in total, want 3", len(ui.prompts))
	}
}

func TestAutoFillSubmitRegistersNewCodes(t *testing.T) {
	book := &memBook{rows: []Row{
		testHeader,
		dataRow("2024-01-01", "first unknown", "", "", "", ""),
		dataRow("2024-01-02", "ZZ retainer", "", "", "", ""),
		dataRow("2024-01-03", "ZZ again", "", "", "", ""),
	}}
	store := newMemStore("KW")
	ui := &scriptedUI{responses: []Response{Skip(), Submit(" ZZ ", "ZZ", "")}}

	out, err := NewPipeline(book, store, store, ui).AutoFill(context.Background())
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if out.Updated != 2 {
		t.Errorf("updated = %d, want 2", out.Updated)
	}
	if !store.codes["ZZ"] {
		t.Errorf("ZZ was not registered")
	}
	if book.remark(2) != "" || book.remark(3) != "ZZ" || book.remark(4) != "ZZ" {
		t.Errorf("remarks = %q %q %q", book.remark(2), book.remark(3), book.remark(4))
	}
	if len(ui.prompts) != 2 {
		t.Fatalf("got %d prompts, want 2", len(ui.prompts))
	}
	p := ui.prompts[1]
	if p.Summary != "ZZ retainer" || p.Row != 3 || len(p.Known) != 1 || p.Known[0] != "KW" {
		t.Errorf("prompt = %+v", p)
	}
}

func TestAutoFillSubmitEmptyIsNoop(t *testing.T) {
	book := &memBook{rows: []Row{
		testHeader,
		dataRow("2024-01-01", "unknown", "", "", "", ""),
	}}
	store := newMemStore("KW")
	out, err := NewPipeline(book, store, store, &scriptedUI{responses: []Response{Submit()}}).AutoFill(context.Background())
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if out.Updated != 0 || len(book.writes) != 0 {
		t.Errorf("got %+v and %d writes, want nothing written", out, len(book.writes))
	}
}

func TestAutoFillReplacement(t *testing.T) {
	tests := []struct {
		name    string
		known   []string
		rules   ReplacementRules
		summary string
		want    string
	}{
		{"one level", []string{"A"}, ReplacementRules{"A": {"B"}, "B": {"C"}}, "fee A", "B"},
		{"passthrough", []string{"KW"}, ReplacementRules{"HL": {"X"}}, "KW", "KW"},
		{"dedupe after expansion", []string{"KW", "HL"}, ReplacementRules{"KW": {"KW1", "HL"}}, "KW and HL", "HL KW1"},
		{"fan out", []string{"TEAM"}, ReplacementRules{"TEAM": {"KW", "HL", "MS"}}, "TEAM work", "KW HL MS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := &memBook{rows: []Row{testHeader, dataRow("2024-01-01", tt.summary, "", "", "", "")}}
			store := newMemStore(tt.known...)
			store.rules = tt.rules
			if _, err := NewPipeline(book, store, store, &scriptedUI{}).AutoFill(context.Background()); err != nil {
				t.Fatalf("AutoFill: %v", err)
			}
			if got := book.remark(2); got != tt.want {
				t.Errorf("remark = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAutoFillSkipsRows(t *testing.T) {
	book := &memBook{rows: []Row{
		{"", "", "", "", "", "", "", "", "", ""},
		testHeader,
		dataRow("", "KW no date", "", "", "", ""),
		dataRow("2024-01-01", "", "", "", "", ""),
		dataRow("2024-01-01", "KW has remark", "", "", "", "HL"),
		dataRow("2024-01-01", "KW nan remark", "", "", "", "nan"),
	}}
	store := newMemStore("KW")
	out, err := NewPipeline(book, store, store, &scriptedUI{}).AutoFill(context.Background())
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if out.Updated != 1 {
		t.Errorf("updated = %d, want 1", out.Updated)
	}
	if book.remark(5) != "HL" || book.remark(6) != "KW" {
		t.Errorf("remarks = %q %q", book.remark(5), book.remark(6))
	}
}

func TestAutoFillPromptFailureKeepsEarlierWrites(t *testing.T) {
	book := &memBook{rows: []Row{
		testHeader,
		dataRow("2024-01-01", "KW fee", "", "", "", ""),
		dataRow("2024-01-02", "unknown", "", "", "", ""),
	}}
	store := newMemStore("KW")
	ui := &scriptedUI{err: errors.New("tty gone")}

	out, err := NewPipeline(book, store, store, ui).AutoFill(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if IsFormatError(err) {
		t.Errorf("prompt failure reported as format error: %v", err)
	}
	if out.Updated != 1 || book.remark(2) != "KW" {
		t.Errorf("got %+v, remark %q", out, book.remark(2))
	}
}

func TestAutoFillCancelled(t *testing.T) {
	book := &memBook{rows: []Row{testHeader, dataRow("2024-01-01", "KW fee", "", "", "", "")}}
	store := newMemStore("KW")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(book, store, store, &scriptedUI{}).AutoFill(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(book.writes) != 0 {
		t.Errorf("got %d writes after cancel", len(book.writes))
	}
}

func TestAutoFillHeaderMissing(t *testing.T) {
	book := &memBook{rows: []Row{dataRow("2024-01-01", "KW", "", "", "", "")}}
	store := newMemStore("KW")
	_, err := NewPipeline(book, store, store, &scriptedUI{}).AutoFill(context.Background())
	if !IsFormatError(err) {
		t.Errorf("err = %v, want format error", err)
	}
}

type recordingSuggester struct{ codes []string }

func (s recordingSuggester) Suggest(context.Context, string, []string) ([]string, error) {
	return s.codes, nil
}

type failingSuggester struct{}

func (failingSuggester) Suggest(context.Context, string, []string) ([]string, error) {
	return nil, errors.New("offline")
}

func TestAutoFillSuggestions(t *testing.T) {
	book := &memBook{rows: []Row{testHeader, dataRow("2024-01-01", "unknown", "", "", "", "")}}
	store := newMemStore("KW", "HL")
	ui := &scriptedUI{responses: []Response{Skip()}}
	sugg := chainSuggester{failingSuggester{}, recordingSuggester{[]string{"HL"}}}

	if _, err := NewPipeline(book, store, store, ui, WithSuggester(sugg)).AutoFill(context.Background()); err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if len(ui.prompts) != 1 || len(ui.prompts[0].Suggested) != 1 || ui.prompts[0].Suggested[0] != "HL" {
		t.Errorf("prompts = %+v", ui.prompts)
	}
}

type fakeRenderer struct {
	res  SplitResult
	dest string
}

func (r *fakeRenderer) Render(_ context.Context, res SplitResult, dest string) error {
	r.res, r.dest = res, dest
	return nil
}

func TestSplitAndRender(t *testing.T) {
	book := &memBook{rows: []Row{
		testHeader,
		dataRow("2024-01-01", "filing", "100", "0", "Litigation", "KW HL"),
	}}
	store := newMemStore()
	r := &fakeRenderer{}

	res, err := NewPipeline(book, store, store, nil).SplitAndRender(context.Background(), r, "out.xlsx")
	if err != nil {
		t.Fatalf("SplitAndRender: %v", err)
	}
	if r.dest != "out.xlsx" || len(r.res.Entries) != 2 || res.TotalDebit != 100 {
		t.Errorf("rendered %+v to %q", r.res, r.dest)
	}
	if !store.codes["KW"] || !store.codes["HL"] {
		t.Errorf("remark codes were not registered: %v", store.codes)
	}
}
