package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestUnescapeQuotes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`a,b`, `a,b`},
		{`"say \"hi\"",x`, `"say ""hi""",x`},
		{`"C:\docs",x`, `"C:\docs",x`},
		{`"a ""b""",x`, `"a ""b""",x`},
		{`plain \" outside`, `plain \" outside`},
		{`"ends with \`, `"ends with \`},
	}
	for _, tt := range tests {
		if got := string(unescapeQuotes([]byte(tt.in))); got != tt.want {
			t.Errorf("unescapeQuotes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCSVBackslashEscapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	data := "Date,Summary,Debit,Credit,,,,,Department,Remark\n" +
		`2024-01-01,"retainer for \"KW\" matter",100,,,,,,Litigation,` + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	book, err := openWorkbook(path, "")
	if err != nil {
		t.Fatal(err)
	}
	rows, err := book.ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if got := rows[1][colSummary]; got != `retainer for "KW" matter` {
		t.Errorf("summary = %q", got)
	}

	if _, err := book.WriteCells(context.Background(), []CellUpdate{{Row: 2, Col: 10, Value: "KW"}}); err != nil {
		t.Fatalf("WriteCells: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Date,Summary,Debit,Credit,,,,,Department,Remark\n" +
		`2024-01-01,"retainer for ""KW"" matter",100,,,,,,Litigation,KW` + "\n"
	if string(raw) != want {
		t.Errorf("file = %q, want %q", raw, want)
	}
}
