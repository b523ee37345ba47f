package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type quoteState int

const (
	outsideQuotes quoteState = iota
	insideQuotes
	// inside quotes, after a backslash
	afterBackslash
)

// unescapeQuotes rewrites \" inside quoted fields, as some accounting
// exports write it, to the doubled quote encoding/csv reads. Other
// backslashes are kept.
func unescapeQuotes(data []byte) []byte {
	out := make([]byte, 0, len(data))
	state := outsideQuotes
	for _, c := range data {
		switch state {
		case outsideQuotes:
			out = append(out, c)
			if c == '"' {
				state = insideQuotes
			}
		case insideQuotes:
			switch c {
			case '"':
				out = append(out, c)
				state = outsideQuotes
			case '\\':
				state = afterBackslash
			default:
				out = append(out, c)
			}
		case afterBackslash:
			if c == '"' {
				out = append(out, '"', '"')
			} else {
				out = append(out, '\\', c)
			}
			state = insideQuotes
		}
	}
	if state == afterBackslash {
		out = append(out, '\\')
	}
	return out
}

// csvBook is a ledger exported as a single CSV sheet.
type csvBook struct {
	path string
}

func (b *csvBook) read() ([][]string, bool, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %s", b.path)
	}
	bom := bytes.HasPrefix(data, utf8BOM)
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(unescapeQuotes(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	raw, err := r.ReadAll()
	if err != nil {
		return nil, false, errors.Wrapf(err, "parse %s", b.path)
	}
	return raw, bom, nil
}

func (b *csvBook) ReadRows(ctx context.Context) ([]Row, error) {
	raw, _, err := b.read()
	if err != nil {
		return nil, err
	}
	loggerFrom(ctx).Debug().Str("file", b.path).Int("rows", len(raw)).Msg("Read csv")
	return padRows(raw), nil
}

// WriteCells rewrites the whole file through a temp file in the same
// directory.
func (b *csvBook) WriteCells(ctx context.Context, updates []CellUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	raw, bom, err := b.read()
	if err != nil {
		return 0, err
	}
	for _, u := range updates {
		if u.Row < 1 || u.Col < 1 {
			return 0, errors.Errorf("invalid cell at row %d, column %d", u.Row, u.Col)
		}
		for len(raw) < u.Row {
			raw = append(raw, nil)
		}
		row := raw[u.Row-1]
		for len(row) < u.Col {
			row = append(row, "")
		}
		row[u.Col-1] = u.Value
		raw[u.Row-1] = row
	}

	var buf bytes.Buffer
	if bom {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(raw); err != nil {
		return 0, errors.Wrapf(err, "encode %s", b.path)
	}

	tf, err := os.CreateTemp(filepath.Dir(b.path), ".split-ledger-*.csv")
	if err != nil {
		return 0, errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tf.Name())
	if _, err := tf.Write(buf.Bytes()); err != nil {
		tf.Close()
		return 0, errors.Wrapf(err, "write %s", tf.Name())
	}
	if err := tf.Close(); err != nil {
		return 0, errors.Wrapf(err, "close %s", tf.Name())
	}
	if err := os.Rename(tf.Name(), b.path); err != nil {
		return 0, errors.Wrapf(err, "replace %s", b.path)
	}
	loggerFrom(ctx).Debug().Str("file", b.path).Int("cells", len(updates)).Msg("Saved csv")
	return len(updates), nil
}
