package main

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/jbrukh/bayesian"
	"golang.org/x/text/unicode/norm"
)

const maxSuggestions = 5

// bayesSuggester ranks codes for a summary with a TF-IDF naive Bayes
// classifier trained on earlier fills and on the filled rows of the sheet.
type bayesSuggester struct {
	samples map[string][]string // summary -> codes
	classes []bayesian.Class
	cl      *bayesian.Classifier
}

func newBayesSuggester(history map[string][]string) *bayesSuggester {
	b := &bayesSuggester{samples: make(map[string][]string, len(history))}
	for summary, codes := range history {
		b.samples[summary] = codes
	}
	b.train()
	return b
}

// summaryTerms lowercases the summary and splits it on whitespace and
// punctuation. Runs of Han characters have no separators, so they also
// contribute their bigrams.
func summaryTerms(summary string) []string {
	summary = strings.ToLower(norm.NFKC.String(summary))
	fields := strings.FieldsFunc(summary, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	var terms []string
	for _, f := range fields {
		terms = append(terms, f)
		runes := []rune(f)
		for i := 0; i+1 < len(runes); i++ {
			if unicode.Is(unicode.Han, runes[i]) && unicode.Is(unicode.Han, runes[i+1]) {
				terms = append(terms, string(runes[i:i+2]))
			}
		}
	}
	return terms
}

func (b *bayesSuggester) learnRows(rows []Row) {
	for _, row := range rows {
		if len(row) < minColumns {
			continue
		}
		summary := cellText(row[colSummary])
		codes := parseRemark(row[colRemark])
		if summary == "" || len(codes) == 0 {
			continue
		}
		b.samples[summary] = codes
	}
	b.train()
}

func (b *bayesSuggester) train() {
	b.cl, b.classes = nil, nil
	seen := make(map[string]bool)
	for _, codes := range b.samples {
		for _, c := range codes {
			if !seen[c] {
				seen[c] = true
				b.classes = append(b.classes, bayesian.Class(c))
			}
		}
	}
	// The classifier needs at least two classes.
	if len(b.classes) < 2 {
		b.classes = nil
		return
	}
	sort.Slice(b.classes, func(i, j int) bool { return b.classes[i] < b.classes[j] })

	b.cl = bayesian.NewClassifierTfIdf(b.classes...)
	for summary, codes := range b.samples {
		terms := summaryTerms(summary)
		for _, c := range codes {
			b.cl.Learn(terms, bayesian.Class(c))
		}
	}
	b.cl.ConvertTermsFreqToTfIdf()
}

type pair struct {
	score float64
	pos   int
}

// Suggest returns up to five codes whose scores stay within one standard
// deviation of each other, best first. Codes no longer known are dropped.
func (b *bayesSuggester) Suggest(_ context.Context, summary string, known []string) ([]string, error) {
	if b.cl == nil {
		return nil, nil
	}
	terms := summaryTerms(summary)
	if len(terms) == 0 {
		return nil, nil
	}
	scores, _, _ := b.cl.LogScores(terms)
	pairs := make([]pair, 0, len(scores))

	var mean, stddev float64
	for pos, score := range scores {
		pairs = append(pairs, pair{score, pos})
		mean += score
	}
	mean /= float64(len(scores))
	for _, score := range scores {
		diff := score - mean
		stddev += diff * diff
	}
	stddev /= float64(len(scores) - 1)
	stddev = math.Sqrt(stddev)

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	isKnown := make(map[string]bool, len(known))
	for _, k := range known {
		isKnown[k] = true
	}
	var result []string
	last := pairs[0].score
	for _, pr := range pairs {
		if len(result) == maxSuggestions || math.Abs(pr.score-last) > stddev {
			break
		}
		last = pr.score
		if code := string(b.classes[pr.pos]); isKnown[code] {
			result = append(result, code)
		}
	}
	return result, nil
}
