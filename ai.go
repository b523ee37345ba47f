package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
)

const defaultModel = "claude-sonnet-4-5-20250929"

// claudeSuggester asks Claude which known codes a summary refers to.
type claudeSuggester struct {
	client anthropic.Client
	model  string
}

func newClaudeSuggester(apiKey, model string, opts ...option.RequestOption) (*claudeSuggester, error) {
	if len(apiKey) == 0 {
		return nil, errors.New("ANTHROPIC_API_KEY not set. Please set it in environment, .env or config.yaml")
	}
	if len(model) == 0 {
		model = defaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &claudeSuggester{client: anthropic.NewClient(opts...), model: model}, nil
}

func buildSuggestPrompt(summary string, known []string) string {
	var sb strings.Builder
	sb.WriteString(`You attribute accounting ledger rows to lawyers. Each lawyer has a short code.

Given the row summary below, pick the codes of the lawyers the row most likely belongs to,
best first, at most 3. Only use codes from the list. If none fits, return an empty list.

Return only a JSON array of strings, for example ["KW", "HL"].

Known codes:
`)
	data, _ := json.Marshal(known)
	sb.Write(data)
	fmt.Fprintf(&sb, "\n\nSummary:\n%s\n", summary)
	return sb.String()
}

// parseSuggestion extracts the JSON array from the reply. Claude may wrap it
// in a markdown code block.
func parseSuggestion(text string) ([]string, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end < start {
		return nil, errors.Errorf("no JSON array found in response: %s", text)
	}
	var codes []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &codes); err != nil {
		return nil, errors.Wrapf(err, "parse response %s", text[start:end+1])
	}
	return codes, nil
}

func (c *claudeSuggester) Suggest(ctx context.Context, summary string, known []string) ([]string, error) {
	if len(known) == 0 {
		return nil, nil
	}
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildSuggestPrompt(summary, known))),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "claude API call failed")
	}
	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	codes, err := parseSuggestion(text)
	if err != nil {
		return nil, err
	}

	isKnown := make(map[string]bool, len(known))
	for _, k := range known {
		isKnown[k] = true
	}
	var out []string
	for _, code := range dedupeCodes(codes) {
		if isKnown[code] {
			out = append(out, code)
		}
	}
	loggerFrom(ctx).Debug().Str("model", c.model).Strs("codes", out).Msg("Claude suggested")
	return out, nil
}

// chainSuggester merges the suggestions of several suggesters in order.
// A failing member is logged and skipped.
type chainSuggester []Suggester

func (cs chainSuggester) Suggest(ctx context.Context, summary string, known []string) ([]string, error) {
	var all []string
	for _, s := range cs {
		codes, err := s.Suggest(ctx, summary, known)
		if err != nil {
			loggerFrom(ctx).Warn().Err(err).Msg("Suggester failed")
			continue
		}
		all = append(all, codes...)
	}
	return dedupeCodes(all), nil
}

func (cs chainSuggester) learnRows(rows []Row) {
	for _, s := range cs {
		if l, ok := s.(rowLearner); ok {
			l.learnRows(rows)
		}
	}
}
