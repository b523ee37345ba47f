package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// ruleSetter is the write side of the rule store.
type ruleSetter interface {
	RuleStore
	SetRule(ctx context.Context, source string, targets []string) error
}

// importRules loads replacement rules from a YAML file in this format:
//
//	KW:
//	  - KW1
//	  - KW2
//	HL: HL1, HL2
//
// Targets may be a list or a comma separated string. Existing rules with the
// same source are replaced.
func importRules(ctx context.Context, store ruleSetter, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", path)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return 0, errors.Wrapf(err, "parse rules at %s", path)
	}

	sources := make([]string, 0, len(raw))
	for src := range raw {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	var n int
	for _, src := range sources {
		targets, err := yamlTargets(raw[src])
		if err != nil {
			return n, errors.Wrapf(err, "rule %q in %s", src, path)
		}
		if err := store.SetRule(ctx, src, targets); err != nil {
			return n, err
		}
		n++
	}
	loggerFrom(ctx).Info().Str("file", path).Int("rules", n).Msg("Imported rules")
	return n, nil
}

func yamlTargets(v interface{}) ([]string, error) {
	switch t := v.(type) {
	case string:
		return parseTargets(t), nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return dedupeCodes(out), nil
	case nil:
		return nil, nil
	}
	return nil, errors.Errorf("unexpected targets of type %T", v)
}

// exportRules writes every rule to path in the format importRules reads.
func exportRules(ctx context.Context, store RuleStore, path string) (int, error) {
	rules, err := store.Rules(ctx)
	if err != nil {
		return 0, err
	}
	data, err := yaml.Marshal(map[string][]string(rules))
	if err != nil {
		return 0, errors.Wrap(err, "marshal rules")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, errors.Wrapf(err, "write rules to %s", path)
	}
	return len(rules), nil
}
