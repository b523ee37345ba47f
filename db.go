package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"strings"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var (
	bucketCodes   = []byte("codes")
	bucketRules   = []byte("rules")
	bucketHistory = []byte("history")
)

// boltStore keeps the known codes, the replacement rules and the fill history
// in a single bolt file.
type boltStore struct {
	db *bolt.DB
}

var (
	_ CodeStore       = (*boltStore)(nil)
	_ RuleStore       = (*boltStore)(nil)
	_ HistoryRecorder = (*boltStore)(nil)
)

func openStore(path string) (*boltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open boltdb at %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCodes, bucketRules, bucketHistory} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "create bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

func encodeList(list []string) ([]byte, error) {
	var val bytes.Buffer
	if err := gob.NewEncoder(&val).Encode(list); err != nil {
		return nil, errors.Wrapf(err, "encode %v", list)
	}
	return val.Bytes(), nil
}

func decodeList(v []byte) ([]string, error) {
	var list []string
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&list); err != nil {
		return nil, errors.Wrapf(err, "decode value of length %d", len(v))
	}
	return list, nil
}

func (s *boltStore) KnownCodes(_ context.Context) (map[string]bool, error) {
	known := make(map[string]bool)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCodes).ForEach(func(k, _ []byte) error {
			known[string(k)] = true
			return nil
		})
	})
	return known, errors.Wrap(err, "iterate codes")
}

func (s *boltStore) EnsureCodes(ctx context.Context, codes []string) error {
	codes = dedupeCodes(codes)
	if len(codes) == 0 {
		return nil
	}
	var added []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCodes)
		for _, c := range codes {
			if b.Get([]byte(c)) != nil {
				continue
			}
			if err := b.Put([]byte(c), []byte{}); err != nil {
				return err
			}
			added = append(added, c)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "store codes %v", codes)
	}
	if len(added) > 0 {
		loggerFrom(ctx).Debug().Strs("codes", added).Msg("Stored codes")
	}
	return nil
}

// RemoveCodes deletes codes and returns how many existed.
func (s *boltStore) RemoveCodes(_ context.Context, codes []string) (int, error) {
	var n int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCodes)
		for _, c := range dedupeCodes(codes) {
			if b.Get([]byte(c)) == nil {
				continue
			}
			if err := b.Delete([]byte(c)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, errors.Wrap(err, "remove codes")
}

func (s *boltStore) Rules(_ context.Context) (ReplacementRules, error) {
	rules := make(ReplacementRules)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRules).ForEach(func(k, v []byte) error {
			targets, err := decodeList(v)
			if err != nil {
				return errors.Wrapf(err, "rule %q", k)
			}
			rules[string(k)] = targets
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "iterate rules")
	}
	return rules, nil
}

// SetRule replaces the targets of source. Sources are unique, so an existing
// rule is overwritten.
func (s *boltStore) SetRule(_ context.Context, source string, targets []string) error {
	source = strings.TrimSpace(source)
	targets = dedupeCodes(targets)
	if source == "" {
		return errors.New("rule source is blank")
	}
	if len(targets) == 0 {
		return errors.Errorf("rule %q has no targets", source)
	}
	val, err := encodeList(targets)
	if err != nil {
		return err
	}
	return errors.Wrapf(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRules).Put([]byte(source), val)
	}), "store rule %q", source)
}

// DeleteRule reports whether the rule existed.
func (s *boltStore) DeleteRule(_ context.Context, source string) (bool, error) {
	var found bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRules)
		if b.Get([]byte(source)) == nil {
			return nil
		}
		found = true
		return b.Delete([]byte(source))
	})
	return found, errors.Wrapf(err, "delete rule %q", source)
}

func (s *boltStore) RecordFill(_ context.Context, summary string, codes []string) error {
	summary = strings.TrimSpace(summary)
	codes = dedupeCodes(codes)
	if summary == "" || len(codes) == 0 {
		return nil
	}
	val, err := encodeList(codes)
	if err != nil {
		return err
	}
	return errors.Wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).Put([]byte(summary), val)
	}), "store fill history")
}

// History maps each summary filled so far to its latest codes.
func (s *boltStore) History(_ context.Context) (map[string][]string, error) {
	hist := make(map[string][]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).ForEach(func(k, v []byte) error {
			codes, err := decodeList(v)
			if err != nil {
				return errors.Wrapf(err, "history %q", k)
			}
			hist[string(k)] = codes
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "iterate history")
	}
	return hist, nil
}
