// Package pinned implements the side-car-persisted pinned-result-rule store
// and the result reordering applied after a search executes.
package pinned

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
)

// Rule pins an ordered list of document ids ahead of native ranking whenever
// the lowercased query contains any of Queries as a substring.
type Rule struct {
	Queries     []string `json:"queries"`
	DocumentIDs []string `json:"document_ids"`
}

// Store is the per-engine pinned-rule registry, one list of rules per index.
type Store struct {
	path string

	mu    sync.RWMutex
	rules map[string][]Rule // index name -> rules
}

// Load reads the side-car file at path if present, or starts empty.
func Load(path string) (*Store, error) {
	s := &Store{path: path, rules: make(map[string][]Rule)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pinned rules file: %w", err)
	}
	if err := jsonutil.Unmarshal(data, &s.rules); err != nil {
		return nil, fmt.Errorf("decode pinned rules file: %w", err)
	}
	return s, nil
}

// Add appends a rule to an index's list and persists the full store.
func (s *Store) Add(index string, rule Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[index] = append(s.rules[index], rule)
	if err := s.persistLocked(); err != nil {
		s.rules[index] = s.rules[index][:len(s.rules[index])-1]
		return err
	}
	return nil
}

// Get returns a snapshot copy of an index's pinned rules.
func (s *Store) Get(index string) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := s.rules[index]
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Clear drops every rule for an index and persists the change.
func (s *Store) Clear(index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.rules[index]
	delete(s.rules, index)
	if err := s.persistLocked(); err != nil {
		s.rules[index] = prev
		return err
	}
	return nil
}

func (s *Store) persistLocked() error {
	data, err := jsonutil.MarshalIndent(s.rules, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pinned rules: %w", err)
	}
	if err := atomic.WriteFile(s.path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("persist pinned rules: %w", err)
	}
	return nil
}

// Match returns the document-id list of the first rule whose trigger
// substring appears in the lowercased raw query, or nil if none match.
func (s *Store) Match(index, rawQuery string) []string {
	lower := strings.ToLower(rawQuery)
	for _, rule := range s.Get(index) {
		for _, trigger := range rule.Queries {
			if strings.Contains(lower, strings.ToLower(trigger)) {
				return rule.DocumentIDs
			}
		}
	}
	return nil
}

// Reorder partitions hits (identified by id, in their native-rank order)
// into pinned and non-pinned groups: pinned hits come first,
// ordered by their position in pinnedIDs; non-pinned hits follow in their
// original order; the result is truncated to limit.
func Reorder[T any](hits []T, idOf func(T) string, pinnedIDs []string, limit int) []T {
	if len(pinnedIDs) == 0 {
		if limit >= 0 && limit < len(hits) {
			return hits[:limit]
		}
		return hits
	}

	rank := make(map[string]int, len(pinnedIDs))
	for i, id := range pinnedIDs {
		if _, exists := rank[id]; !exists {
			rank[id] = i
		}
	}

	byID := make(map[string]T)
	var nonPinned []T
	for _, h := range hits {
		id := idOf(h)
		if _, isPinned := rank[id]; isPinned {
			byID[id] = h
		} else {
			nonPinned = append(nonPinned, h)
		}
	}

	pinnedOrdered := make([]T, 0, len(pinnedIDs))
	for _, id := range pinnedIDs {
		if h, ok := byID[id]; ok {
			pinnedOrdered = append(pinnedOrdered, h)
			delete(byID, id) // guard against a duplicate id appearing twice in pinnedIDs
		}
	}

	out := append(pinnedOrdered, nonPinned...)
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
