// Package synonym implements the side-car-persisted synonym-group store and
// the textual query expansion the search service applies before dispatch.
package synonym

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
)

// Group is an unordered, non-empty set of mutually interchangeable terms.
type Group struct {
	Terms []string `json:"terms"`
}

// Store is the per-engine synonym registry, one list of groups per index,
// persisted in full to a single JSON file on every mutation.
type Store struct {
	path string

	mu     sync.RWMutex
	groups map[string][]Group // index name -> groups
}

// Load reads the side-car file at path if present, or starts empty.
func Load(path string) (*Store, error) {
	s := &Store{path: path, groups: make(map[string][]Group)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read synonyms file: %w", err)
	}
	if err := jsonutil.Unmarshal(data, &s.groups); err != nil {
		return nil, fmt.Errorf("decode synonyms file: %w", err)
	}
	return s, nil
}

// Add appends a group to an index's list and persists the full store.
// The write lock is held across both the in-memory mutation and the file
// rewrite, closing the race window the upstream design left open.
func (s *Store) Add(index string, group Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[index] = append(s.groups[index], group)
	if err := s.persistLocked(); err != nil {
		// Roll back the in-memory change so a failed persist doesn't diverge
		// memory from disk in the other direction.
		s.groups[index] = s.groups[index][:len(s.groups[index])-1]
		return err
	}
	return nil
}

// Get returns a snapshot copy of an index's synonym groups.
func (s *Store) Get(index string) []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := s.groups[index]
	out := make([]Group, len(groups))
	copy(out, groups)
	return out
}

// Clear drops every group for an index and persists the change.
func (s *Store) Clear(index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.groups[index]
	delete(s.groups, index)
	if err := s.persistLocked(); err != nil {
		s.groups[index] = prev
		return err
	}
	return nil
}

func (s *Store) persistLocked() error {
	data, err := jsonutil.MarshalIndent(s.groups, "", "  ")
	if err != nil {
		return fmt.Errorf("encode synonyms: %w", err)
	}
	if err := atomic.WriteFile(s.path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("persist synonyms: %w", err)
	}
	return nil
}

// boolean operators (matched case-insensitively) that are passed through
// unexpanded.
var skipWords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "to": {},
}

// Expand rewrites a raw query string by substituting each eligible token with
// a parenthesized OR-disjunction of its synonym group:
//   - tokens inside double-quoted phrases are passed through verbatim
//   - boolean operators, and tokens containing ':', '*', or '?', are skipped
//   - a token belonging to a group of size >= 2 becomes "( t1 OR t2 OR … )"
//   - otherwise the lowercased token is emitted unchanged
func (s *Store) Expand(index, query string) string {
	groups := s.Get(index)
	if len(groups) == 0 {
		return query
	}

	lookup := make(map[string][]string, len(groups)*2)
	for _, g := range groups {
		lower := make([]string, len(g.Terms))
		for i, t := range g.Terms {
			lower[i] = strings.ToLower(t)
		}
		if len(lower) < 2 {
			continue
		}
		for _, t := range lower {
			if _, exists := lookup[t]; !exists {
				lookup[t] = lower
			}
		}
	}
	if len(lookup) == 0 {
		return query
	}

	var out strings.Builder
	var cur strings.Builder
	inQuote := false

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := cur.String()
		cur.Reset()
		out.WriteString(expandToken(tok, inQuote, lookup))
	}

	for _, r := range query {
		switch {
		case r == '"':
			flush()
			inQuote = !inQuote
			out.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			flush()
			out.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return out.String()
}

func expandToken(tok string, inQuote bool, lookup map[string][]string) string {
	if inQuote {
		return tok
	}
	if _, isOp := skipWords[strings.ToLower(tok)]; isOp {
		return tok
	}
	if strings.ContainsAny(tok, ":*?") {
		return tok
	}

	lower := strings.ToLower(tok)
	group, ok := lookup[lower]
	if !ok {
		return lower
	}
	return "( " + strings.Join(group, " OR ") + " )"
}
