// Package protect holds the process-wide correction-protection list (spec
// §3, §5, §6.4): a set of strings every correction engine must leave
// untouched wherever they occur. It is read far more often (every
// correction pass, from any number of engines) than it is written (the
// settings UI), so access is guarded by a sync.RWMutex rather than a plain
// mutex, per spec §5's "allowing concurrent reads by correction engines and
// exclusive writes by settings UI".
package protect

import "sync"

// SettingsKey is the persisted-preference key this list is stored under
// (spec §6.5).
const SettingsKey = "CorrectionProtectionWords"

// List is the process-wide protection list. The zero value is ready to use.
type List struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

// New constructs a List seeded with words (e.g. loaded from settings at
// startup).
func New(words []string) *List {
	l := &List{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		l.words[w] = struct{}{}
	}
	return l
}

// Add inserts word into the list.
func (l *List) Add(word string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.words == nil {
		l.words = make(map[string]struct{})
	}
	l.words[word] = struct{}{}
}

// Remove deletes word from the list, a no-op if absent.
func (l *List) Remove(word string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.words, word)
}

// Contains reports whether word is protected. A nil *List protects nothing.
func (l *List) Contains(word string) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.words[word]
	return ok
}

// AllWords returns every protected word, in no particular order.
func (l *List) AllWords() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.words))
	for w := range l.words {
		out = append(out, w)
	}
	return out
}
