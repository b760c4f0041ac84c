// Package valuetable maps detector class indices to coin labels and values.
package valuetable

import (
	"fmt"
	"sort"
	"strings"
)

// Entry describes one class the detector can emit.
type Entry struct {
	Index int
	Label string
	Value int
}

// Table is an immutable class index -> {label, value} mapping. It is built
// once at start-up and shared read-only across frames and streams.
type Table struct {
	byIndex map[int]Entry
	ordered []Entry
}

// Default returns the yen coin table the detector was trained on.
func Default() []Entry {
	return []Entry{
		{Index: 0, Label: "one", Value: 1},
		{Index: 1, Label: "five", Value: 5},
		{Index: 2, Label: "ten", Value: 10},
		{Index: 3, Label: "fifty", Value: 50},
		{Index: 4, Label: "one_hundred", Value: 100},
		{Index: 5, Label: "five_hundred", Value: 500},
	}
}

// New validates entries and builds a Table.
func New(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no classes configured", ErrInvalidTable)
	}

	t := &Table{
		byIndex: make(map[int]Entry, len(entries)),
		ordered: make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		switch {
		case e.Index < 0:
			return nil, fmt.Errorf("%w: negative class index %d", ErrInvalidTable, e.Index)
		case strings.TrimSpace(e.Label) == "":
			return nil, fmt.Errorf("%w: class %d has an empty label", ErrInvalidTable, e.Index)
		case e.Value < 0:
			return nil, fmt.Errorf("%w: class %d has negative value %d", ErrInvalidTable, e.Index, e.Value)
		}
		if _, dup := t.byIndex[e.Index]; dup {
			return nil, fmt.Errorf("%w: duplicate class index %d", ErrInvalidTable, e.Index)
		}
		t.byIndex[e.Index] = e
		t.ordered = append(t.ordered, e)
	}
	sort.Slice(t.ordered, func(i, j int) bool { return t.ordered[i].Index < t.ordered[j].Index })

	return t, nil
}

// Lookup returns the entry for a class index.
func (t *Table) Lookup(index int) (Entry, error) {
	e, ok := t.byIndex[index]
	if !ok {
		return Entry{}, fmt.Errorf("%w: class index %d", ErrUnknownClass, index)
	}
	return e, nil
}

// Len returns the number of classes.
func (t *Table) Len() int {
	return len(t.ordered)
}

// Entries returns a copy of all entries ordered by class index.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.ordered))
	copy(out, t.ordered)
	return out
}
