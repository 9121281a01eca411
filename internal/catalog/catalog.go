// Package catalog holds the table of annual events and the parser for its
// plain-text source format:
//
//	<summary>: FixedDate,<Month>,<DayOfMonth>
//	<summary>: FixedDayOfMonth,<Month>,<Weekday>,<WeekInMonth>
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"iter"
	"os"
	"slices"
	"strings"
	"sync"

	"annualcal/internal/model"
)

//go:embed events.txt
var embeddedEvents []byte

// Catalog is an immutable, summary-ordered set of annual events.
type Catalog struct {
	entries []model.Entry
	index   map[string]int
}

func newCatalog(entries []model.Entry) *Catalog {
	slices.SortFunc(entries, func(a, b model.Entry) int {
		return strings.Compare(a.Summary, b.Summary)
	})
	idx := make(map[string]int, len(entries))
	for i, e := range entries {
		idx[e.Summary] = i
	}
	return &Catalog{entries: entries, index: idx}
}

// Events returns the entries ordered lexicographically by summary. The
// returned slice is a copy.
func (c *Catalog) Events() []model.Entry {
	return slices.Clone(c.entries)
}

// All iterates the entries in summary order.
func (c *Catalog) All() iter.Seq2[string, model.Descriptor] {
	return func(yield func(string, model.Descriptor) bool) {
		for _, e := range c.entries {
			if !yield(e.Summary, e.Descriptor) {
				return
			}
		}
	}
}

// Len returns the number of events.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the descriptor registered under summary.
func (c *Catalog) Lookup(summary string) (model.Descriptor, bool) {
	i, ok := c.index[summary]
	if !ok {
		return model.Descriptor{}, false
	}
	return c.entries[i].Descriptor, true
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Parse(bytes.NewReader(embeddedEvents))
})

// Default returns the catalog compiled into the binary. It is parsed once.
func Default() (*Catalog, error) {
	return defaultCatalog()
}

// Events returns the entries of the default catalog. It panics if the
// embedded catalog does not parse.
func Events() []model.Entry {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c.Events()
}

// Load parses the catalog at path, or returns the default catalog when path
// is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}
