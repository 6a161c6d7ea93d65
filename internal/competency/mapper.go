package competency

import (
	"fmt"
	"sort"
	"strings"
)

// Row is a raw row translated into named fields.
type Row map[Field]string

// Get returns the value of f, or "" when the row has no such field.
func (r Row) Get(f Field) string {
	return r[f]
}

// Mapping assigns a column index to each field. Indexes are trusted as given:
// a negative or out-of-range index reads as an empty string.
type Mapping map[Field]int

// DefaultMapping returns the positional fourteen-column mapping.
func DefaultMapping() Mapping {
	m := make(Mapping, len(defaultOrder))
	for i, f := range defaultOrder {
		m[f] = i
	}
	return m
}

// MappingFromHeaders matches found header names against the schema, ignoring
// case and surrounding space. Fields with no matching header map to -1.
func MappingFromHeaders(headers []string) Mapping {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := pos[key]; !seen {
			pos[key] = i
		}
	}

	m := make(Mapping, len(defaultOrder))
	for _, f := range defaultOrder {
		if i, ok := pos[string(f)]; ok {
			m[f] = i
		} else {
			m[f] = -1
		}
	}
	return m
}

// ParseMapping converts a user supplied field-name to column-index map.
// Unknown field names are rejected. Fields left out map to -1.
func ParseMapping(raw map[string]int) (Mapping, error) {
	known := make(map[Field]bool, len(defaultOrder))
	for _, f := range defaultOrder {
		known[f] = true
	}

	var unknown []string
	m := make(Mapping, len(defaultOrder))
	for _, f := range defaultOrder {
		m[f] = -1
	}
	for name, idx := range raw {
		f := Field(strings.ToLower(strings.TrimSpace(name)))
		if !known[f] {
			unknown = append(unknown, name)
			continue
		}
		m[f] = idx
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownMapping, strings.Join(unknown, ", "))
	}
	return m, nil
}

// Map translates one raw row. A nil mapping uses the default column order.
func (m Mapping) Map(cells []string) Row {
	if m == nil {
		m = DefaultMapping()
	}
	row := make(Row, len(defaultOrder))
	for _, f := range defaultOrder {
		idx, ok := m[f]
		if !ok || idx < 0 || idx >= len(cells) {
			row[f] = ""
			continue
		}
		row[f] = cells[idx]
	}
	return row
}

// MapAll translates every raw row with m.
func (m Mapping) MapAll(rows [][]string) []Row {
	out := make([]Row, len(rows))
	for i, cells := range rows {
		out[i] = m.Map(cells)
	}
	return out
}

// ByName is the inverse of ParseMapping, for reporting a mapping back to a
// caller.
func (m Mapping) ByName() map[string]int {
	out := make(map[string]int, len(m))
	for f, idx := range m {
		out[string(f)] = idx
	}
	return out
}
