package sqldb

import (
	"errors"
	"fmt"
	"strings"
)

// NullsOrder places NULLs within a sort key. Oracle and PostgreSQL accept it
// as written; other databases reject the clause.
type NullsOrder uint8

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// OrderBy is one sort key of an ORDER BY clause.
type OrderBy struct {
	Column Column
	Desc   bool
	Nulls  NullsOrder
}

// String renders the sort key without the "ORDER BY" prefix.
func (o OrderBy) String() string {
	var b strings.Builder
	o.writeTo(&b)
	return b.String()
}

func (o OrderBy) writeTo(b *strings.Builder) {
	b.WriteString(o.Column.Name())
	if o.Desc {
		b.WriteString(" DESC")
	} else {
		b.WriteString(" ASC")
	}
	switch o.Nulls {
	case NullsFirst:
		b.WriteString(" NULLS FIRST")
	case NullsLast:
		b.WriteString(" NULLS LAST")
	}
}

// ParseOrderBy reads "column [ASC|DESC] [NULLS FIRST|NULLS LAST]",
// keywords in any case.
func ParseOrderBy(s string) (OrderBy, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return OrderBy{}, errors.New("empty sort key")
	}
	col, err := NewColumn(fields[0])
	if err != nil {
		return OrderBy{}, err
	}
	o := OrderBy{Column: col}
	rest := fields[1:]
	if len(rest) > 0 {
		switch strings.ToUpper(rest[0]) {
		case "ASC":
			rest = rest[1:]
		case "DESC":
			o.Desc = true
			rest = rest[1:]
		}
	}
	if len(rest) == 2 && strings.EqualFold(rest[0], "NULLS") {
		switch strings.ToUpper(rest[1]) {
		case "FIRST":
			o.Nulls = NullsFirst
			rest = nil
		case "LAST":
			o.Nulls = NullsLast
			rest = nil
		}
	}
	if len(rest) > 0 {
		return OrderBy{}, fmt.Errorf("invalid sort key %q", s)
	}
	return o, nil
}

// ParseOrderByList splits s on commas and parses each sort key.
func ParseOrderByList(s string) ([]OrderBy, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	orders := make([]OrderBy, 0, len(parts))
	for _, p := range parts {
		o, err := ParseOrderBy(p)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// OrderByClause joins multiple OrderBy items into a valid ORDER BY SQL fragment.
func OrderByClause(orders []OrderBy) string {
	if len(orders) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(16 * len(orders))
	b.WriteString(" ORDER BY ")
	for i, o := range orders {
		if i > 0 {
			b.WriteString(", ")
		}
		o.writeTo(&b)
	}
	return b.String()
}
