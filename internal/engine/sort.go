package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
)

type Column string

const (
	ColumnID      Column = "id"
	ColumnRank    Column = "rank"
	ColumnName    Column = "name"
	ColumnKingdom Column = "kingdom"
	ColumnRole    Column = "role"
	ColumnPower   Column = "power"
)

// SortableColumns lists the columns rendered with a sort header, in display order.
var SortableColumns = []Column{ColumnRank, ColumnName, ColumnKingdom, ColumnPower}

var numericColumns = map[Column]bool{
	ColumnID:      true,
	ColumnRank:    true,
	ColumnKingdom: true,
	ColumnPower:   true,
}

func (c Column) Valid() bool {
	switch c {
	case ColumnID, ColumnRank, ColumnName, ColumnKingdom, ColumnRole, ColumnPower:
		return true
	}
	return false
}

func (c Column) Numeric() bool { return numericColumns[c] }

// Value returns the raw value of column c in r.
func (r Row) Value(c Column) (any, error) {
	switch c {
	case ColumnID:
		return r.ID, nil
	case ColumnRank:
		return r.Rank, nil
	case ColumnName:
		return r.Name, nil
	case ColumnKingdom:
		return r.Kingdom, nil
	case ColumnRole:
		return r.Role, nil
	case ColumnPower:
		return r.Power, nil
	}
	return nil, fmt.Errorf("%q: %w", c, ErrUnknownColumn)
}

// nextDirection starts a column that was not sorted last in ascending order
// and flips the direction when the same column is sorted again.
func nextDirection(cur SortState, c Column) Direction {
	if cur.Column != c {
		return Asc
	}
	if cur.Direction == Asc {
		return Desc
	}
	return Asc
}

// SortRows returns a copy of rows stably sorted by column c. Numeric columns
// compare the number embedded in the value, the others compare case-folded text.
func SortRows(rows []Row, c Column, dir Direction) ([]Row, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("sort by %q: %w", c, ErrUnknownColumn)
	}

	type keyed struct {
		row Row
		num float64
		str string
	}
	items := make([]keyed, len(rows))
	for i, r := range rows {
		v, _ := r.Value(c)
		items[i].row = r
		if c.Numeric() {
			items[i].num = ParseNumeric(v)
		} else {
			items[i].str = fold(toString(v))
		}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		var n int
		if c.Numeric() {
			n = cmp.Compare(a.num, b.num)
		} else {
			n = cmp.Compare(a.str, b.str)
		}
		if dir == Desc {
			return -n
		}
		return n
	})

	out := make([]Row, len(items))
	for i, it := range items {
		out[i] = it.row
	}
	return out, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return fmt.Sprint(v)
}
