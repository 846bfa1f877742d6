package domain

// Table is a row-oriented export table. Every row has exactly len(Columns)
// cells; a missing sensor value is an explicit empty cell, never a false
// zero. The header row (Columns) is always emitted, even for zero rows.
type Table struct {
	Columns []string
	Rows    [][]string
}
