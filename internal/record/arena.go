package record

import (
	"strconv"
	"strings"

	"github.com/jvs-project/regis/internal/table"
)

// arena is the in-memory image of one table: its rows in stored order plus an
// index from identifier to positions. It is built by a single scan and then
// kept in step with every mutation, so writes address rows by position
// without scanning the medium again. It assumes a single writer.
type arena struct {
	rows      []table.Row
	positions map[int][]int
	// highWater is the largest identifier observed, including deleted ones.
	highWater int
}

func loadArena(s table.Store, name string) (*arena, error) {
	rows, err := table.Collect(s, name)
	if err != nil {
		return nil, err
	}
	a := &arena{positions: make(map[int][]int)}
	for _, row := range rows {
		a.push(row)
	}
	return a, nil
}

// parseID returns the numeric identifier of row, if it has one.
func parseID(row table.Row) (int, bool) {
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return 0, false
	}
	return id, true
}

func (a *arena) push(row table.Row) {
	pos := len(a.rows)
	a.rows = append(a.rows, row)
	if id, ok := parseID(row); ok {
		a.positions[id] = append(a.positions[id], pos)
		if id > a.highWater {
			a.highWater = id
		}
	}
}

// first returns the position of the first row with id.
func (a *arena) first(id int) (int, bool) {
	p := a.positions[id]
	if len(p) == 0 {
		return 0, false
	}
	return p[0], true
}

func (a *arena) nextID() int {
	return a.highWater + 1
}

func (a *arena) replace(pos int, row table.Row) {
	a.rows[pos] = row
}

// remove drops the row at pos and shifts the positions after it.
func (a *arena) remove(pos int) {
	a.rows = append(a.rows[:pos], a.rows[pos+1:]...)
	for id, ps := range a.positions {
		kept := ps[:0]
		for _, p := range ps {
			switch {
			case p == pos:
			case p > pos:
				kept = append(kept, p-1)
			default:
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(a.positions, id)
		} else {
			a.positions[id] = kept
		}
	}
}
