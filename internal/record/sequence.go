package record

import (
	"errors"
	"strconv"

	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/internal/table"
	"github.com/jvs-project/regis/pkg/errclass"
)

// sequences mirrors the sequence table: the last identifier issued per
// entity table and the row position holding it.
type sequences struct {
	high  map[string]int
	pos   map[string]int
	count int
	// absent is set when the registry predates the sequence table.
	absent bool
}

func (s *Store) loadSequences() (*sequences, error) {
	if s.seq != nil {
		return s.seq, nil
	}
	seq := &sequences{high: make(map[string]int), pos: make(map[string]int)}
	rows, err := table.Collect(s.tables, schema.SequenceTable)
	if errors.Is(err, errclass.ErrNotFound) {
		seq.absent = true
		s.seq = seq
		return seq, nil
	}
	if err != nil {
		return nil, err
	}
	seq.count = len(rows)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		n, err := strconv.Atoi(field(row, 1))
		if err != nil {
			continue
		}
		if _, dup := seq.pos[row[0]]; dup {
			continue
		}
		seq.high[row[0]] = n
		seq.pos[row[0]] = i
	}
	s.seq = seq
	return seq, nil
}

// reserve records id as issued for name before the row carrying it is written.
func (s *Store) reserve(name string, id int) error {
	seq, err := s.loadSequences()
	if err != nil {
		return err
	}
	if seq.absent {
		return nil
	}
	row := table.Row{name, strconv.Itoa(id)}
	if pos, ok := seq.pos[name]; ok {
		if err := s.tables.UpdateAt(schema.SequenceTable, pos, row); err != nil {
			return err
		}
	} else {
		if err := s.tables.Append(schema.SequenceTable, row); err != nil {
			return err
		}
		seq.pos[name] = seq.count
		seq.count++
	}
	seq.high[name] = id
	return nil
}
