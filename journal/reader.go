package journal

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/andreyvit/bipf"
	"github.com/andreyvit/bipf/mmap"
)

// Record is a committed journal record. Data aliases a memory-mapped
// segment file and is only valid inside the Records callback; use Clone to
// keep it.
type Record struct {
	Segment   uint32
	ID        uint64
	Timestamp uint32
	Data      []byte

	codec bipf.Options
}

func (r Record) Time() time.Time {
	return time.Unix(int64(r.Timestamp), 0).UTC()
}

// Clone returns a copy of r that does not alias the segment file.
func (r Record) Clone() Record {
	r.Data = bytes.Clone(r.Data)
	return r
}

// Value decodes the record.
func (r Record) Value() (bipf.Value, error) {
	v, _, err := r.codec.Decode(r.Data, 0)
	return v, err
}

// Lookup decodes only the value at path inside the record.
func (r Record) Lookup(path ...any) (bipf.Value, bool, error) {
	return r.codec.Lookup(r.Data, 0, path...)
}

func (r Record) String() string {
	v, err := r.Value()
	if err != nil {
		return fmt.Sprintf("%d/%d@%d ** %v", r.Segment, r.ID, r.Timestamp, err)
	}
	return fmt.Sprintf("%d/%d@%d %v", r.Segment, r.ID, r.Timestamp, v)
}

// Records calls fn for every committed record, oldest first, until fn
// returns false. Segments with damaged headers and data after the last
// valid commit marker of a segment are skipped with a warning. It can run
// concurrently with a writer and sees the commits made before each segment
// is opened.
func (j *Journal) Records(fn func(rec Record) bool) error {
	names, err := j.segmentNames()
	if err != nil {
		return err
	}
	for i, name := range names {
		if err := j.context.Err(); err != nil {
			return err
		}
		last := (i == len(names)-1)

		seq, _, id, err := j.parseName(name)
		if err != nil {
			return err
		}

		m, err := mmap.Open(filepath.Join(j.dir, name), mmap.SequentialAccess)
		if err != nil {
			return err
		}
		data := m.Bytes()

		var h segmentHeader
		err = j.checkHeader(data, &h, seq)
		if err == errCorruptedFile {
			m.Close()
			j.logger.LogAttrs(j.context, slog.LevelWarn, "journal: skipping corrupted file", slog.String("jrnl", j.debugName), slog.String("file", name), slog.Int("size", len(data)))
			continue
		} else if err != nil {
			m.Close()
			return fmt.Errorf("%v: %s: %w", j.debugName, name, err)
		}

		rec := id
		r := scanSegment(data, &h, func(ts uint32, body []byte) bool {
			ok := fn(Record{
				Segment:   seq,
				ID:        rec,
				Timestamp: ts,
				Data:      body,
				codec:     j.codec,
			})
			rec++
			return ok
		})
		err = m.Close()
		if err != nil {
			return err
		}
		if r.stopped {
			return nil
		}
		if !r.clean {
			// the last segment may be in the middle of a transaction
			level := slog.LevelWarn
			if last {
				level = slog.LevelDebug
			}
			j.logger.LogAttrs(j.context, level, "journal: skipping uncommitted tail", slog.String("jrnl", j.debugName), slog.String("file", name), slog.Int("size", len(data)), slog.Int("committed", r.committedEnd))
		}
	}
	return nil
}
