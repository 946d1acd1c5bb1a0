package journaltest

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/andreyvit/bipf"
	"github.com/andreyvit/bipf/journal"
)

var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// TestJournal is a journal in a temporary directory with a fake clock
// starting at Start and logging into the test log.
type TestJournal struct {
	*journal.Journal

	T   testing.TB
	Dir string

	opt journal.Options
	now time.Time
}

// New returns a journal that is not yet writable.
func New(t testing.TB, o journal.Options) *TestJournal {
	j := &TestJournal{
		T:   t,
		Dir: t.TempDir(),
		now: Start,
	}
	if o.FileName == "" {
		o.FileName = "j*.wal"
	}
	o.Now = func() time.Time { return j.now }
	o.Logger = slog.New(slog.NewTextHandler(&logWriter{t}, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
	}))
	o.Verbose = true
	j.opt = o
	j.Journal = journal.New(j.Dir, o)
	t.Cleanup(func() {
		j.FinishWriting()
	})
	return j
}

// Writable returns a journal that has been started for writing.
func Writable(t testing.TB, o journal.Options) *TestJournal {
	j := New(t, o)
	if err := j.StartWriting(); err != nil {
		t.Fatalf("StartWriting: %v", err)
	}
	return j
}

// Reopen finishes writing and replaces the journal with a fresh instance
// over the same directory, as if the process had restarted.
func (j *TestJournal) Reopen() {
	j.FinishWriting()
	j.Journal = journal.New(j.Dir, j.opt)
}

// Values returns the decoded values of all committed records.
func (j *TestJournal) Values() []bipf.Value {
	j.T.Helper()
	var values []bipf.Value
	var decodeErr error
	err := j.Records(func(rec journal.Record) bool {
		v, err := rec.Value()
		if err != nil {
			decodeErr = fmt.Errorf("record %d: %w", rec.ID, err)
			return false
		}
		values = append(values, v)
		return true
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		j.T.Fatalf("Records: %v", err)
	}
	return values
}

func (j *TestJournal) Data(fileName string) []byte {
	b, err := os.ReadFile(filepath.Join(j.Dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		j.T.Fatalf("when reading %v: %v", fileName, err)
	}
	return b
}

func (j *TestJournal) Now() time.Time {
	return j.now
}

func (j *TestJournal) Advance(d time.Duration) {
	j.now = j.now.Add(d)
}

func (j *TestJournal) FileNames() []string {
	var names []string
	for _, env := range must(os.ReadDir(j.Dir)) {
		names = append(names, env.Name())
	}
	slices.Sort(names)
	return names
}

type logWriter struct{ t testing.TB }

func (c *logWriter) Write(buf []byte) (int, error) {
	msg := string(buf)
	origLen := len(msg)
	msg = strings.TrimSuffix(msg, "\n")
	c.t.Log(msg)
	return origLen, nil
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Expand builds bytes from space-separated elements: hex digits ("0a_ff"),
// decimal uvarints ("#300") and literal text ("'hello"). An element can be
// repeated with a "*N" suffix, and "/" starts a comment.
func Expand(patterns ...string) []byte {
	var b []byte
	for _, p := range patterns {
		for _, elem := range strings.Fields(p) {
			elem, _, _ = strings.Cut(elem, "/")
			if elem == "" {
				continue
			}
			rep := 1
			if base, repStr, ok := strings.Cut(elem, "*"); ok && !strings.HasPrefix(elem, "'") {
				rep = must(strconv.Atoi(repStr))
				elem = base
			}
			chunk := expandElem(elem)
			for range rep {
				b = append(b, chunk...)
			}
		}
	}
	return b
}

func expandElem(elem string) []byte {
	switch {
	case strings.HasPrefix(elem, "#"):
		v := must(strconv.ParseUint(elem[1:], 10, 64))
		return binary.AppendUvarint(nil, v)
	case strings.HasPrefix(elem, "'"):
		return []byte(elem[1:])
	default:
		s := strings.ReplaceAll(elem, "_", "")
		if len(s)%2 != 0 {
			s = "0" + s
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			panic(fmt.Errorf("%w in element %q", err, elem))
		}
		return b
	}
}

// BytesEq reports a hex dump of both slices and the first differing offset
// if a and e differ.
func BytesEq(t testing.TB, a, e []byte) bool {
	if bytes.Equal(a, e) {
		return true
	}
	off := min(len(a), len(e))
	for i := range off {
		if a[i] != e[i] {
			off = i
			break
		}
	}
	t.Helper()
	t.Errorf("** got:\n%s\nwanted:\n%s\nfirst difference offset: 0x%x (%d)", hex.Dump(a), hex.Dump(e), off, off)
	return false
}
