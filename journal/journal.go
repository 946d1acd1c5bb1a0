// Package journal implements append-only journal files whose records are
// BIPF values.
//
// A journal is a directory of segment files. Records are grouped into
// transactions by commit markers; only committed records are ever returned
// by readers, and an uncommitted or corrupted tail left by a crash is
// trimmed when the journal is next opened for writing. Segments rotate
// automatically once they exceed a size limit.
//
// File format:
//
//   - file = segmentHeader (record* commit)*
//   - segmentHeader = magic:64 version:8 pad:8 flags:16 pad:32 segmentNumber:32
//     timestamp:32 prevChecksum:64 journalInvariant:256 segmentInvariant:256
//     reserved:192 checksum:64
//   - record = (size<<1):uvarint timestampDelta:uvarint data:size
//   - commit = xxhash64 of all preceding bytes of the file, with bit 0 set
//
// Record headers always have bit 0 of their first byte clear, which is how
// commit markers are told apart from records.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/andreyvit/bipf"
	"github.com/andreyvit/bipf/mmap"
)

var (
	ErrIncompatible       = errors.New("incompatible journal")
	ErrUnsupportedVersion = errors.New("unsupported journal version")
	ErrNotWriting         = errors.New("journal is not open for writing")
	errCorruptedFile      = errors.New("corrupted journal segment file")
)

type Options struct {
	Context          context.Context
	FileName         string // e.g. "mydb-*.bin"
	MaxFileSize      int64  // new segment after this size
	DebugName        string
	Now              func() time.Time
	JournalInvariant [32]byte
	SegmentInvariant [32]byte

	// Codec encodes values passed to Append and decodes Record values.
	Codec bipf.Options

	// Sync makes every Commit wait for the data to reach the disk.
	Sync bool

	Logger  *slog.Logger
	Verbose bool
}

const DefaultMaxFileSize = 4 * 1024 * 1024

// Journal is a set of segment files in one directory. Reading is always
// possible; writing requires StartWriting. All methods are safe for
// concurrent use.
type Journal struct {
	context          context.Context
	maxFileSize      int64
	fileNamePrefix   string
	fileNameSuffix   string
	debugName        string
	dir              string
	now              func() time.Time
	logger           *slog.Logger
	codec            bipf.Options
	sync             bool
	verbose          bool
	journalInvariant [32]byte
	segmentInvariant [32]byte

	writeLock sync.Mutex
	writable  bool
	writeErr  error
	writeSeg  uint32
	writeRec  uint64
	prevSum   uint64
	segWriter *segmentWriter
}

func New(dir string, o Options) *Journal {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.FileName == "" {
		o.FileName = "*"
	}
	prefix, suffix, _ := strings.Cut(o.FileName, "*")
	if o.DebugName == "" {
		o.DebugName = "journal"
	}
	if o.MaxFileSize == 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Journal{
		context:          o.Context,
		maxFileSize:      o.MaxFileSize,
		fileNamePrefix:   prefix,
		fileNameSuffix:   suffix,
		debugName:        o.DebugName,
		dir:              dir,
		now:              o.Now,
		logger:           o.Logger,
		codec:            o.Codec,
		sync:             o.Sync,
		verbose:          o.Verbose,
		journalInvariant: o.JournalInvariant,
		segmentInvariant: o.SegmentInvariant,
	}
}

// Now returns the current time as a record timestamp.
func (j *Journal) Now() uint32 {
	v := j.now().Unix()
	if v < 0 {
		panic("time travel disallowed")
	}
	u := uint64(v)
	if u&0xFFFF_FFFF_0000_0000 != 0 {
		panic("time travel disallowed both ways")
	}
	return uint32(u)
}

func (j *Journal) String() string {
	return j.debugName
}

// StartWriting prepares the journal for appending. If the last segment
// ends with uncommitted or corrupted data, that data is cut off; a last
// segment with a damaged header is deleted.
func (j *Journal) StartWriting() error {
	j.writeLock.Lock()
	defer j.writeLock.Unlock()
	if j.writable {
		return nil
	}
	if j.writeErr != nil {
		return j.writeErr
	}
	err := j.prepareToWrite_locked()
	if err != nil {
		return fmt.Errorf("%v: %w", j.debugName, err)
	}
	j.writable = true
	return nil
}

func (j *Journal) prepareToWrite_locked() error {
	ds, err := os.Stat(j.dir)
	if err != nil {
		return err
	}
	if !ds.IsDir() {
		return fmt.Errorf("%v: not a directory", j.dir)
	}

	names, err := j.segmentNames()
	if err != nil {
		return err
	}

	for len(names) > 0 {
		lastName := names[len(names)-1]
		names = names[:len(names)-1]

		seq, _, id, err := j.parseName(lastName)
		if err != nil {
			return err
		}

		fn := filepath.Join(j.dir, lastName)
		m, err := mmap.Open(fn, mmap.SequentialAccess)
		if err != nil {
			return err
		}
		data := m.Bytes()
		size := int64(len(data))

		var h segmentHeader
		err = j.checkHeader(data, &h, seq)
		if err == errCorruptedFile {
			m.Close()
			j.logger.LogAttrs(j.context, slog.LevelWarn, "journal: deleting corrupted file", slog.String("jrnl", j.debugName), slog.String("file", lastName), slog.Int64("size", size))
			err := os.Remove(fn)
			if err != nil {
				return fmt.Errorf("failed to delete corrupted file: %w", err)
			}
			continue
		} else if err != nil {
			m.Close()
			return fmt.Errorf("%s: %w", lastName, err)
		}

		r := scanSegment(data, &h, nil)
		err = m.Close()
		if err != nil {
			return err
		}

		if !r.clean {
			j.logger.LogAttrs(j.context, slog.LevelWarn, "journal: trimming uncommitted tail", slog.String("jrnl", j.debugName), slog.String("file", lastName), slog.Int64("size", size), slog.Int("committed", r.committedEnd))
			err := os.Truncate(fn, int64(r.committedEnd))
			if err != nil {
				return fmt.Errorf("failed to trim %s: %w", lastName, err)
			}
		}

		j.writeSeg = seq
		j.writeRec = id + uint64(r.committedRec) - 1
		if r.committedRec > 0 {
			j.prevSum = r.lastSum
		} else {
			j.prevSum = h.PrevChecksum
		}
		if j.verbose {
			j.logger.LogAttrs(j.context, slog.LevelDebug, "journal: resuming", slog.String("jrnl", j.debugName), slog.String("file", lastName), slog.Uint64("last_rec", j.writeRec))
		}
		return nil
	}
	return nil
}

// FinishWriting closes the current segment. Records written since the last
// Commit stay on disk but are never read and get trimmed by the next
// StartWriting.
func (j *Journal) FinishWriting() {
	j.writeLock.Lock()
	defer j.writeLock.Unlock()
	j.finishWriting_locked()
}

func (j *Journal) finishWriting_locked() {
	j.writable = false
	j.closeSegment_locked()
}

func (j *Journal) closeSegment_locked() {
	if j.segWriter == nil {
		return
	}
	j.prevSum = j.segWriter.lastSum
	err := j.segWriter.close()
	if err != nil {
		j.logger.LogAttrs(j.context, slog.LevelError, "journal: closing segment", slog.String("jrnl", j.debugName), slog.Any("err", err))
	}
	j.segWriter = nil
}

// fail records the first write error; the journal stops accepting writes
// after it.
func (j *Journal) fail(err error) error {
	if err == nil {
		return nil
	}

	j.logger.LogAttrs(j.context, slog.LevelError, "journal: failed", slog.String("jrnl", j.debugName), slog.Any("err", err))

	j.finishWriting_locked()

	if j.writeErr == nil {
		j.writeErr = err
	}
	return err
}

func (j *Journal) checkHeader(data []byte, h *segmentHeader, seq uint32) error {
	err := decodeSegmentHeader(data, h, seq)
	if err != nil {
		return err
	}
	if h.JournalInvariant != j.journalInvariant {
		return ErrIncompatible
	}
	return nil
}

// segmentNames lists segment files in order.
func (j *Journal) segmentNames() ([]string, error) {
	ents, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, ent := range ents {
		if !ent.Type().IsRegular() {
			continue
		}
		name := ent.Name()
		if !strings.HasPrefix(name, j.fileNamePrefix) || !strings.HasSuffix(name, j.fileNameSuffix) {
			continue
		}
		if len(name) < len(j.fileNamePrefix)+len(j.fileNameSuffix) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// FileNames returns the names of the segment files, oldest first.
func (j *Journal) FileNames() ([]string, error) {
	return j.segmentNames()
}

func (j *Journal) parseName(name string) (seq, ts uint32, id uint64, err error) {
	core := name[len(j.fileNamePrefix) : len(name)-len(j.fileNameSuffix)]
	return parseSegmentName(core)
}

// Append encodes v and writes it as a record stamped with the current time.
func (j *Journal) Append(v bipf.Value) error {
	data, err := j.codec.AllocAndEncode(v)
	if err != nil {
		return err
	}
	return j.WriteRecord(0, data)
}

// WriteRecord writes an encoded value as a new record. A zero timestamp
// means now. The record becomes visible after the next Commit.
func (j *Journal) WriteRecord(timestamp uint32, data []byte) error {
	end, err := bipf.Skip(data, 0)
	if err == nil && end != len(data) {
		err = fmt.Errorf("%w: %d bytes after the value", bipf.ErrTrailingGarbage, len(data)-end)
	}
	if err != nil {
		return fmt.Errorf("%v: invalid record: %w", j.debugName, err)
	}

	j.writeLock.Lock()
	defer j.writeLock.Unlock()

	if j.writeErr != nil {
		return j.writeErr
	}
	if !j.writable {
		return ErrNotWriting
	}

	if timestamp == 0 {
		timestamp = j.Now()
	}

	if j.segWriter == nil {
		sw, err := startSegment(j, j.writeSeg+1, timestamp, j.writeRec+1)
		if err != nil {
			return j.fail(err)
		}
		j.writeSeg++
		j.segWriter = sw
	}
	j.writeRec++

	return j.fail(j.segWriter.writeRecord(timestamp, data))
}

// Commit makes all records written so far visible to readers. With
// Options.Sync, it returns after the data reaches the disk. A segment that
// has grown past MaxFileSize is closed, and the next record starts a new one.
func (j *Journal) Commit() error {
	j.writeLock.Lock()
	defer j.writeLock.Unlock()
	if j.writeErr != nil {
		return j.writeErr
	}
	if j.segWriter == nil {
		return nil
	}
	err := j.segWriter.commit(j.sync)
	if err != nil {
		return j.fail(err)
	}
	if j.segWriter.size >= j.maxFileSize {
		j.rotate_locked()
	}
	return nil
}

// Rotate commits pending records and closes the current segment, so the
// next record goes into a new one.
func (j *Journal) Rotate() error {
	j.writeLock.Lock()
	defer j.writeLock.Unlock()
	if j.writeErr != nil {
		return j.writeErr
	}
	if !j.writable {
		return ErrNotWriting
	}
	if j.segWriter == nil {
		return nil
	}
	err := j.segWriter.commit(j.sync)
	if err != nil {
		return j.fail(err)
	}
	j.rotate_locked()
	return nil
}

func (j *Journal) rotate_locked() {
	if j.verbose {
		j.logger.LogAttrs(j.context, slog.LevelDebug, "journal: rotating", slog.String("jrnl", j.debugName), slog.String("file", j.segWriter.name), slog.Int64("size", j.segWriter.size))
	}
	j.closeSegment_locked()
}

type segmentWriter struct {
	f           *os.File
	name        string
	ts          uint32
	size        int64
	hash        xxhash.Digest
	lastSum     uint64
	uncommitted bool
}

func startSegment(j *Journal, seg, ts uint32, rec uint64) (*segmentWriter, error) {
	name := formatSegmentName(j.fileNamePrefix, j.fileNameSuffix, seg, ts, rec)

	f, err := os.OpenFile(filepath.Join(j.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return nil, err
	}

	var ok bool
	defer closeAndDeleteUnlessOK(f, &ok)

	sw := &segmentWriter{
		f:       f,
		name:    name,
		ts:      ts,
		size:    segmentHeaderSize,
		lastSum: j.prevSum,
	}
	sw.hash.Reset()

	h := segmentHeader{
		Version:          version0,
		SegmentOrdinal:   seg,
		Timestamp:        ts,
		PrevChecksum:     j.prevSum,
		JournalInvariant: j.journalInvariant,
		SegmentInvariant: j.segmentInvariant,
	}
	var hbuf [segmentHeaderSize]byte
	encodeSegmentHeader(hbuf[:], &h, &sw.hash)

	_, err = f.Write(hbuf[:])
	if err != nil {
		return nil, err
	}

	if j.verbose {
		j.logger.LogAttrs(j.context, slog.LevelDebug, "journal: started segment", slog.String("jrnl", j.debugName), slog.String("file", name))
	}
	ok = true
	return sw, nil
}

func (sw *segmentWriter) writeRecord(ts uint32, data []byte) error {
	var tsDelta uint32
	if ts > sw.ts {
		tsDelta = ts - sw.ts
		sw.ts = ts
	}
	sw.uncommitted = true

	var hbuf [maxRecHeaderLen]byte
	h := appendRecordHeader(hbuf[:0], len(data), tsDelta)

	sw.hash.Write(h)
	_, err := sw.f.Write(h)
	if err != nil {
		return err
	}

	sw.hash.Write(data)
	_, err = sw.f.Write(data)
	if err != nil {
		return err
	}

	sw.size += int64(len(h) + len(data))
	return nil
}

func (sw *segmentWriter) commit(durable bool) error {
	if !sw.uncommitted {
		return nil
	}
	sw.uncommitted = false

	sum := sw.hash.Sum64()
	buf := commitMarker(sum)

	sw.hash.Write(buf[:])
	_, err := sw.f.Write(buf[:])
	if err != nil {
		return err
	}
	sw.size += int64(len(buf))
	sw.lastSum = sum | uint64(recordFlagCommit)

	if durable {
		return mmap.Fdatasync(sw.f, nil)
	}
	return nil
}

func (sw *segmentWriter) close() error {
	if sw.f == nil {
		return nil
	}
	err := sw.f.Close()
	sw.f = nil
	return err
}

func closeAndDeleteUnlessOK(f *os.File, ok *bool) {
	if *ok {
		return
	}
	f.Close()
	os.Remove(f.Name())
}
