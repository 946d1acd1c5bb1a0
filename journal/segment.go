package journal

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

const (
	magic          = 0x54414c4e52554f4a // "JOURNLAT" as little-endian uint64
	version0 uint8 = 0
)

const segmentHeaderSize = 16 * 8

// segmentHeader is the fixed-size prefix of every segment file. Checksum
// covers the preceding 120 bytes.
type segmentHeader struct {
	Magic            uint64
	Version          uint8
	_                uint8
	Flags            uint16
	_                uint32
	SegmentOrdinal   uint32
	Timestamp        uint32
	PrevChecksum     uint64
	JournalInvariant [32]byte
	SegmentInvariant [32]byte
	_                [3]uint64
	Checksum         uint64
}

const (
	recordFlagCommit byte = 1
	recordFlagShift       = 1
	timestampFmt          = "20060102T150405"
)

// Invariant hashes a description of what the records of a journal depend
// on, such as a schema version, into a JournalInvariant or SegmentInvariant.
// Parts are length-prefixed, so ("ab", "c") and ("a", "bc") differ.
func Invariant(parts ...string) [32]byte {
	h := blake3.New()
	var n [binary.MaxVarintLen64]byte
	for _, p := range parts {
		h.Write(n[:binary.PutUvarint(n[:], uint64(len(p)))])
		h.Write([]byte(p))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

const maxRecHeaderLen = binary.MaxVarintLen64 + binary.MaxVarintLen32

// encodeSegmentHeader fills buf with the header, feeding all of its bytes
// into hash.
func encodeSegmentHeader(buf []byte, h *segmentHeader, hash *xxhash.Digest) {
	h.Magic = magic
	n, err := binary.Encode(buf, binary.LittleEndian, h)
	if err != nil {
		panic(err)
	}
	if n != segmentHeaderSize {
		panic("internal size mismatch")
	}
	hash.Write(buf[:segmentHeaderSize-8])
	h.Checksum = hash.Sum64()
	binary.LittleEndian.PutUint64(buf[segmentHeaderSize-8:], h.Checksum)
	hash.Write(buf[segmentHeaderSize-8 : segmentHeaderSize])
}

// decodeSegmentHeader returns errCorruptedFile for anything that does not
// look like a header of segment number seq.
func decodeSegmentHeader(buf []byte, h *segmentHeader, seq uint32) error {
	if len(buf) < segmentHeaderSize {
		return errCorruptedFile
	}
	n, err := binary.Decode(buf[:segmentHeaderSize], binary.LittleEndian, h)
	if err != nil {
		panic(err)
	}
	if n != segmentHeaderSize {
		panic("internal size mismatch")
	}
	if h.Magic != magic {
		return errCorruptedFile
	}
	if xxhash.Sum64(buf[:segmentHeaderSize-8]) != h.Checksum {
		return errCorruptedFile
	}
	if h.SegmentOrdinal != seq {
		return errCorruptedFile
	}
	if h.Version > version0 {
		return ErrUnsupportedVersion
	}
	return nil
}

func appendRecordHeader(b []byte, size int, tsDelta uint32) []byte {
	b = binary.AppendUvarint(b, uint64(size)<<recordFlagShift)
	b = binary.AppendUvarint(b, uint64(tsDelta))
	return b
}

func commitMarker(sum uint64) [8]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], sum)
	buf[0] |= recordFlagCommit
	return buf
}

func formatSegmentName(prefix, suffix string, seq, ts uint32, id uint64) string {
	t := time.Unix(int64(uint64(ts)), 0).UTC()
	return fmt.Sprintf("%s%012d-%s-%016x%s", prefix, seq, t.Format(timestampFmt), id, suffix)
}

// parseSegmentName parses a name produced by formatSegmentName with the
// prefix and suffix already removed.
func parseSegmentName(name string) (seq, ts uint32, id uint64, err error) {
	seqStr, rem, ok := strings.Cut(name, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q", name)
	}
	v, err := strconv.ParseUint(seqStr, 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q (invalid segment number)", name)
	}
	seq = uint32(v)

	tsStr, idStr, ok := strings.Cut(rem, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q", name)
	}
	t, err := time.ParseInLocation(timestampFmt, tsStr, time.UTC)
	if err != nil {
		return seq, 0, 0, fmt.Errorf("invalid segment file name %q (invalid timestamp)", name)
	}
	ts = uint32(t.Unix())

	id, err = strconv.ParseUint(idStr, 16, 64)
	if err != nil {
		return seq, 0, 0, fmt.Errorf("invalid segment file name %q (invalid record identifier)", name)
	}
	return
}

// scanResult describes the committed part of a segment.
type scanResult struct {
	committedEnd int    // offset just past the last valid commit marker
	committedRec int    // records before committedEnd
	lastSum      uint64 // value of the last commit marker
	clean        bool   // no bytes follow committedEnd
	stopped      bool   // emit returned false
}

// scanSegment walks the records of a segment whose header has already been
// validated, calling emit for each committed record in order. Parsing stops
// at the first record that is truncated or not followed by a valid commit
// marker. emit may stop the scan by returning false, in which case only
// the stopped flag of the result is meaningful.
func scanSegment(data []byte, h *segmentHeader, emit func(ts uint32, data []byte) bool) scanResult {
	type pending struct {
		ts   uint32
		body []byte
	}
	var pend []pending

	var hash xxhash.Digest
	hash.Reset()
	hash.Write(data[:segmentHeaderSize])

	r := scanResult{committedEnd: segmentHeaderSize}
	ts := h.Timestamp
	off := segmentHeaderSize
	n := len(data)
	for off < n {
		if data[off]&recordFlagCommit != 0 {
			if n-off < 8 {
				break
			}
			want := commitMarker(hash.Sum64())
			if [8]byte(data[off:off+8]) != want {
				break
			}
			hash.Write(data[off : off+8])
			off += 8
			r.committedEnd = off
			r.committedRec += len(pend)
			r.lastSum = binary.LittleEndian.Uint64(want[:])
			if emit != nil {
				for _, p := range pend {
					if !emit(p.ts, p.body) {
						r.stopped = true
						return r
					}
				}
			}
			pend = pend[:0]
			continue
		}

		start := off
		sizeAndFlags, k := binary.Uvarint(data[off:])
		if k <= 0 {
			break
		}
		off += k
		tsDelta, k := binary.Uvarint(data[off:])
		if k <= 0 || tsDelta > 0xFFFF_FFFF {
			break
		}
		off += k
		size := sizeAndFlags >> recordFlagShift
		if size > uint64(n-off) {
			break
		}
		ts += uint32(tsDelta)
		body := data[off : off+int(size) : off+int(size)]
		off += int(size)
		hash.Write(data[start:off])
		pend = append(pend, pending{ts, body})
	}
	r.clean = r.committedEnd == n
	return r
}
