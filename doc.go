/*
Package bipf implements a compact binary encoding of JSON-like values
(strings, byte buffers, integers, doubles, booleans, null, arrays and
objects) that can be navigated in place: a nested value can be located by
key or index directly inside the encoded bytes, skipping siblings without
decoding them.

We implement:

1. The tag codec: every value is prefixed by a single uvarint tag.

2. The value codec: SizeOf, Encode, AllocAndEncode and Decode over Value,
a closed tagged variant, plus FromNative/ToNative for plain Go values.

3. The seek engine: SeekKey, SeekIndex and SeekPath walk the tag framing
and return the offset of a descendant, or NotFound.

# Wire format

**Tag**: uvarint(byteLength<<3 | type), where byteLength is the length of
the body that follows the tag. The uvarint is the standard little-endian
base-128 encoding (same as encoding/binary).

**Types**:

	0 STRING    UTF-8 bytes
	1 BUFFER    raw bytes
	2 INT       little-endian two's complement, 1, 2, 4 or 8 bytes
	3 DOUBLE    little-endian IEEE-754, 8 bytes
	4 ARRAY     framed children, in order
	5 OBJECT    framed key (STRING or BUFFER), framed value, repeated
	6 BOOLNULL  empty body = null, 1 byte 0/1 = false/true
	7           reserved

There is no header, version or magic number; every encoded value is a
standalone self-delimiting unit.

**Offsets.** Seek functions return the offset of the found value's tag, so
the result can be passed straight to Decode or to another seek. NotFound is
negative, and every seek treats a negative offset as a miss, which lets
seeks chain:

	off := bipf.SeekKey(buf, bipf.SeekKey(buf, 0, "dependencies"), "varint")
	if off != bipf.NotFound {
		v, _, err := bipf.Decode(buf, off)
		...
	}
*/
package bipf
