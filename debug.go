package bipf

import (
	"fmt"
	"strings"
)

const indentStep = "  "

// Dump renders the framing of every value in buf, one line per value:
// offset, type, body length and, for scalars, the decoded value. Values
// following each other at the top level are all listed. The first framing
// error is printed inline and ends the dump.
//
//	@0 OBJECT(12)
//	  @1 STRING(1) "a"
//	  @3 INT(1) 1
func Dump(buf []byte) string {
	var w strings.Builder
	for off := 0; off < len(buf); {
		next, ok := dumpValue(&w, buf, off, len(buf), "")
		if !ok {
			break
		}
		off = next
	}
	return w.String()
}

func dumpValue(w *strings.Builder, buf []byte, off, end int, indent string) (int, bool) {
	var tag Tag
	var err error
	if indent == "" {
		tag, err = readFramed(buf, off, end)
	} else {
		tag, err = readChild(buf, off, end)
	}
	if err != nil {
		fmt.Fprintf(w, "%s@%d ** ERROR: %v\n", indent, off, err)
		return off, false
	}
	fmt.Fprintf(w, "%s@%d %v(%d)", indent, off, tag.Type, tag.Len)

	if !tag.Type.IsContainer() {
		d := decoder{buf: buf, opt: Options{Strings: UTF8Replace}, maxDepth: 1}
		v, err := d.body(off, tag, 0)
		if err != nil {
			fmt.Fprintf(w, " ** ERROR: %v\n", err)
			return off, false
		}
		fmt.Fprintf(w, " %v\n", v)
		return tag.End(off), true
	}

	w.WriteByte('\n')
	inner := indent + indentStep
	pos, bodyEnd := tag.Body(off), tag.End(off)
	for pos < bodyEnd {
		next, ok := dumpValue(w, buf, pos, bodyEnd, inner)
		if !ok {
			return off, false
		}
		pos = next
	}
	return bodyEnd, true
}
