package bipf

// IntPolicy selects how integers are laid out on encode. Decoding always
// accepts 1, 2, 4 and 8-byte INT bodies regardless of the policy.
type IntPolicy int

const (
	// IntsCompact uses the smallest of 1, 2, 4 or 8 bytes that holds the value.
	IntsCompact IntPolicy = iota

	// IntsFixed32 always uses 4 bytes and fails with ErrIntOverflow for values
	// outside the int32 range.
	IntsFixed32

	// IntsFixed32OrDouble uses 4 bytes for values in the int32 range and
	// encodes everything else as DOUBLE. This matches the layout produced by
	// JavaScript encoders, which only have doubles and 32-bit integers.
	IntsFixed32OrDouble
)

// UTF8Policy selects what the decoder does with STRING bodies that are not
// valid UTF-8. The encoder writes string bytes verbatim.
type UTF8Policy int

const (
	// UTF8Strict fails with ErrInvalidUTF8.
	UTF8Strict UTF8Policy = iota

	// UTF8Replace replaces each invalid sequence with U+FFFD.
	UTF8Replace
)

const DefaultMaxDepth = 10000

// Options configure encoding and decoding. The zero value is equivalent to
// DefaultOptions.
type Options struct {
	Ints    IntPolicy
	Strings UTF8Policy

	// MaxDepth bounds container nesting on both encode and decode
	// (ErrTooDeep). Zero means DefaultMaxDepth.
	MaxDepth int
}

var DefaultOptions = Options{}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// intLayout returns the body width of an INT, or 0 if v is to be encoded
// as DOUBLE.
func (o Options) intLayout(v int64) (int, error) {
	switch o.Ints {
	case IntsCompact:
		return intWidth(v), nil
	case IntsFixed32:
		if intWidth(v) > 4 {
			return 0, valueErrf(ErrIntOverflow, "%d does not fit into 32 bits", v)
		}
		return 4, nil
	case IntsFixed32OrDouble:
		if intWidth(v) > 4 {
			return 0, nil
		}
		return 4, nil
	default:
		return 0, valueErrf(ErrUnsupportedValue, "invalid IntPolicy %d", o.Ints)
	}
}
