package bipf

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedTag     = errors.New("malformed tag")
	ErrBufferTooSmall   = errors.New("buffer too small")
	ErrTruncatedInput   = errors.New("truncated input")
	ErrUnknownType      = errors.New("unknown type")
	ErrInvalidUTF8      = errors.New("invalid UTF-8 in string")
	ErrOverrunChild     = errors.New("child overruns its container")
	ErrTrailingGarbage  = errors.New("trailing garbage")
	ErrInvalidBody      = errors.New("invalid body length for type")
	ErrInvalidKey       = errors.New("object key must be a string or buffer")
	ErrTooDeep          = errors.New("nesting too deep")
	ErrTypeMismatch     = errors.New("unexpected type")
	ErrIntOverflow      = errors.New("integer out of range")
	ErrUnsupportedValue = errors.New("unsupported value")
)

// DataError reports a problem with encoded data. Err is one of the sentinel
// errors above (or an error returned by a bridged codec), so callers can
// test with errors.Is.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Msg != "" {
			return fmt.Sprintf("%v at %d: %s: (%d) %x", e.Err, e.Off, e.Msg, n, e.Data)
		} else {
			return fmt.Sprintf("%v at %d: (%d) %x", e.Err, e.Off, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Msg != "" {
			return fmt.Sprintf("%v at %d: %s: (%d) %x...%x", e.Err, e.Off, e.Msg, n, p, s)
		} else {
			return fmt.Sprintf("%v at %d: (%d) %x...%x", e.Err, e.Off, n, p, s)
		}
	}
}

func valueErrf(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
}
