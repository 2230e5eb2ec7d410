package dialect

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding is the single-byte character set used on the wire.
type Encoding int

const (
	// ASCII accepts 7-bit characters only. This is what Anthem receivers
	// speak.
	ASCII Encoding = iota
	// Latin9 is ISO-8859-15, used by devices that echo localized source
	// names.
	Latin9
)

// ParseEncoding maps a catalog name to an Encoding. The empty string means
// ASCII.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "", "ascii", "us-ascii":
		return ASCII, nil
	case "latin-9", "latin9", "iso-8859-15":
		return Latin9, nil
	default:
		return ASCII, fmt.Errorf("unsupported encoding %q", name)
	}
}

func (e Encoding) String() string {
	switch e {
	case ASCII:
		return "ascii"
	case Latin9:
		return "latin-9"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Encode converts text to wire bytes.
func (e Encoding) Encode(text string) ([]byte, error) {
	if e == Latin9 {
		b, err := charmap.ISO8859_15.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrEncoding, text, err)
		}
		return b, nil
	}

	for i := 0; i < len(text); i++ {
		if text[i] > 0x7F {
			return nil, fmt.Errorf("%w: %q is not ASCII", ErrEncoding, text)
		}
	}
	return []byte(text), nil
}

// Decode converts wire bytes to text. Decoding never fails: bytes outside
// the character set become utf8.RuneError so garbled replies can still be
// logged.
func (e Encoding) Decode(b []byte) string {
	if e == Latin9 {
		s, err := charmap.ISO8859_15.NewDecoder().Bytes(b)
		if err == nil {
			return string(s)
		}
	}

	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c > 0x7F {
			sb.WriteRune(utf8.RuneError)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
