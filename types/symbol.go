package types

import "strings"

// SymbolMaxChars is the maximum length of a symbol. Ten 6-bit character
// codes fit in the 61-bit body of a Val with one bit to spare.
const SymbolMaxChars = 10

// Symbol is a short identifier packed into a single machine word. The
// alphabet is restricted to underscore, digits and ASCII letters; each
// character occupies 6 bits, first character in the most significant
// position so that numeric ordering of Symbols matches string ordering.
type Symbol uint64

// NewSymbol packs s into a Symbol. Strings that are too long or contain a
// character outside [_0-9A-Za-z] fail with InvalidSymbolError; a symbol is
// never truncated or rewritten to fit.
func NewSymbol(s string) (Symbol, error) {
	if len(s) > SymbolMaxChars {
		return 0, InvalidSymbolError{Str: s, Reason: "too long"}
	}
	var packed uint64
	for _, c := range []byte(s) {
		code, ok := symbolCharCode(c)
		if !ok {
			return 0, InvalidSymbolError{Str: s, Reason: "character outside [_0-9A-Za-z]"}
		}
		packed = packed<<6 | uint64(code)
	}
	// Left-align so that "a" < "aa" < "b" holds on the packed representation.
	packed <<= 6 * (SymbolMaxChars - len(s))
	return Symbol(packed), nil
}

// MustSymbol is NewSymbol for literals known to be valid. It panics on error.
func MustSymbol(s string) Symbol {
	sym, err := NewSymbol(s)
	if err != nil {
		panic(err)
	}
	return sym
}

func (s Symbol) String() string {
	var b strings.Builder
	packed := uint64(s)
	for i := 0; i < SymbolMaxChars; i++ {
		code := byte(packed >> (6 * (SymbolMaxChars - 1))) & 0x3f
		packed <<= 6
		if code == 0 {
			break
		}
		b.WriteByte(symbolCodeChar(code))
	}
	return b.String()
}

// Valid reports whether every 6-bit group of s is either a defined character
// code or trailing padding. Guest-supplied symbol bodies must pass this
// before they are accepted as Vals.
func (s Symbol) Valid() bool {
	packed := uint64(s)
	inPadding := false
	for i := 0; i < SymbolMaxChars; i++ {
		code := byte(packed>>(6*(SymbolMaxChars-1))) & 0x3f
		packed <<= 6
		switch {
		case code == 0:
			inPadding = true
		case inPadding:
			return false // character after padding
		}
	}
	// The low bit beyond 60 must be clear.
	return uint64(s)>>(6*SymbolMaxChars) == 0
}

// symbolCharCode maps a character to its nonzero 6-bit code. Zero is
// reserved for padding; the codes follow ASCII order (digits, uppercase,
// underscore, lowercase) so packed symbols sort like their strings.
func symbolCharCode(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return 1 + c - '0', true
	case c >= 'A' && c <= 'Z':
		return 11 + c - 'A', true
	case c == '_':
		return 37, true
	case c >= 'a' && c <= 'z':
		return 38 + c - 'a', true
	default:
		return 0, false
	}
}

func symbolCodeChar(code byte) byte {
	switch {
	case code >= 1 && code <= 10:
		return '0' + code - 1
	case code >= 11 && code <= 36:
		return 'A' + code - 11
	case code == 37:
		return '_'
	case code >= 38 && code <= 63:
		return 'a' + code - 38
	default:
		panic(InternalError{Msg: "symbol code out of range"})
	}
}
