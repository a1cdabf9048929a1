// Package types provides core types used throughout the hostvm package.
package types

import "fmt"

// Val is the 64-bit tagged value exchanged between the host and the guest.
// The low 3 bits hold the tag, the remaining 61 bits hold the body. Small
// integers, booleans, the void singleton, short symbols and status codes are
// stored inline; everything larger lives in the object store and is
// referenced through a Handle packed into the body.
//
// A Val's tag fully determines how its body is interpreted. All Vals inside
// the host originate from the constructors in this file (or from guest words
// that passed Host validation), so decoding an unknown tag is a host bug,
// not a guest fault.
type Val uint64

// Tag enumerates the payload interpretations of a Val.
type Tag uint8

const (
	// TagU32 holds an unsigned 32-bit integer inline.
	TagU32 Tag = 0
	// TagI32 holds a signed 32-bit integer inline.
	TagI32 Tag = 1
	// TagStatic holds one of the singleton constants Void, True, False.
	TagStatic Tag = 2
	// TagObject holds a Handle referencing the object store.
	TagObject Tag = 3
	// TagSymbol holds a short identifier packed at 6 bits per character.
	TagSymbol Tag = 4
	// TagStatus holds a guest-visible error code.
	TagStatus Tag = 5

	// NumTags is the number of defined tags. Bodies of Vals with tags at or
	// above this value are meaningless.
	NumTags Tag = 6
)

const (
	tagBits = 3
	tagMask = (1 << tagBits) - 1

	staticVoid  = 0
	staticTrue  = 1
	staticFalse = 2
)

func (t Tag) String() string {
	switch t {
	case TagU32:
		return "u32"
	case TagI32:
		return "i32"
	case TagStatic:
		return "static"
	case TagObject:
		return "object"
	case TagSymbol:
		return "symbol"
	case TagStatus:
		return "status"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// fromBody packs a tag and a 61-bit body into a Val.
func fromBody(tag Tag, body uint64) Val {
	return Val(body<<tagBits | uint64(tag))
}

// GetTag returns the tag of v without inspecting the body.
func (v Val) GetTag() Tag {
	return Tag(uint64(v) & tagMask)
}

// body returns the 61 payload bits of v.
func (v Val) body() uint64 {
	return uint64(v) >> tagBits
}

// VoidVal returns the void singleton.
func VoidVal() Val {
	return fromBody(TagStatic, staticVoid)
}

// BoolVal returns the True or False singleton.
func BoolVal(b bool) Val {
	if b {
		return fromBody(TagStatic, staticTrue)
	}
	return fromBody(TagStatic, staticFalse)
}

// U32Val wraps an unsigned 32-bit integer inline.
func U32Val(u uint32) Val {
	return fromBody(TagU32, uint64(u))
}

// I32Val wraps a signed 32-bit integer inline.
func I32Val(i int32) Val {
	return fromBody(TagI32, uint64(uint32(i)))
}

// SymbolVal wraps a packed symbol.
func SymbolVal(s Symbol) Val {
	return fromBody(TagSymbol, uint64(s))
}

// StatusVal wraps a guest-visible status code.
func StatusVal(c StatusCode) Val {
	return fromBody(TagStatus, uint64(c))
}

const (
	handleIndexShift = 8
	handleSaltShift  = 40

	// HandleSaltMask bounds the store salt folded into a handle body: 21 bits
	// remain above the 8-bit object type and the 32-bit arena index.
	HandleSaltMask = (1 << (61 - handleSaltShift)) - 1
)

// ObjectVal wraps a handle to the object store.
func ObjectVal(h Handle) Val {
	body := uint64(h.Salt&HandleSaltMask)<<handleSaltShift |
		uint64(h.Index)<<handleIndexShift |
		uint64(h.Type)
	return fromBody(TagObject, body)
}

// IsVoid reports whether v is the void singleton.
func (v Val) IsVoid() bool {
	return v.GetTag() == TagStatic && v.body() == staticVoid
}

// IsBool reports whether v is True or False.
func (v Val) IsBool() bool {
	b := v.body()
	return v.GetTag() == TagStatic && (b == staticTrue || b == staticFalse)
}

// MustBool unpacks a boolean Val. It panics on any other Val; callers must
// check IsBool (or go through the conversion layer) first.
func (v Val) MustBool() bool {
	switch {
	case v.GetTag() != TagStatic:
		panic(InternalError{Msg: fmt.Sprintf("bool from %s val", v.GetTag())})
	case v.body() == staticTrue:
		return true
	case v.body() == staticFalse:
		return false
	default:
		panic(InternalError{Msg: "bool from void val"})
	}
}

// U32 unpacks an inline unsigned integer. The tag must be TagU32.
func (v Val) U32() uint32 {
	v.assertTag(TagU32)
	return uint32(v.body())
}

// I32 unpacks an inline signed integer. The tag must be TagI32.
func (v Val) I32() int32 {
	v.assertTag(TagI32)
	return int32(uint32(v.body()))
}

// Symbol unpacks an inline symbol. The tag must be TagSymbol.
func (v Val) Symbol() Symbol {
	v.assertTag(TagSymbol)
	return Symbol(v.body())
}

// Status unpacks an inline status code. The tag must be TagStatus.
func (v Val) Status() StatusCode {
	v.assertTag(TagStatus)
	return StatusCode(v.body())
}

// Handle unpacks an object handle. The tag must be TagObject.
func (v Val) Handle() Handle {
	v.assertTag(TagObject)
	body := v.body()
	return Handle{
		Type:  ObjectType(body & 0xff),
		Index: uint32(body >> handleIndexShift),
		Salt:  uint32(body >> handleSaltShift),
	}
}

func (v Val) assertTag(want Tag) {
	if v.GetTag() != want {
		panic(InternalError{Msg: fmt.Sprintf("decoded %s val as %s", v.GetTag(), want)})
	}
}

func (v Val) String() string {
	switch v.GetTag() {
	case TagU32:
		return fmt.Sprintf("U32(%d)", v.U32())
	case TagI32:
		return fmt.Sprintf("I32(%d)", v.I32())
	case TagStatic:
		switch v.body() {
		case staticVoid:
			return "Void"
		case staticTrue:
			return "True"
		case staticFalse:
			return "False"
		}
		return fmt.Sprintf("Static(%d)", v.body())
	case TagObject:
		h := v.Handle()
		return fmt.Sprintf("Object(%s #%d)", h.Type, h.Index)
	case TagSymbol:
		return fmt.Sprintf("Symbol(%s)", v.Symbol())
	case TagStatus:
		return fmt.Sprintf("Status(%s)", v.Status())
	default:
		return fmt.Sprintf("Val(%#x)", uint64(v))
	}
}

// ObjectType discriminates the payload variants of the object store.
type ObjectType uint8

const (
	ObjectTypeU64 ObjectType = iota
	ObjectTypeI64
	ObjectTypeBigInt
	ObjectTypeU256
	ObjectTypeBytes
	ObjectTypeVec
	ObjectTypeMap
	ObjectTypeTuple

	// NumObjectTypes is the number of defined object types.
	NumObjectTypes
)

func (t ObjectType) String() string {
	switch t {
	case ObjectTypeU64:
		return "u64"
	case ObjectTypeI64:
		return "i64"
	case ObjectTypeBigInt:
		return "bigint"
	case ObjectTypeU256:
		return "u256"
	case ObjectTypeBytes:
		return "bytes"
	case ObjectTypeVec:
		return "vec"
	case ObjectTypeMap:
		return "map"
	case ObjectTypeTuple:
		return "tuple"
	default:
		return fmt.Sprintf("objtype(%d)", uint8(t))
	}
}

// Handle is an opaque reference to an entry in the object store. Handles are
// minted monotonically and are only meaningful within the store that minted
// them: every store stamps its own salt into the handles it mints and rejects
// any other salt, so presenting a handle to another store yields
// UnknownHandleError even when an index happens to collide.
type Handle struct {
	Type  ObjectType
	Index uint32
	Salt  uint32
}

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d", h.Type, h.Index)
}

// StatusCode is a guest-visible error code carried by a TagStatus Val.
// fail-style host functions and try_call surface recoverable faults to the
// guest as status values instead of unwinding the invocation.
type StatusCode uint32

const (
	StatusUnknownError StatusCode = iota
	StatusInvalidArgument
	StatusUnexpectedType
	StatusUnknownHandle
	StatusInvalidSymbol
	StatusResourceLimit
	StatusCallDepth
	StatusStorage
	StatusContractError

	// NumStatusCodes is the number of defined status codes.
	NumStatusCodes
)

func (c StatusCode) String() string {
	switch c {
	case StatusUnknownError:
		return "unknown"
	case StatusInvalidArgument:
		return "invalid_argument"
	case StatusUnexpectedType:
		return "unexpected_type"
	case StatusUnknownHandle:
		return "unknown_handle"
	case StatusInvalidSymbol:
		return "invalid_symbol"
	case StatusResourceLimit:
		return "resource_limit"
	case StatusCallDepth:
		return "call_depth"
	case StatusStorage:
		return "storage"
	case StatusContractError:
		return "contract_error"
	default:
		return fmt.Sprintf("status(%d)", uint32(c))
	}
}
