package mxpack

// Named format tags, per the MessagePack spec
// (https://github.com/msgpack/msgpack/blob/master/spec.md).
const (
	tagPosFixIntMax byte = 0x7f
	tagFixMapMin    byte = 0x80
	tagFixMapMax    byte = 0x8f
	tagFixArrayMin  byte = 0x90
	tagFixArrayMax  byte = 0x9f
	tagFixStrMin    byte = 0xa0
	tagFixStrMax    byte = 0xbf

	tagNil       byte = 0xc0
	tagNeverUsed byte = 0xc1
	tagFalse     byte = 0xc2
	tagTrue      byte = 0xc3
	tagBin8      byte = 0xc4
	tagBin16     byte = 0xc5
	tagBin32     byte = 0xc6
	tagExt8      byte = 0xc7
	tagExt16     byte = 0xc8
	tagExt32     byte = 0xc9
	tagFloat32   byte = 0xca
	tagFloat64   byte = 0xcb
	tagUint8     byte = 0xcc
	tagUint16    byte = 0xcd
	tagUint32    byte = 0xce
	tagUint64    byte = 0xcf
	tagInt8      byte = 0xd0
	tagInt16     byte = 0xd1
	tagInt32     byte = 0xd2
	tagInt64     byte = 0xd3
	tagFixExt1   byte = 0xd4
	tagFixExt2   byte = 0xd5
	tagFixExt4   byte = 0xd6
	tagFixExt8   byte = 0xd7
	tagFixExt16  byte = 0xd8
	tagStr8      byte = 0xd9
	tagStr16     byte = 0xda
	tagStr32     byte = 0xdb
	tagArray16   byte = 0xdc
	tagArray32   byte = 0xdd
	tagMap16     byte = 0xde
	tagMap32     byte = 0xdf

	tagNegFixIntMin byte = 0xe0
)

// ValueType is the externally visible MessagePack value taxonomy.
type ValueType int

const (
	TypeInvalid ValueType = iota
	TypeNil
	TypeBoolean
	TypeInteger
	TypeFloat
	TypeString
	TypeBinary
	TypeArray
	TypeMap
	TypeExtension
)

func (t ValueType) String() string {
	switch t {
	case TypeNil:
		return "NIL"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeString:
		return "STRING"
	case TypeBinary:
		return "BINARY"
	case TypeArray:
		return "ARRAY"
	case TypeMap:
		return "MAP"
	case TypeExtension:
		return "EXTENSION"
	default:
		return "INVALID"
	}
}

// isFixInt reports whether tag is a positive or negative fixint.
func isFixInt(tag byte) bool {
	return tag <= tagPosFixIntMax || tag >= tagNegFixIntMin
}

func isPosFixInt(tag byte) bool { return tag <= tagPosFixIntMax }
func isNegFixInt(tag byte) bool { return tag >= tagNegFixIntMin }

func isFixMap(tag byte) bool   { return tag >= tagFixMapMin && tag <= tagFixMapMax }
func isFixArray(tag byte) bool { return tag >= tagFixArrayMin && tag <= tagFixArrayMax }
func isFixStr(tag byte) bool   { return tag >= tagFixStrMin && tag <= tagFixStrMax }

func fixMapLen(tag byte) int   { return int(tag & 0x0f) }
func fixArrayLen(tag byte) int { return int(tag & 0x0f) }
func fixStrLen(tag byte) int   { return int(tag & 0x1f) }

// toValueType maps every tag byte to its logical MessagePack type. The
// reserved tag 0xc1 maps to TypeInvalid: any operation observing it must
// fail (spec §4.1, §6).
func toValueType(tag byte) ValueType {
	switch {
	case isFixInt(tag):
		return TypeInteger
	case isFixMap(tag):
		return TypeMap
	case isFixArray(tag):
		return TypeArray
	case isFixStr(tag):
		return TypeString
	}

	switch tag {
	case tagNil:
		return TypeNil
	case tagNeverUsed:
		return TypeInvalid
	case tagFalse, tagTrue:
		return TypeBoolean
	case tagBin8, tagBin16, tagBin32:
		return TypeBinary
	case tagExt8, tagExt16, tagExt32,
		tagFixExt1, tagFixExt2, tagFixExt4, tagFixExt8, tagFixExt16:
		return TypeExtension
	case tagFloat32, tagFloat64:
		return TypeFloat
	case tagUint8, tagUint16, tagUint32, tagUint64,
		tagInt8, tagInt16, tagInt32, tagInt64:
		return TypeInteger
	case tagStr8, tagStr16, tagStr32:
		return TypeString
	case tagArray16, tagArray32:
		return TypeArray
	case tagMap16, tagMap32:
		return TypeMap
	default:
		return TypeInvalid
	}
}

// ExtensionHeader describes the length and application type code of an
// extension payload (spec §3).
type ExtensionHeader struct {
	Length uint32
	Type   int8
}
