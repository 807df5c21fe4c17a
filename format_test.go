//go:build test

package mxpack

import "testing"

func TestFixRangePredicates(t *testing.T) {
	cases := []struct {
		tag      byte
		fixInt   bool
		fixMap   bool
		fixArray bool
		fixStr   bool
	}{
		{0x00, true, false, false, false},
		{0x7f, true, false, false, false},
		{0xe0, true, false, false, false},
		{0xff, true, false, false, false},
		{0x80, false, true, false, false},
		{0x8f, false, true, false, false},
		{0x90, false, false, true, false},
		{0x9f, false, false, true, false},
		{0xa0, false, false, false, true},
		{0xbf, false, false, false, true},
		{0xc0, false, false, false, false},
	}
	for _, c := range cases {
		if got := isFixInt(c.tag); got != c.fixInt {
			t.Errorf("isFixInt(0x%02x) = %v, want %v", c.tag, got, c.fixInt)
		}
		if got := isFixMap(c.tag); got != c.fixMap {
			t.Errorf("isFixMap(0x%02x) = %v, want %v", c.tag, got, c.fixMap)
		}
		if got := isFixArray(c.tag); got != c.fixArray {
			t.Errorf("isFixArray(0x%02x) = %v, want %v", c.tag, got, c.fixArray)
		}
		if got := isFixStr(c.tag); got != c.fixStr {
			t.Errorf("isFixStr(0x%02x) = %v, want %v", c.tag, got, c.fixStr)
		}
	}
}

func TestLengthExtractors(t *testing.T) {
	if got := fixMapLen(0x8a); got != 10 {
		t.Errorf("fixMapLen(0x8a) = %d, want 10", got)
	}
	if got := fixArrayLen(0x9f); got != 15 {
		t.Errorf("fixArrayLen(0x9f) = %d, want 15", got)
	}
	if got := fixStrLen(0xbf); got != 31 {
		t.Errorf("fixStrLen(0xbf) = %d, want 31", got)
	}
}

func TestToValueType(t *testing.T) {
	cases := map[byte]ValueType{
		0x00:         TypeInteger,
		0xe0:         TypeInteger,
		tagNil:       TypeNil,
		tagNeverUsed: TypeInvalid,
		tagFalse:     TypeBoolean,
		tagTrue:      TypeBoolean,
		tagBin8:      TypeBinary,
		tagFloat32:   TypeFloat,
		tagFloat64:   TypeFloat,
		tagUint64:    TypeInteger,
		tagInt64:     TypeInteger,
		tagStr32:     TypeString,
		tagArray32:   TypeArray,
		tagMap32:     TypeMap,
		tagFixExt1:   TypeExtension,
		tagExt32:     TypeExtension,
		0x80:         TypeMap,
		0x90:         TypeArray,
		0xa0:         TypeString,
	}
	for tag, want := range cases {
		if got := toValueType(tag); got != want {
			t.Errorf("toValueType(0x%02x) = %v, want %v", tag, got, want)
		}
	}
}
