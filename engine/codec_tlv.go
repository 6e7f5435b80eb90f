package engine

import (
	"encoding/binary"
	"math"
)

// TLV identifier "type of id" field, OMA-TS-LightweightM2M-V1_0_2-20180209-A
// 6.4.3. Only Resource records are produced or consumed by this engine;
// the other three are accepted on decode for completeness.
const (
	TLVObjectInstance  byte = 0
	TLVResourceInstance byte = 1
	TLVMultipleResource byte = 2
	TLVResource         byte = 3
)

// TLVRecord is one tag-length-value record of the OMA-TLV wire format from
// §4.1/§6: a 2-bit type, a 1- or 2-byte identifier, a 0/3/8/16/24-bit
// length, and the value bytes themselves.
type TLVRecord struct {
	Type  byte
	ID    uint16
	Value []byte
}

// Marshal encodes the record per §6's bit layout: bits 7-6 hold Type, bit
// 5 selects 1- vs 2-byte identifier width, bits 4-3 select the length
// width (0=inline 3 bits, 1=1 byte, 2=2 bytes, 3=3 bytes).
func (r *TLVRecord) Marshal() []byte {
	header := make([]byte, 1)
	header[0] = r.Type << 6

	if r.ID <= 0xFF {
		header = append(header, byte(r.ID))
	} else {
		header[0] |= 1 << 5
		header = append(header, byte(r.ID>>8), byte(r.ID&0xFF))
	}

	length := uint32(len(r.Value))
	switch {
	case length <= 0x07:
		header[0] |= byte(length)
	case length <= 0xFF:
		header[0] |= 1 << 3
		header = append(header, byte(length))
	case length <= 0xFFFF:
		header[0] |= 2 << 3
		header = append(header, byte(length>>8), byte(length))
	default:
		header[0] |= 3 << 3
		header = append(header, byte(length>>16), byte(length>>8), byte(length))
	}

	return append(header, r.Value...)
}

// UnmarshalTLVRecord decodes one record from the front of raw and returns
// the record plus the number of bytes consumed. A malformed or truncated
// header returns (nil, 0); callers must surface this as 4.06 NOT_ACCEPTABLE
// per §4.1.
func UnmarshalTLVRecord(raw []byte) (*TLVRecord, int) {
	if len(raw) < 1 {
		return nil, 0
	}
	r := &TLVRecord{Type: (raw[0] >> 6) & 0x03}
	pos := 1

	if (raw[0]>>5)&0x01 == 0 {
		if len(raw) < pos+1 {
			return nil, 0
		}
		r.ID = uint16(raw[pos])
		pos++
	} else {
		if len(raw) < pos+2 {
			return nil, 0
		}
		r.ID = binary.BigEndian.Uint16(raw[pos : pos+2])
		pos += 2
	}

	var length uint32
	switch (raw[0] >> 3) & 0x03 {
	case 0:
		length = uint32(raw[0] & 0x07)
	case 1:
		if len(raw) < pos+1 {
			return nil, 0
		}
		length = uint32(raw[pos])
		pos++
	case 2:
		if len(raw) < pos+2 {
			return nil, 0
		}
		length = uint32(binary.BigEndian.Uint16(raw[pos : pos+2]))
		pos += 2
	case 3:
		if len(raw) < pos+3 {
			return nil, 0
		}
		length = uint32(raw[pos])<<16 | uint32(raw[pos+1])<<8 | uint32(raw[pos+2])
		pos += 3
	}

	if len(raw) < pos+int(length) {
		return nil, 0
	}
	r.Value = make([]byte, length)
	copy(r.Value, raw[pos:pos+int(length)])
	pos += int(length)
	return r, pos
}

// EncodeTLVInt renders a signed integer into the narrowest of the 1/2/4/8
// byte big-endian forms the OMA-TLV integer representation allows.
func EncodeTLVInt(v int64) []byte {
	switch {
	case v >= -1<<7 && v < 1<<7:
		return []byte{byte(v)}
	case v >= -1<<15 && v < 1<<15:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(v))
		return buf
	case v >= -1<<31 && v < 1<<31:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(v))
		return buf
	default:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v))
		return buf
	}
}

// DecodeTLVInt inverts EncodeTLVInt, sign-extending from the record's
// actual width. A width outside {1,2,4,8} is a malformed record (0,false).
func DecodeTLVInt(buf []byte) (int64, bool) {
	switch len(buf) {
	case 1:
		return int64(int8(buf[0])), true
	case 2:
		return int64(int16(binary.BigEndian.Uint16(buf))), true
	case 4:
		return int64(int32(binary.BigEndian.Uint32(buf))), true
	case 8:
		return int64(binary.BigEndian.Uint64(buf)), true
	default:
		return 0, false
	}
}

// EncodeTLVBool renders a boolean as the single-byte 0/1 form used
// throughout this codebase for TLV booleans.
func EncodeTLVBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeTLVBool inverts EncodeTLVBool.
func DecodeTLVBool(buf []byte) (bool, bool) {
	if len(buf) != 1 {
		return false, false
	}
	return buf[0] != 0, true
}

// EncodeFloatFix packs a fixed-point integer (already scaled by 2^width)
// into the 4-byte big-endian two's-complement wire word described in
// §4.1: left-shifted by 32-width-1 bits (one sign bit) and rounded toward
// zero on overflow by clamping to the representable int32 range.
func EncodeFloatFix(fixed int64, width uint) []byte {
	shift := uint(31) - width
	shifted := fixed << shift
	if shifted > math.MaxInt32 {
		shifted = math.MaxInt32
	} else if shifted < math.MinInt32 {
		shifted = math.MinInt32
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(int32(shifted)))
	return buf
}

// DecodeFloatFix inverts EncodeFloatFix.
func DecodeFloatFix(buf []byte, width uint) (int64, bool) {
	if len(buf) != 4 {
		return 0, false
	}
	raw := int32(binary.BigEndian.Uint32(buf))
	shift := uint(31) - width
	return int64(raw) >> shift, true
}
