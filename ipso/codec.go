package ipso

import (
	"fmt"

	"github.com/nfi/contiki-lwm2m/engine"
)

func errNoFreeSlot(objectID uint16) error {
	return fmt.Errorf("ipso: object %d has no free instance slots", objectID)
}

func encodeBool(f engine.Format, resourceID uint16, v bool) []byte {
	if f == engine.FormatTLV {
		rec := engine.TLVRecord{Type: engine.TLVResource, ID: resourceID, Value: engine.EncodeTLVBool(v)}
		return rec.Marshal()
	}
	return engine.WriteTextBool(v)
}

func decodeBool(f engine.Format, in []byte) (bool, bool) {
	if f == engine.FormatTLV {
		rec, n := engine.UnmarshalTLVRecord(in)
		if rec == nil || n == 0 {
			return false, false
		}
		return engine.DecodeTLVBool(rec.Value)
	}
	n, v := engine.ReadTextBool(in)
	if n == 0 {
		return false, false
	}
	return v, true
}

func encodeInt(f engine.Format, resourceID uint16, v int64) []byte {
	if f == engine.FormatTLV {
		rec := engine.TLVRecord{Type: engine.TLVResource, ID: resourceID, Value: engine.EncodeTLVInt(v)}
		return rec.Marshal()
	}
	return engine.WriteTextInt(v)
}

func decodeInt(f engine.Format, in []byte) (int64, bool) {
	if f == engine.FormatTLV {
		rec, n := engine.UnmarshalTLVRecord(in)
		if rec == nil || n == 0 {
			return 0, false
		}
		return engine.DecodeTLVInt(rec.Value)
	}
	n, v := engine.ReadTextInt(in)
	if n == 0 {
		return 0, false
	}
	return v, true
}

func encodeString(f engine.Format, resourceID uint16, v string) []byte {
	if f == engine.FormatTLV {
		rec := engine.TLVRecord{Type: engine.TLVResource, ID: resourceID, Value: []byte(v)}
		return rec.Marshal()
	}
	return engine.WriteTextString(v)
}

func decodeString(f engine.Format, in []byte) (string, bool) {
	if f == engine.FormatTLV {
		rec, n := engine.UnmarshalTLVRecord(in)
		if rec == nil || n == 0 {
			return "", false
		}
		_, s := engine.ReadTextString(rec.Value)
		return s, true
	}
	_, s := engine.ReadTextString(in)
	return s, true
}
