package fitparse

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/lucasjlepore/traincycle/activity"
)

// Global message numbers and record-message field numbers from the FIT
// profile. Only the messages the pipeline consumes are named; everything
// else is skipped by declared size.
const (
	mesgSport   uint16 = 12
	mesgSession uint16 = 18
	mesgRecord  uint16 = 20

	fieldTimestamp uint8 = 253

	recPositionLat      uint8 = 0
	recPositionLong     uint8 = 1
	recAltitude         uint8 = 2
	recHeartRate        uint8 = 3
	recDistance         uint8 = 5
	recSpeed            uint8 = 6
	recEnhancedSpeed    uint8 = 73
	recEnhancedAltitude uint8 = 78

	sportFieldSport uint8 = 0
	sportFieldName  uint8 = 3
	sessionSport    uint8 = 5
)

const semicircleToDegrees = 180.0 / 2147483648.0

var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

func fitEpochTime(ts uint32) time.Time {
	return fitEpoch.Add(time.Duration(ts) * time.Second)
}

type baseType uint8

const (
	baseEnum    baseType = 0x00
	baseSint8   baseType = 0x01
	baseUint8   baseType = 0x02
	baseSint16  baseType = 0x83
	baseUint16  baseType = 0x84
	baseSint32  baseType = 0x85
	baseUint32  baseType = 0x86
	baseString  baseType = 0x07
	baseFloat32 baseType = 0x88
	baseFloat64 baseType = 0x89
	baseUint8z  baseType = 0x0A
	baseUint16z baseType = 0x8B
	baseUint32z baseType = 0x8C
	baseByte    baseType = 0x0D
	baseSint64  baseType = 0x8E
	baseUint64  baseType = 0x8F
	baseUint64z baseType = 0x90
)

// canonicalBaseType normalizes a raw base-type byte (which may omit the
// endian-capable high bit) to its canonical constant.
func canonicalBaseType(b byte) baseType {
	switch b & 0x1F {
	case 0x03:
		return baseSint16
	case 0x04:
		return baseUint16
	case 0x05:
		return baseSint32
	case 0x06:
		return baseUint32
	case 0x08:
		return baseFloat32
	case 0x09:
		return baseFloat64
	case 0x0B:
		return baseUint16z
	case 0x0C:
		return baseUint32z
	case 0x0E:
		return baseSint64
	case 0x0F:
		return baseUint64
	case 0x10:
		return baseUint64z
	default:
		return baseType(b & 0x1F)
	}
}

// numericValue decodes a single scalar of the given base type, reporting
// false when the bytes hold the type's invalid sentinel or the type is not
// numeric. Array-valued fields decode their first element.
func numericValue(raw []byte, bt baseType, arch binary.ByteOrder) (float64, bool) {
	size := baseSize(bt)
	if size == 0 || len(raw) < size {
		return 0, false
	}
	raw = raw[:size]

	switch bt {
	case baseEnum, baseUint8:
		v := raw[0]
		return float64(v), v != 0xFF
	case baseSint8:
		v := int8(raw[0])
		return float64(v), v != 0x7F
	case baseUint8z:
		v := raw[0]
		return float64(v), v != 0x00
	case baseSint16:
		v := int16(arch.Uint16(raw))
		return float64(v), v != 0x7FFF
	case baseUint16:
		v := arch.Uint16(raw)
		return float64(v), v != 0xFFFF
	case baseUint16z:
		v := arch.Uint16(raw)
		return float64(v), v != 0x0000
	case baseSint32:
		v := int32(arch.Uint32(raw))
		return float64(v), v != 0x7FFFFFFF
	case baseUint32:
		v := arch.Uint32(raw)
		return float64(v), v != 0xFFFFFFFF
	case baseUint32z:
		v := arch.Uint32(raw)
		return float64(v), v != 0x00000000
	case baseFloat32:
		bits := arch.Uint32(raw)
		return float64(math.Float32frombits(bits)), bits != 0xFFFFFFFF
	case baseFloat64:
		bits := arch.Uint64(raw)
		return math.Float64frombits(bits), bits != 0xFFFFFFFFFFFFFFFF
	case baseSint64:
		v := int64(arch.Uint64(raw))
		return float64(v), v != 0x7FFFFFFFFFFFFFFF
	case baseUint64:
		v := arch.Uint64(raw)
		return float64(v), v != 0xFFFFFFFFFFFFFFFF
	case baseUint64z:
		v := arch.Uint64(raw)
		return float64(v), v != 0x0000000000000000
	default:
		return 0, false
	}
}

func baseSize(bt baseType) int {
	switch bt {
	case baseEnum, baseSint8, baseUint8, baseUint8z, baseString, baseByte:
		return 1
	case baseSint16, baseUint16, baseUint16z:
		return 2
	case baseSint32, baseUint32, baseUint32z, baseFloat32:
		return 4
	case baseSint64, baseUint64, baseUint64z, baseFloat64:
		return 8
	default:
		return 0
	}
}

func timestampValue(raw []byte, bt baseType, arch binary.ByteOrder) (uint32, bool) {
	v, ok := numericValue(raw, bt, arch)
	if !ok || v < 0 {
		return 0, false
	}
	return uint32(v), true
}

// applyRecordField converts one record-message field from its raw integer
// encoding to physical units: semicircles to degrees, centi-meters to
// meters, milli-m/s to m/s, scaled/offset altitude to meters. Unknown
// field numbers are dropped, never treated as errors.
func applyRecordField(s *activity.Sample, f fieldDef, raw []byte, arch binary.ByteOrder) {
	v, ok := numericValue(raw, f.base, arch)
	if !ok {
		return
	}

	switch f.num {
	case recPositionLat:
		s.Lat = ptr(v * semicircleToDegrees)
	case recPositionLong:
		s.Lon = ptr(v * semicircleToDegrees)
	case recAltitude:
		if s.Elevation == nil {
			s.Elevation = ptr(v/5.0 - 500.0)
		}
	case recEnhancedAltitude:
		s.Elevation = ptr(v/5.0 - 500.0)
	case recHeartRate:
		hr := int(v)
		s.HeartRate = &hr
	case recDistance:
		s.Distance = v / 100.0
	case recSpeed:
		if s.Speed == nil {
			s.Speed = ptr(v / 1000.0)
		}
	case recEnhancedSpeed:
		s.Speed = ptr(v / 1000.0)
	}
}

// applySportField captures the activity sport from sport or session
// messages; an explicit sport name wins over the numeric sport code.
func (d *decoder) applySportField(global uint16, f fieldDef, raw []byte, arch binary.ByteOrder) {
	if global == mesgSport && f.num == sportFieldName {
		if name := nullTerminated(raw); name != "" {
			d.sport = name
		}
		return
	}
	if d.sport != "" {
		return
	}
	if (global == mesgSport && f.num == sportFieldSport) || (global == mesgSession && f.num == sessionSport) {
		if v, ok := numericValue(raw, f.base, arch); ok {
			d.sport = sportName(uint8(v))
		}
	}
}

func sportName(code uint8) string {
	switch code {
	case 0:
		return "generic"
	case 1:
		return "running"
	case 2:
		return "cycling"
	case 5:
		return "swimming"
	case 11:
		return "walking"
	case 17:
		return "hiking"
	default:
		return "unknown"
	}
}

func nullTerminated(raw []byte) string {
	for i := range raw {
		if raw[i] == 0x00 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func ptr(v float64) *float64 {
	out := v
	return &out
}
