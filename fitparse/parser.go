// Package fitparse decodes binary FIT activity files into the normalized
// activity model. FIT is a self-describing message stream: definition
// messages declare the field layout for a local message type, data
// messages carry the readings. Each parse owns its own definition table;
// nothing is shared across files.
package fitparse

import (
	"encoding/binary"
	"fmt"

	"github.com/tormoder/fit/dyncrc16"

	"github.com/lucasjlepore/traincycle/activity"
)

const (
	compressedHeaderMask       = 0x80
	compressedLocalMesgNumMask = 0x60
	compressedTimeMask         = 0x1F
	mesgDefinitionMask         = 0x40
	devDataMask                = 0x20
	localMesgNumMask           = 0x0F

	headerSizeNoCRC = 12
	headerSizeCRC   = 14
)

type fieldDef struct {
	num  uint8
	size uint8
	base baseType
}

type devFieldDef struct {
	size uint8
}

type msgDef struct {
	global    uint16
	arch      binary.ByteOrder
	fields    []fieldDef
	devFields []devFieldDef
}

type decoder struct {
	data []byte
	pos  int

	// Definition table keyed by local message type; a data message that
	// arrives before its definition is a corrupt file.
	defs map[uint8]msgDef

	lastTimestamp  uint32
	lastTimeOffset int32

	sport   string
	samples []activity.Sample
}

// Parse decodes a binary FIT byte stream into an Activity. Unknown global
// messages and unknown fields are skipped by their declared size; a bad
// header, a failed CRC, or a data message referencing an undeclared
// definition fails with activity.ErrCorruptFile.
func Parse(data []byte) (*activity.Activity, error) {
	if len(data) < headerSizeNoCRC+2 {
		return nil, fmt.Errorf("%w: fit file too short (%d bytes)", activity.ErrCorruptFile, len(data))
	}

	dataStart, dataSize, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	required := int(dataStart) + int(dataSize) + 2
	if len(data) < required {
		return nil, fmt.Errorf("%w: fit file truncated, have %d bytes need %d", activity.ErrCorruptFile, len(data), required)
	}

	stored := binary.LittleEndian.Uint16(data[dataStart+dataSize : dataStart+dataSize+2])
	computed := dyncrc16.Checksum(data[:int(dataStart)+int(dataSize)])
	if stored != computed {
		return nil, fmt.Errorf("%w: fit file crc mismatch (stored 0x%04X computed 0x%04X)", activity.ErrCorruptFile, stored, computed)
	}

	d := &decoder{
		data: data[dataStart : dataStart+dataSize],
		defs: make(map[uint8]msgDef),
	}
	if err := d.parseRecords(); err != nil {
		return nil, err
	}

	return activity.New(activity.FormatFIT, d.sport, d.samples, activity.SourceDigest(data))
}

func parseHeader(data []byte) (uint32, uint32, error) {
	size := data[0]
	if size != headerSizeNoCRC && size != headerSizeCRC {
		return 0, 0, fmt.Errorf("%w: invalid fit header size %d", activity.ErrCorruptFile, size)
	}
	if len(data) < int(size) {
		return 0, 0, fmt.Errorf("%w: truncated fit header", activity.ErrCorruptFile)
	}
	if string(data[8:12]) != ".FIT" {
		return 0, 0, fmt.Errorf("%w: missing .FIT magic in header", activity.ErrCorruptFile)
	}
	if size == headerSizeCRC {
		stored := binary.LittleEndian.Uint16(data[12:14])
		// A zero header CRC means the writer skipped it.
		if stored != 0 && stored != dyncrc16.Checksum(data[:12]) {
			return 0, 0, fmt.Errorf("%w: fit header crc mismatch", activity.ErrCorruptFile)
		}
	}
	return uint32(size), binary.LittleEndian.Uint32(data[4:8]), nil
}

func (d *decoder) parseRecords() error {
	recordIndex := 0
	for d.pos < len(d.data) {
		recordIndex++
		headerByte := d.data[d.pos]
		d.pos++

		switch {
		case headerByte&compressedHeaderMask == compressedHeaderMask:
			local := (headerByte & compressedLocalMesgNumMask) >> 5
			def, ok := d.defs[local]
			if !ok {
				return fmt.Errorf("%w: data message local=%d before definition (record %d)", activity.ErrCorruptFile, local, recordIndex)
			}
			if err := d.parseData(def, headerByte, true); err != nil {
				return err
			}
		case headerByte&mesgDefinitionMask == mesgDefinitionMask:
			if err := d.parseDefinition(headerByte); err != nil {
				return err
			}
		default:
			local := headerByte & localMesgNumMask
			def, ok := d.defs[local]
			if !ok {
				return fmt.Errorf("%w: data message local=%d before definition (record %d)", activity.ErrCorruptFile, local, recordIndex)
			}
			if err := d.parseData(def, headerByte, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) read(n int) ([]byte, error) {
	if d.pos+n > len(d.data) {
		return nil, fmt.Errorf("%w: fit record truncated at byte %d", activity.ErrCorruptFile, d.pos)
	}
	out := d.data[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

func (d *decoder) parseDefinition(headerByte uint8) error {
	local := headerByte & localMesgNumMask

	fixed, err := d.read(5) // reserved, arch, global (2), field count
	if err != nil {
		return err
	}

	var arch binary.ByteOrder
	switch fixed[1] {
	case 0:
		arch = binary.LittleEndian
	case 1:
		arch = binary.BigEndian
	default:
		return fmt.Errorf("%w: invalid architecture byte %d", activity.ErrCorruptFile, fixed[1])
	}

	def := msgDef{
		global: arch.Uint16(fixed[2:4]),
		arch:   arch,
		fields: make([]fieldDef, 0, fixed[4]),
	}
	for i := 0; i < int(fixed[4]); i++ {
		raw, err := d.read(3)
		if err != nil {
			return err
		}
		def.fields = append(def.fields, fieldDef{
			num:  raw[0],
			size: raw[1],
			base: canonicalBaseType(raw[2]),
		})
	}

	if headerByte&devDataMask == devDataMask {
		countRaw, err := d.read(1)
		if err != nil {
			return err
		}
		def.devFields = make([]devFieldDef, 0, countRaw[0])
		for i := 0; i < int(countRaw[0]); i++ {
			raw, err := d.read(3)
			if err != nil {
				return err
			}
			def.devFields = append(def.devFields, devFieldDef{size: raw[1]})
		}
	}

	d.defs[local] = def
	return nil
}

func (d *decoder) parseData(def msgDef, headerByte uint8, compressed bool) error {
	var sample activity.Sample
	var haveTimestamp bool

	if compressed && d.lastTimestamp != 0 {
		offset := int32(headerByte & compressedTimeMask)
		d.lastTimestamp += uint32((offset - d.lastTimeOffset) & int32(compressedTimeMask))
		d.lastTimeOffset = offset
		sample.Time = fitEpochTime(d.lastTimestamp)
		haveTimestamp = true
	}

	for _, f := range def.fields {
		raw, err := d.read(int(f.size))
		if err != nil {
			return err
		}

		if f.num == fieldTimestamp {
			if ts, ok := timestampValue(raw, f.base, def.arch); ok {
				d.lastTimestamp = ts
				d.lastTimeOffset = int32(ts & compressedTimeMask)
				if def.global == mesgRecord {
					sample.Time = fitEpochTime(ts)
					haveTimestamp = true
				}
			}
			continue
		}

		switch def.global {
		case mesgRecord:
			applyRecordField(&sample, f, raw, def.arch)
		case mesgSport, mesgSession:
			d.applySportField(def.global, f, raw, def.arch)
		}
	}

	// Developer fields are opaque vendor payloads; consume and drop them.
	for _, df := range def.devFields {
		if _, err := d.read(int(df.size)); err != nil {
			return err
		}
	}

	// A record message without a resolvable timestamp cannot be placed on
	// the activity timeline.
	if def.global == mesgRecord && haveTimestamp {
		d.samples = append(d.samples, sample)
	}
	return nil
}
