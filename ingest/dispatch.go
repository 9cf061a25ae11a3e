package ingest

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/lucasjlepore/traincycle/activity"
)

var gzipMagic = []byte{0x1F, 0x8B}

// Detect classifies a raw file and returns its format together with the
// decoded bytes (gzip-compressed exports are unwrapped transparently).
// The extension is trusted first; when it is absent or unrecognized the
// content is sniffed: binary FIT files carry a fixed-size header with a
// .FIT magic marker, GPX files are XML with a gpx root element. Pure
// classification, no side effects.
func Detect(name string, data []byte) (activity.Format, []byte, error) {
	if strings.HasSuffix(strings.ToLower(name), ".gz") || bytes.HasPrefix(data, gzipMagic) {
		decoded, err := gunzip(data)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", activity.ErrCorruptFile, name, err)
		}
		data = decoded
		name = strings.TrimSuffix(name, ".gz")
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".fit":
		return activity.FormatFIT, data, nil
	case ".gpx":
		return activity.FormatGPX, data, nil
	}

	if looksLikeFIT(data) {
		return activity.FormatFIT, data, nil
	}
	if looksLikeGPX(data) {
		return activity.FormatGPX, data, nil
	}
	return "", nil, fmt.Errorf("%w: %s", activity.ErrUnsupportedFormat, name)
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func looksLikeFIT(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	size := data[0]
	if size != 12 && size != 14 {
		return false
	}
	return string(data[8:12]) == ".FIT"
}

func looksLikeGPX(data []byte) bool {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local == "gpx"
		}
	}
}
