package audio

import (
	"bytes"
	"fmt"
)

// Format identifies a supported audio container.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatWebM Format = "webm"
	FormatOgg  Format = "ogg"
	FormatMP4  Format = "mp4"
)

// ErrUnknownFormat is returned when uploaded bytes match no supported container.
var ErrUnknownFormat = fmt.Errorf("unrecognized audio container")

var webmMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// DetectFormat sniffs the container from the first bytes of an upload.
// Browser MediaRecorder output differs per engine: Chromium and Firefox
// produce webm/ogg, Safari produces mp4 (m4a), and some capture paths
// hand over raw WAV.
func DetectFormat(data []byte) (Format, error) {
	if len(data) < 12 {
		return "", ErrUnknownFormat
	}

	switch {
	case bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV, nil
	case bytes.Equal(data[0:4], webmMagic):
		// EBML header, shared by webm and mkv; MediaRecorder emits webm
		return FormatWebM, nil
	case bytes.Equal(data[0:4], []byte("OggS")):
		return FormatOgg, nil
	case bytes.Equal(data[4:8], []byte("ftyp")):
		return FormatMP4, nil
	}

	return "", ErrUnknownFormat
}

// Ext returns the file extension used for storage object keys.
func (f Format) Ext() string {
	return string(f)
}

// ContentType returns the MIME type sent to the object store.
func (f Format) ContentType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatWebM:
		return "audio/webm"
	case FormatOgg:
		return "audio/ogg"
	case FormatMP4:
		return "audio/mp4"
	}
	return "application/octet-stream"
}
