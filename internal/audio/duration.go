// Package audio reads metadata from uploaded voice notes.
package audio

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// Extensions accepted for voice note uploads.
var Extensions = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".ogg": true, ".webm": true, ".flac": true,
}

// Allowed reports whether filename has a supported audio extension.
func Allowed(filename string) bool {
	return Extensions[strings.ToLower(filepath.Ext(filename))]
}

// Duration returns the length in seconds of a WAV stream. ok is false when r
// is not a readable WAV file; compressed formats are not decoded.
func Duration(r io.ReadSeeker) (seconds float64, ok bool) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return 0, false
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, false
	}
	return dur.Seconds(), true
}
