package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTrackMetaFallsBackToFilename(t *testing.T) {
	// Not a real audio file: extraction degrades to the filename title.
	meta := extractTrackMeta([]byte("definitely not audio"), "demos/Sunset Drive (final).wav")

	assert.Equal(t, "Sunset Drive (final)", meta.Title)
	assert.Empty(t, meta.Artist)
	assert.Zero(t, meta.BPM)
	assert.Nil(t, meta.Artwork)
}

func TestRawFrameString(t *testing.T) {
	raw := map[string]interface{}{
		"TKEY": " Am ",
		"TBPM": "128",
		"bad":  42,
	}

	assert.Equal(t, "Am", rawFrameString(raw, "TKEY"))
	assert.Equal(t, "Am", rawFrameString(raw, "INITIALKEY", "TKEY"), "falls through missing keys")
	assert.Empty(t, rawFrameString(raw, "TSRC"))
	assert.Empty(t, rawFrameString(raw, "bad"), "non-string values are skipped")
}

func TestRawFrameInt(t *testing.T) {
	raw := map[string]interface{}{
		"TBPM": "174",
		"tmpo": 120,
		"junk": "not a number",
	}

	assert.Equal(t, 174, rawFrameInt(raw, "TBPM"))
	assert.Equal(t, 120, rawFrameInt(raw, "tmpo"))
	assert.Equal(t, 0, rawFrameInt(raw, "junk"))
	assert.Equal(t, 0, rawFrameInt(raw, "missing"))
	assert.Equal(t, 174, rawFrameInt(raw, "missing", "TBPM"))
}

func TestAudioMimeTypeFromExt(t *testing.T) {
	assert.Equal(t, "audio/flac", audioMimeTypeFromExt(".flac"))
	assert.Equal(t, "audio/mpeg", audioMimeTypeFromExt(".MP3"))
	assert.Equal(t, "audio/ogg", audioMimeTypeFromExt(".oga"))
	assert.Equal(t, "application/octet-stream", audioMimeTypeFromExt(".xyz"))
}
