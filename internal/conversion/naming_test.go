package conversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivedName(t *testing.T) {
	cases := map[string]string{
		"cat.gif":          "cat.mp4",
		"Party.GIF":        "Party.mp4",
		"dance.Gif":        "dance.mp4",
		"archive.gif.gif":  "archive.gif.mp4",
		"noext":            "noext.mp4",
		"photo.png":        "photo.png.mp4",
		".gif":             ".mp4",
		"":                 ".mp4",
		"spaces in it.gif": "spaces in it.mp4",
	}
	for in, want := range cases {
		assert.Equal(t, want, DerivedName(in), "DerivedName(%q)", in)
	}
}
