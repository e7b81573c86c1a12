package conversion

import (
	"strings"

	"github.com/gatanasi/gif-converter/internal/constants"
)

// DerivedName maps a source item name to the name of its MP4. A trailing
// ".gif" (any case) is replaced; any other name gets ".mp4" appended.
func DerivedName(sourceName string) string {
	ext := constants.SourceExtension
	if len(sourceName) >= len(ext) && strings.EqualFold(sourceName[len(sourceName)-len(ext):], ext) {
		return sourceName[:len(sourceName)-len(ext)] + constants.DerivedExtension
	}
	return sourceName + constants.DerivedExtension
}
