package conversion

import (
	"context"

	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/drive"
	"github.com/gatanasi/gif-converter/internal/logging"
)

// Checker answers whether a source item already has its MP4 in the target folder.
type Checker struct {
	drive  drive.Client
	logger *zap.Logger
}

// NewChecker creates a Checker backed by the given Drive client.
func NewChecker(client drive.Client, logger *zap.Logger) *Checker {
	return &Checker{drive: client, logger: logger}
}

// Exists returns the id of the first non-trashed file in targetFolderID named
// DerivedName(sourceName). Query failures are logged and reported as "not
// found", which at worst causes a redundant conversion.
func (c *Checker) Exists(ctx context.Context, sourceName, targetFolderID string) (string, bool) {
	derivedName := DerivedName(sourceName)

	matches, err := c.drive.FindByName(ctx, targetFolderID, derivedName)
	if err != nil {
		c.logger.Warn("existence check failed, treating as missing",
			zap.String(logging.FieldGifName, sourceName),
			zap.String("mp4_name", derivedName),
			zap.Error(err))
		return "", false
	}
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].ID, true
}
