// Package catalog derives the readiness view of the source folder: which GIFs
// already have an MP4 sibling and which are still waiting for one.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/conversion"
	"github.com/gatanasi/gif-converter/internal/drive"
	"github.com/gatanasi/gif-converter/internal/models"
)

// DefaultConcurrency bounds the existence checks issued in parallel per scan.
const DefaultConcurrency = 8

// Item is one source GIF and the outcome of its existence check.
type Item struct {
	Source models.SourceItem
	MP4ID  string
	Ready  bool
}

// Summary counts the items of one scan.
type Summary struct {
	Total      int
	Ready      int
	Processing int
}

// Catalog lists source items and resolves their derived artifacts.
type Catalog struct {
	drive       drive.Client
	checker     *conversion.Checker
	concurrency int
	logger      *zap.Logger
}

// New creates a Catalog.
func New(client drive.Client, checker *conversion.Checker, logger *zap.Logger) *Catalog {
	return &Catalog{
		drive:       client,
		checker:     checker,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
}

// Scan lists the GIFs of sourceFolderID, newest first, and checks each one
// against targetFolderID.
func (c *Catalog) Scan(ctx context.Context, sourceFolderID, targetFolderID string) ([]Item, error) {
	if sourceFolderID == "" {
		return nil, conversion.Wrap(conversion.ErrConfiguration, "", "GIF folder ID not configured", nil)
	}
	if targetFolderID == "" {
		return nil, conversion.Wrap(conversion.ErrConfiguration, "", "MP4 folder ID not configured", nil)
	}

	sources, err := c.drive.ListGifs(ctx, sourceFolderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list GIFs: %w", err)
	}

	items := make([]Item, len(sources))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	for i, source := range sources {
		items[i].Source = source
		wg.Add(1)
		sem <- struct{}{}
		go func(item *Item) {
			defer wg.Done()
			defer func() { <-sem }()
			item.MP4ID, item.Ready = c.checker.Exists(ctx, item.Source.Name, targetFolderID)
		}(&items[i])
	}
	wg.Wait()

	c.logger.Debug("catalog scanned", zap.Int("total", len(items)))
	return items, nil
}

// List returns the entries whose MP4 already exists.
func (c *Catalog) List(ctx context.Context, sourceFolderID, targetFolderID string) ([]models.CatalogEntry, error) {
	items, err := c.Scan(ctx, sourceFolderID, targetFolderID)
	if err != nil {
		return nil, err
	}
	return Entries(items, true), nil
}

// Pending returns the entries still waiting for an MP4.
func (c *Catalog) Pending(ctx context.Context, sourceFolderID, targetFolderID string) ([]models.CatalogEntry, error) {
	items, err := c.Scan(ctx, sourceFolderID, targetFolderID)
	if err != nil {
		return nil, err
	}
	return Entries(items, false), nil
}

// Summary counts ready and processing items.
func (c *Catalog) Summary(ctx context.Context, sourceFolderID, targetFolderID string) (Summary, error) {
	items, err := c.Scan(ctx, sourceFolderID, targetFolderID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(items), nil
}

// Summarize counts the items of a scan.
func Summarize(items []Item) Summary {
	summary := Summary{Total: len(items)}
	for _, item := range items {
		if item.Ready {
			summary.Ready++
		}
	}
	summary.Processing = summary.Total - summary.Ready
	return summary
}

// Entries converts the items whose readiness matches ready into API entries,
// keeping their order.
func Entries(items []Item, ready bool) []models.CatalogEntry {
	entries := make([]models.CatalogEntry, 0, len(items))
	for _, item := range items {
		if item.Ready != ready {
			continue
		}
		entries = append(entries, toEntry(item))
	}
	return entries
}

func toEntry(item Item) models.CatalogEntry {
	entry := models.CatalogEntry{
		ID:           item.Source.ID,
		Name:         item.Source.Name,
		DisplayURL:   drive.DisplayURL(item.Source.ID),
		WebViewLink:  item.Source.WebViewLink,
		MP4Available: item.Ready,
	}
	if item.Ready {
		entry.MP4ID = item.MP4ID
		entry.MP4URL = drive.DownloadURL(item.MP4ID)
	}
	return entry
}
