package catalog

import "github.com/gatanasi/gif-converter/internal/models"

// Reconcile compares the entries on screen with a fresh catalog. toAdd holds
// entries of next that are new or changed, in next's order; toRemove holds the
// ids of current that no longer appear in next.
func Reconcile(current, next []models.CatalogEntry) (toAdd []models.CatalogEntry, toRemove []string) {
	known := make(map[string]models.CatalogEntry, len(current))
	for _, entry := range current {
		known[entry.ID] = entry
	}
	seen := make(map[string]struct{}, len(next))
	for _, entry := range next {
		seen[entry.ID] = struct{}{}
		if prev, ok := known[entry.ID]; !ok || prev != entry {
			toAdd = append(toAdd, entry)
		}
	}
	for _, entry := range current {
		if _, ok := seen[entry.ID]; !ok {
			toRemove = append(toRemove, entry.ID)
		}
	}
	return toAdd, toRemove
}
