// Package testsupport provides in-memory fakes shared by package tests.
package testsupport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/gatanasi/gif-converter/internal/drive"
	"github.com/gatanasi/gif-converter/internal/models"
)

type fakeFile struct {
	item    models.SourceItem
	content []byte
	trashed bool
}

// FakeDrive is an in-memory drive.Client.
type FakeDrive struct {
	mu      sync.Mutex
	files   map[string]*fakeFile
	order   []string
	nextID  int
	uploads []models.DerivedArtifact

	ListErr     error
	FindErr     error
	GetErr      error
	DownloadErr error
	UploadErr   error

	FindCalls int
}

var _ drive.Client = (*FakeDrive)(nil)

// NewFakeDrive returns an empty FakeDrive.
func NewFakeDrive() *FakeDrive {
	return &FakeDrive{files: make(map[string]*fakeFile)}
}

// AddGif stores a GIF in folderID. Later additions are newer.
func (d *FakeDrive) AddGif(folderID, id, name string, content []byte) models.SourceItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	item := models.SourceItem{
		ID:          id,
		Name:        name,
		FolderID:    folderID,
		MimeType:    "image/gif",
		CreatedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(d.order)) * time.Minute),
		WebViewLink: "https://drive.google.com/file/d/" + id + "/view",
	}
	d.putLocked(&fakeFile{item: item, content: content})
	return item
}

// AddFile stores an arbitrary file and returns its id.
func (d *FakeDrive) AddFile(folderID, name, mimeType string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := fmt.Sprintf("file-%d", d.nextID)
	d.putLocked(&fakeFile{item: models.SourceItem{ID: id, Name: name, FolderID: folderID, MimeType: mimeType}})
	return id
}

// Trash marks a file as trashed so no query returns it.
func (d *FakeDrive) Trash(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.files[id]; ok {
		f.trashed = true
	}
}

// Uploads returns the files created through Upload, in order.
func (d *FakeDrive) Uploads() []models.DerivedArtifact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.DerivedArtifact(nil), d.uploads...)
}

// Content returns the stored bytes of a file.
func (d *FakeDrive) Content(id string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.files[id]; ok {
		return append([]byte(nil), f.content...)
	}
	return nil
}

func (d *FakeDrive) putLocked(f *fakeFile) {
	d.files[f.item.ID] = f
	d.order = append(d.order, f.item.ID)
}

// ListGifs implements drive.Client.
func (d *FakeDrive) ListGifs(_ context.Context, folderID string) ([]models.SourceItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ListErr != nil {
		return nil, d.ListErr
	}
	var items []models.SourceItem
	for _, id := range d.order {
		f := d.files[id]
		if f.trashed || f.item.FolderID != folderID || f.item.MimeType != "image/gif" {
			continue
		}
		items = append(items, f.item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedTime.After(items[j].CreatedTime)
	})
	return items, nil
}

// FindByName implements drive.Client.
func (d *FakeDrive) FindByName(_ context.Context, folderID, name string) ([]models.DerivedArtifact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FindCalls++
	if d.FindErr != nil {
		return nil, d.FindErr
	}
	var matches []models.DerivedArtifact
	for _, id := range d.order {
		f := d.files[id]
		if f.trashed || f.item.FolderID != folderID || f.item.Name != name {
			continue
		}
		matches = append(matches, models.DerivedArtifact{ID: f.item.ID, Name: f.item.Name, FolderID: folderID})
	}
	return matches, nil
}

// GetFile implements drive.Client.
func (d *FakeDrive) GetFile(_ context.Context, fileID string) (models.SourceItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.GetErr != nil {
		return models.SourceItem{}, d.GetErr
	}
	f, ok := d.files[fileID]
	if !ok {
		return models.SourceItem{}, fmt.Errorf("file %s: %w", fileID, drive.ErrNotFound)
	}
	return f.item, nil
}

// Download implements drive.Client.
func (d *FakeDrive) Download(_ context.Context, fileID string, dst io.Writer) (int64, error) {
	d.mu.Lock()
	if d.DownloadErr != nil {
		d.mu.Unlock()
		return 0, d.DownloadErr
	}
	f, ok := d.files[fileID]
	if !ok {
		d.mu.Unlock()
		return 0, fmt.Errorf("file %s: %w", fileID, drive.ErrNotFound)
	}
	content := append([]byte(nil), f.content...)
	d.mu.Unlock()
	return io.Copy(dst, bytes.NewReader(content))
}

// Upload implements drive.Client.
func (d *FakeDrive) Upload(_ context.Context, folderID, name, mimeType string, src io.Reader) (string, error) {
	content, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.UploadErr != nil {
		return "", d.UploadErr
	}
	d.nextID++
	id := fmt.Sprintf("mp4-%d", d.nextID)
	d.putLocked(&fakeFile{
		item:    models.SourceItem{ID: id, Name: name, FolderID: folderID, MimeType: mimeType},
		content: content,
	})
	d.uploads = append(d.uploads, models.DerivedArtifact{ID: id, Name: name, FolderID: folderID})
	return id, nil
}
