// Package drive provides Google Drive API integration
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/gatanasi/gif-converter/internal/constants"
	"github.com/gatanasi/gif-converter/internal/models"
)

var (
	// ErrNotFound is returned when Drive reports a missing file.
	ErrNotFound = errors.New("drive file not found")

	// ErrNoCredentials is returned when no service account credentials are configured.
	ErrNoCredentials = errors.New("no Google service account credentials configured")
)

// Client is the subset of Drive operations the converter needs.
type Client interface {
	// ListGifs returns the non-trashed GIFs of a folder, newest first.
	ListGifs(ctx context.Context, folderID string) ([]models.SourceItem, error)
	// FindByName returns the non-trashed files of a folder whose name is exactly name.
	FindByName(ctx context.Context, folderID, name string) ([]models.DerivedArtifact, error)
	// GetFile returns the metadata of a single file.
	GetFile(ctx context.Context, fileID string) (models.SourceItem, error)
	// Download streams the content of a file into dst.
	Download(ctx context.Context, fileID string, dst io.Writer) (int64, error)
	// Upload creates a new file in folderID and returns its id.
	Upload(ctx context.Context, folderID, name, mimeType string, src io.Reader) (string, error)
}

const (
	listFields = "nextPageToken, files(id, name, mimeType, createdTime, webViewLink, parents)"
	findFields = "nextPageToken, files(id, name, parents)"
	getFields  = "id, name, mimeType, createdTime, webViewLink, parents"
)

// Service implements Client on top of the Drive v3 API.
type Service struct {
	files *gdrive.FilesService
}

// NewService creates a Service with explicit client options.
func NewService(ctx context.Context, opts ...option.ClientOption) (*Service, error) {
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Service{files: svc.Files}, nil
}

// NewFromConfig authenticates with the configured service account. The key
// JSON takes precedence over the key file.
func NewFromConfig(ctx context.Context, conf models.Config) (*Service, error) {
	var credentials []byte
	switch {
	case strings.TrimSpace(conf.ServiceAccountKey) != "":
		credentials = []byte(conf.ServiceAccountKey)
	case conf.ServiceAccountFile != "":
		data, err := os.ReadFile(conf.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account file %s: %w", conf.ServiceAccountFile, err)
		}
		credentials = data
	default:
		return nil, ErrNoCredentials
	}

	return NewService(ctx,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(gdrive.DriveScope),
	)
}

// ListGifs lists GIFs in a folder, following every result page.
func (s *Service) ListGifs(ctx context.Context, folderID string) ([]models.SourceItem, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DriveAPIRequestTimeout)
	defer cancel()

	items := make([]models.SourceItem, 0)
	call := s.files.List().
		Q(SourceQuery(folderID)).
		Fields(listFields).
		OrderBy("createdTime desc").
		PageSize(constants.DriveListPageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	err := call.Pages(ctx, func(page *gdrive.FileList) error {
		for _, f := range page.Files {
			items = append(items, toSourceItem(f, folderID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list GIFs in folder %s: %w", folderID, mapError(err))
	}
	return items, nil
}

// FindByName looks up files in a folder by exact name.
func (s *Service) FindByName(ctx context.Context, folderID, name string) ([]models.DerivedArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DriveAPIRequestTimeout)
	defer cancel()

	matches := make([]models.DerivedArtifact, 0, 1)
	call := s.files.List().
		Q(NameQuery(folderID, name)).
		Fields(findFields).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	err := call.Pages(ctx, func(page *gdrive.FileList) error {
		for _, f := range page.Files {
			matches = append(matches, models.DerivedArtifact{ID: f.Id, Name: f.Name, FolderID: folderID})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search folder %s for %q: %w", folderID, name, mapError(err))
	}
	return matches, nil
}

// GetFile fetches file metadata.
func (s *Service) GetFile(ctx context.Context, fileID string) (models.SourceItem, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DriveAPIRequestTimeout)
	defer cancel()

	f, err := s.files.Get(fileID).Fields(getFields).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return models.SourceItem{}, fmt.Errorf("failed to get file %s: %w", fileID, mapError(err))
	}
	folderID := ""
	if len(f.Parents) > 0 {
		folderID = f.Parents[0]
	}
	return toSourceItem(f, folderID), nil
}

// Download streams file content into dst and returns the number of bytes written.
func (s *Service) Download(ctx context.Context, fileID string, dst io.Writer) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DriveAPITransferTimeout)
	defer cancel()

	resp, err := s.files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return 0, fmt.Errorf("download request failed for %s: %w", fileID, mapError(err))
	}
	defer resp.Body.Close()

	written, err := io.Copy(dst, resp.Body)
	if err != nil {
		return written, fmt.Errorf("failed to read content of %s: %w", fileID, err)
	}
	return written, nil
}

// Upload creates a file with the given content in folderID.
func (s *Service) Upload(ctx context.Context, folderID, name, mimeType string, src io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DriveAPITransferTimeout)
	defer cancel()

	metadata := &gdrive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{folderID},
	}
	f, err := s.files.Create(metadata).
		Media(src, googleapi.ContentType(mimeType)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to folder %s: %w", name, folderID, mapError(err))
	}
	return f.Id, nil
}

// SourceQuery is the Drive search expression for GIFs in a folder.
func SourceQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and mimeType contains '%s' and trashed=false",
		escapeQueryValue(folderID), constants.SourceMimeType)
}

// NameQuery is the Drive search expression for an exact file name in a folder.
func NameQuery(folderID, name string) string {
	return fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		escapeQueryValue(folderID), escapeQueryValue(name))
}

// DisplayURL is the public image URL used to render a GIF.
func DisplayURL(fileID string) string {
	return fmt.Sprintf(constants.DisplayURLFormat, fileID)
}

// DownloadURL is the public download URL of a derived artifact.
func DownloadURL(fileID string) string {
	return fmt.Sprintf(constants.DownloadURLFormat, fileID)
}

func escapeQueryValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

func toSourceItem(f *gdrive.File, folderID string) models.SourceItem {
	item := models.SourceItem{
		ID:          f.Id,
		Name:        f.Name,
		FolderID:    folderID,
		MimeType:    f.MimeType,
		WebViewLink: f.WebViewLink,
	}
	if f.CreatedTime != "" {
		if created, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			item.CreatedTime = created
		}
	}
	return item
}

// mapError tags Drive 404 responses with ErrNotFound while keeping the original error.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
