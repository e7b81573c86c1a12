package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/catalog"
	"github.com/gatanasi/gif-converter/internal/conversion"
	"github.com/gatanasi/gif-converter/internal/drive"
	"github.com/gatanasi/gif-converter/internal/logging"
	"github.com/gatanasi/gif-converter/internal/middleware"
	"github.com/gatanasi/gif-converter/internal/models"
	"github.com/gatanasi/gif-converter/internal/sweep"
	"github.com/gatanasi/gif-converter/internal/web"
)

const errDriveNotInitialized = "Google Drive API not initialized"

// Submitter queues conversions.
type Submitter interface {
	Submit(gifID, gifName, targetFolderID string) (models.ConversionJob, error)
}

// Handler encapsulates dependencies for API handlers.
type Handler struct {
	Config    models.Config
	Drive     drive.Client
	Converter Submitter
	Store     *conversion.Store

	checker *conversion.Checker
	catalog *catalog.Catalog
	sweeper *sweep.Sweeper
	logger  *zap.Logger
}

// NewHandler creates a new API handler. A nil client makes every Drive-backed
// endpoint report that Drive is not initialized.
func NewHandler(config models.Config, client drive.Client, converter Submitter, store *conversion.Store, logger *zap.Logger) *Handler {
	h := &Handler{
		Config:    config,
		Drive:     client,
		Converter: converter,
		Store:     store,
		logger:    logger,
	}
	if client != nil {
		h.checker = conversion.NewChecker(client, logger)
		h.catalog = catalog.New(client, h.checker, logger)
		h.sweeper = sweep.New(h.catalog, converter, config.SourceFolderID, config.TargetFolderID, logger)
	}
	return h
}

// Sweeper returns the sweep shared with the convert-all endpoint, or nil
// without a Drive client.
func (h *Handler) Sweeper() *sweep.Sweeper {
	return h.sweeper
}

// Router builds the HTTP routes, wrapped in the CORS and request logging middleware.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.sendErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.HandleFunc(RouteGifs, h.ListGifsHandler).Methods(http.MethodGet)
	r.HandleFunc(RoutePendingGifs, h.PendingGifsHandler).Methods(http.MethodGet)
	r.HandleFunc(RouteConvert, h.ConvertHandler).Methods(http.MethodPost)
	r.HandleFunc(RouteConvertAll, h.ConvertAllHandler).Methods(http.MethodPost)
	r.HandleFunc(RouteStatus, h.StatusHandler).Methods(http.MethodGet)
	r.HandleFunc(RouteHealth, h.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc(RouteActiveConversions, h.ActiveConversionsHandler).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(web.Handler()).Methods(http.MethodGet, http.MethodHead)

	cors := middleware.NewCORS(h.Config.AllowedOrigins, h.logger)
	return middleware.RequestLogger(h.logger)(cors.Handler(r))
}

// ListGifsHandler returns the GIFs whose MP4 is ready.
func (h *Handler) ListGifsHandler(w http.ResponseWriter, r *http.Request) {
	h.catalogResponse(w, r, h.catalog.List)
}

// PendingGifsHandler returns the GIFs still waiting for an MP4.
func (h *Handler) PendingGifsHandler(w http.ResponseWriter, r *http.Request) {
	h.catalogResponse(w, r, h.catalog.Pending)
}

type catalogQuery func(ctx context.Context, sourceFolderID, targetFolderID string) ([]models.CatalogEntry, error)

func (h *Handler) catalogResponse(w http.ResponseWriter, r *http.Request, query catalogQuery) {
	empty := []models.CatalogEntry{}
	if h.Drive == nil {
		h.sendJSONResponse(w, models.CatalogResponse{Error: errDriveNotInitialized, Gifs: empty}, http.StatusInternalServerError)
		return
	}

	entries, err := query(r.Context(), h.Config.SourceFolderID, h.Config.TargetFolderID)
	if err != nil {
		if errors.Is(err, conversion.ErrConfiguration) {
			h.sendJSONResponse(w, models.CatalogResponse{Error: err.Error(), Gifs: empty}, http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to fetch GIFs", zap.Error(err))
		h.sendJSONResponse(w, models.CatalogResponse{Error: "Failed to fetch GIFs", Gifs: empty}, http.StatusInternalServerError)
		return
	}
	h.sendJSONResponse(w, models.CatalogResponse{Gifs: entries}, http.StatusOK)
}

// ConvertHandler starts the conversion of one GIF unless its MP4 already exists.
func (h *Handler) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	if h.Drive == nil {
		h.sendErrorResponse(w, errDriveNotInitialized, http.StatusInternalServerError)
		return
	}
	if h.Config.TargetFolderID == "" {
		h.sendErrorResponse(w, "MP4 folder ID not configured", http.StatusBadRequest)
		return
	}

	gifID := mux.Vars(r)["id"]
	if gifID == "" {
		h.sendErrorResponse(w, "GIF ID is required", http.StatusBadRequest)
		return
	}

	gif, err := h.Drive.GetFile(r.Context(), gifID)
	if err != nil {
		if errors.Is(err, drive.ErrNotFound) {
			h.sendErrorResponse(w, "GIF not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to look up GIF", zap.String(logging.FieldGifID, gifID), zap.Error(err))
		h.sendErrorResponse(w, "Failed to start conversion", http.StatusInternalServerError)
		return
	}

	if mp4ID, ok := h.checker.Exists(r.Context(), gif.Name, h.Config.TargetFolderID); ok {
		h.sendJSONResponse(w, models.ConversionResponse{
			Success: true,
			Message: "MP4 already exists",
			MP4ID:   mp4ID,
			MP4URL:  drive.DownloadURL(mp4ID),
		}, http.StatusOK)
		return
	}

	message := "Conversion started in background"
	if _, err := h.Converter.Submit(gif.ID, gif.Name, h.Config.TargetFolderID); err != nil {
		switch {
		case errors.Is(err, conversion.ErrAlreadyInFlight):
			message = "Conversion already in progress"
		case errors.Is(err, conversion.ErrQueueFull):
			h.sendErrorResponse(w, "Server busy, conversion queue is full", http.StatusServiceUnavailable)
			return
		case errors.Is(err, conversion.ErrPoolStopped):
			h.sendErrorResponse(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		default:
			h.logger.Error("failed to submit conversion", zap.String(logging.FieldGifID, gif.ID), zap.Error(err))
			h.sendErrorResponse(w, "Failed to start conversion", http.StatusInternalServerError)
			return
		}
	}

	h.sendJSONResponse(w, models.ConversionResponse{
		Success:     true,
		Message:     message,
		GifID:       gif.ID,
		GifFileName: gif.Name,
	}, http.StatusAccepted)
}

// ConvertAllHandler submits every GIF that has no MP4.
func (h *Handler) ConvertAllHandler(w http.ResponseWriter, r *http.Request) {
	if h.Drive == nil {
		h.sendErrorResponse(w, errDriveNotInitialized, http.StatusInternalServerError)
		return
	}
	result, err := h.sweeper.SweepOnce(r.Context())
	if err != nil {
		if errors.Is(err, conversion.ErrConfiguration) {
			h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("bulk conversion failed", zap.Error(err))
		h.sendErrorResponse(w, "Failed to start bulk conversion", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, models.BulkConversionResponse{
		Success:            true,
		Message:            fmt.Sprintf("Started %d conversions in background", len(result.Started)),
		ConversionsStarted: result.Started,
		Skipped:            result.Skipped,
		TotalGifs:          result.Total,
	}, http.StatusOK)
}

// StatusHandler summarises how many GIFs are ready.
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if h.Drive == nil {
		h.sendJSONResponse(w, models.StatusResponse{Error: errDriveNotInitialized}, http.StatusInternalServerError)
		return
	}
	summary, err := h.catalog.Summary(r.Context(), h.Config.SourceFolderID, h.Config.TargetFolderID)
	if err != nil {
		if errors.Is(err, conversion.ErrConfiguration) {
			h.sendJSONResponse(w, models.StatusResponse{Error: err.Error()}, http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to get status", zap.Error(err))
		h.sendJSONResponse(w, models.StatusResponse{Error: "Failed to get status"}, http.StatusInternalServerError)
		return
	}

	active, _, _ := h.Store.Counts()
	h.sendJSONResponse(w, models.StatusResponse{
		TotalGifs:         summary.Total,
		ReadyForDisplay:   summary.Ready,
		Processing:        summary.Processing,
		ActiveConversions: active,
		Message:           StatusMessage(summary.Processing),
	}, http.StatusOK)
}

// StatusMessage is the human readable readiness line.
func StatusMessage(processing int) string {
	if processing > 0 {
		return fmt.Sprintf("%d GIF(s) are being converted and will appear soon", processing)
	}
	return "All GIFs are ready for instant download!"
}

// HealthHandler reports liveness and whether Drive is usable.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSONResponse(w, models.HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC(),
		DriveAPIReady: h.Drive != nil,
	}, http.StatusOK)
}

// ActiveConversionsHandler lists queued and running conversions.
func (h *Handler) ActiveConversionsHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSONResponse(w, h.Store.GetActiveConversionsInfo(), http.StatusOK)
}

// sendJSONResponse sends a JSON response with appropriate headers.
func (h *Handler) sendJSONResponse(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("error encoding JSON response", zap.Error(err))
	}
}

// sendErrorResponse sends a standardized JSON error response.
func (h *Handler) sendErrorResponse(w http.ResponseWriter, errMsg string, statusCode int) {
	h.logger.Debug("sending error response", zap.Int("status", statusCode), zap.String("error", errMsg))
	h.sendJSONResponse(w, models.ConversionResponse{Success: false, Error: errMsg}, statusCode)
}
