// handlers/admin_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gewnthar/permitsync/models"
	"github.com/gewnthar/permitsync/services"
)

// Importer runs one import. *services.Importer satisfies it.
type Importer interface {
	Run(ctx context.Context, importType string, force bool) (*services.Summary, error)
	ImportTypes() []string
}

// RunHistory lists past import runs. *database.DB satisfies it.
type RunHistory interface {
	ImportRuns(ctx context.Context, importType string, limit int) ([]models.ImportRun, error)
	PingContext(ctx context.Context) error
}

// AdminHandler serves the health check and the import trigger endpoints.
type AdminHandler struct {
	Importer Importer
	Runs     RunHistory
	Logger   *slog.Logger
}

// Routes registers the admin endpoints on a new mux.
func (h *AdminHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("POST /api/admin/imports/{type}", h.ForceImport)
	mux.HandleFunc("POST /api/admin/check-imports/{type}", h.CheckImport)
	mux.HandleFunc("GET /api/admin/import-runs/{type}", h.ListRuns)
	return mux
}

// Helper to respond with JSON
func (h *AdminHandler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger().Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func (h *AdminHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.logger().Warn("API error", "status", code, "message", message)
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// Health pings the database.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Runs.PingContext(r.Context()); err != nil {
		h.logger().Error("health check failed: DB ping error", "error", err)
		h.respondWithJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "database connection error"})
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "permitsync is healthy"})
}

// ForceImport handles POST /api/admin/imports/{type}. The import runs even if
// the sources are unchanged since the last successful run. {type} may be "all".
func (h *AdminHandler) ForceImport(w http.ResponseWriter, r *http.Request) {
	h.runImports(w, r, true)
}

// CheckImport handles POST /api/admin/check-imports/{type}. The import only
// runs when the discovered sources changed.
func (h *AdminHandler) CheckImport(w http.ResponseWriter, r *http.Request) {
	h.runImports(w, r, false)
}

func (h *AdminHandler) runImports(w http.ResponseWriter, r *http.Request, force bool) {
	importType := strings.ToLower(r.PathValue("type"))
	types := []string{importType}
	if importType == "all" {
		types = h.Importer.ImportTypes()
	}

	summaries := make([]*services.Summary, 0, len(types))
	for _, t := range types {
		summary, err := h.Importer.Run(r.Context(), t, force)
		if errors.Is(err, services.ErrUnknownImportType) {
			h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid import type '%s'. Use one of %s or 'all'.", t, strings.Join(h.Importer.ImportTypes(), ", ")))
			return
		}
		if err != nil {
			h.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to import %s data: %v", t, err))
			return
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 1 {
		h.respondWithJSON(w, http.StatusOK, summaries[0])
		return
	}
	h.respondWithJSON(w, http.StatusOK, summaries)
}

// ListRuns handles GET /api/admin/import-runs/{type}?limit=N.
func (h *AdminHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := h.Runs.ImportRuns(r.Context(), strings.ToLower(r.PathValue("type")), limit)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list import runs: %v", err))
		return
	}
	if runs == nil {
		runs = []models.ImportRun{}
	}
	h.respondWithJSON(w, http.StatusOK, runs)
}

func (h *AdminHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
