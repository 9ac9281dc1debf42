package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"strmhub/internal/catalog"
	"strmhub/internal/clients/subtitles"
	"strmhub/internal/config"
	"strmhub/internal/core"
	"strmhub/internal/subtitle"
	"strmhub/internal/utils"
)

type APIHandler struct {
	manager *core.Manager
	logger  *utils.Logger
	config  *config.Config
}

func NewAPIHandler(manager *core.Manager, logger *utils.Logger, config *config.Config) *APIHandler {
	return &APIHandler{manager: manager, logger: logger, config: config}
}

// A helper function to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to respond with a JSON error
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

func mediaTypeFromVar(v string) (catalog.MediaType, bool) {
	switch v {
	case "movie":
		return catalog.MediaTypeMovie, true
	case "series":
		return catalog.MediaTypeSeries, true
	}
	return "", false
}

// --- catalog ---

func (h *APIHandler) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeFromVar(mux.Vars(r)["type"])
	if !ok {
		respondError(w, http.StatusBadRequest, "Unknown media type")
		return
	}
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondError(w, http.StatusBadRequest, "Missing query parameter q")
		return
	}

	items := h.manager.SearchCatalog(r.Context(), mediaType, query)
	respondJSON(w, http.StatusOK, map[string]any{"results": items})
}

func (h *APIHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mediaType, ok := mediaTypeFromVar(vars["type"])
	if !ok {
		respondError(w, http.StatusBadRequest, "Unknown media type")
		return
	}

	var details *catalog.CatalogItemDetails
	if mediaType == catalog.MediaTypeMovie {
		details = h.manager.Provider().GetMovieDetails(r.Context(), vars["id"])
	} else {
		details = h.manager.Provider().GetSeriesDetails(r.Context(), vars["id"])
	}
	if details == nil {
		respondError(w, http.StatusNotFound, "Item not found")
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// --- streams ---

func (h *APIHandler) GetStreams(w http.ResponseWriter, r *http.Request) {
	imdbID := mux.Vars(r)["imdbId"]
	season, _ := strconv.Atoi(r.URL.Query().Get("season"))
	episode, _ := strconv.Atoi(r.URL.Query().Get("episode"))

	embedded := h.manager.Embedarr().Streams(r.Context(), imdbID, season, episode)

	stremioID := imdbID
	contentType := "movie"
	if season > 0 {
		contentType = "series"
		stremioID = imdbID + ":" + strconv.Itoa(season) + ":" + strconv.Itoa(episode)
	}
	addon := h.manager.AIOStreams().Streams(r.Context(), contentType, stremioID)

	respondJSON(w, http.StatusOK, map[string]any{
		"embedded": embedded,
		"addon":    addon,
	})
}

// --- subtitles ---

func (h *APIHandler) SearchSubtitles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := subtitles.SearchParams{
		ImdbID: q.Get("imdb_id"),
		Query:  q.Get("query"),
	}
	params.Season, _ = strconv.Atoi(q.Get("season"))
	params.Episode, _ = strconv.Atoi(q.Get("episode"))
	if langs := q.Get("languages"); langs != "" {
		params.Languages = strings.Split(langs, ",")
	} else {
		params.Languages = h.config.OpenSubtitles.Languages
	}

	if params.ImdbID == "" && params.Query == "" {
		respondError(w, http.StatusBadRequest, "Requires imdb_id or query")
		return
	}

	results := h.manager.Subtitles().Search(r.Context(), params)
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *APIHandler) DownloadSubtitle(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.Atoi(mux.Vars(r)["fileId"])
	if err != nil || fileID <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid file ID")
		return
	}

	content := h.manager.Subtitles().Download(r.Context(), fileID)
	if content == nil {
		respondError(w, http.StatusNotFound, "Subtitle not available")
		return
	}

	// An explicit format converts through the event model; the default is
	// the file as stored upstream.
	switch r.URL.Query().Get("format") {
	case "vtt":
		w.Header().Set("Content-Type", "text/vtt")
		io.WriteString(w, subtitle.Convert(string(content)).VTT())
	case "srt":
		w.Header().Set("Content-Type", "application/x-subrip")
		io.WriteString(w, subtitle.Convert(string(content)).SRT())
	case "json":
		respondJSON(w, http.StatusOK, subtitle.Convert(string(content)))
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(content)
	}
}

func (h *APIHandler) ConvertSubtitle(w http.ResponseWriter, r *http.Request) {
	content, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil || len(content) == 0 {
		respondError(w, http.StatusBadRequest, "Missing subtitle content")
		return
	}

	track := subtitle.Convert(string(content))
	switch r.URL.Query().Get("format") {
	case "vtt":
		w.Header().Set("Content-Type", "text/vtt")
		io.WriteString(w, track.VTT())
	case "srt":
		w.Header().Set("Content-Type", "application/x-subrip")
		io.WriteString(w, track.SRT())
	default:
		respondJSON(w, http.StatusOK, track)
	}
}

// --- library ---

func (h *APIHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	items, err := h.manager.Store().GetAll()
	if err != nil {
		h.logger.Error("Library listing failed:", err)
		respondError(w, http.StatusInternalServerError, "Failed to list library")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *APIHandler) AddLibraryItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item      catalog.CatalogItem `json:"item"`
		StreamURL string              `json:"stream_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Item.ID == "" || req.Item.Name == "" {
		respondError(w, http.StatusBadRequest, "Item requires id and name")
		return
	}

	saved, err := h.manager.AddToLibrary(req.Item, req.StreamURL)
	if err != nil {
		h.logger.Error("Adding library item failed:", err)
		respondError(w, http.StatusInternalServerError, "Failed to save item")
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (h *APIHandler) DeleteLibraryItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}
	if err := h.manager.RemoveFromLibrary(id); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) RefreshLibrary(w http.ResponseWriter, r *http.Request) {
	go h.manager.RefreshLibrary()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

// --- system ---

func (h *APIHandler) GetSystemStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.GetSystemStatus())
}

func (h *APIHandler) TestNotifications(w http.ResponseWriter, r *http.Request) {
	notifier := h.manager.Notifier()
	if notifier == nil {
		respondJSON(w, http.StatusOK, map[string]bool{"ok": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": notifier.Test() == nil})
}
