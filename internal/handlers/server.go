package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"strmhub/internal/config"
	"strmhub/internal/core"
	"strmhub/internal/utils"

	"github.com/gorilla/mux"
)

type Server struct {
	config     *config.Config
	manager    *core.Manager
	logger     *utils.Logger
	httpServer *http.Server
	apiHandler *APIHandler
}

func NewServer(cfg *config.Config, manager *core.Manager, logger *utils.Logger) *Server {
	return &Server{
		config:     cfg,
		manager:    manager,
		logger:     logger,
		apiHandler: NewAPIHandler(manager, logger, cfg),
	}
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	// Catalog
	api.HandleFunc("/catalog/{type}/search", s.apiHandler.SearchCatalog).Methods("GET")
	api.HandleFunc("/catalog/{type}/{id}", s.apiHandler.GetDetails).Methods("GET")

	// Streams
	api.HandleFunc("/streams/{imdbId}", s.apiHandler.GetStreams).Methods("GET")

	// Subtitles
	api.HandleFunc("/subtitles/search", s.apiHandler.SearchSubtitles).Methods("GET")
	api.HandleFunc("/subtitles/{fileId}/download", s.apiHandler.DownloadSubtitle).Methods("GET")
	api.HandleFunc("/subtitles/convert", s.apiHandler.ConvertSubtitle).Methods("POST")

	// Library
	api.HandleFunc("/library", s.apiHandler.GetLibrary).Methods("GET")
	api.HandleFunc("/library", s.apiHandler.AddLibraryItem).Methods("POST")
	api.HandleFunc("/library/{id}", s.apiHandler.DeleteLibraryItem).Methods("DELETE")
	api.HandleFunc("/library/refresh", s.apiHandler.RefreshLibrary).Methods("POST")

	// System
	api.HandleFunc("/status", s.apiHandler.GetSystemStatus).Methods("GET")
	api.HandleFunc("/test/notifications", s.apiHandler.TestNotifications).Methods("GET")

	// Event stream
	router.HandleFunc("/events", s.apiHandler.Events)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("Starting server on port", s.config.App.Port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
