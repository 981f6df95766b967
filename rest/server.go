package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/orchy-console/analytics"
	"github.com/mohitkumar/orchy-console/bpmn"
	"github.com/mohitkumar/orchy-console/command"
	"github.com/mohitkumar/orchy-console/graph"
	"github.com/mohitkumar/orchy-console/logger"
	"go.uber.org/zap"
)

const DEFAULT_AUDIT_LIMIT = 50

type Server struct {
	http.Server
	Port    int
	console *bpmn.Console
	graph   *graph.View
	audit   analytics.RecordReader
	hub     *Hub
}

// NewServer routes the process console and the graph view. audit may be nil.
func NewServer(httpPort int, console *bpmn.Console, view *graph.View, audit analytics.RecordReader, hub *Hub) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		Port:    httpPort,
		console: console,
		graph:   view,
		audit:   audit,
		hub:     hub,
	}

	router := mux.NewRouter()
	router.HandleFunc("/bpmn/processes", s.HandleProcessTree).Methods(http.MethodGet)
	router.HandleFunc("/bpmn/processes/available", s.HandleAvailableProcesses).Methods(http.MethodGet)
	router.HandleFunc("/bpmn/processes/{id}", s.HandleProcessDetails).Methods(http.MethodGet)
	router.HandleFunc("/bpmn/processes/{id}", s.HandleDeleteProcess).Methods(http.MethodDelete)
	router.HandleFunc("/bpmn/processes/{id}/enable", s.HandleEnableProcess).Methods(http.MethodPost)
	router.HandleFunc("/bpmn/processes/{id}/disable", s.HandleDisableProcess).Methods(http.MethodPost)

	router.HandleFunc("/bpmn/categories/{category}/steps", s.HandleProcessSteps).Methods(http.MethodGet)
	router.HandleFunc("/bpmn/categories/{category}/tree", s.HandleStepTree).Methods(http.MethodGet)
	router.HandleFunc("/bpmn/steps/{id}", s.HandleStepDetails).Methods(http.MethodGet)

	router.HandleFunc("/bpmn/running", s.HandleRunningProcesses).Methods(http.MethodGet)
	router.HandleFunc("/bpmn/running", s.HandleStartProcess).Methods(http.MethodPost)
	router.HandleFunc("/bpmn/running/{id}/continue", s.HandleContinue).Methods(http.MethodPost)
	router.HandleFunc("/bpmn/running/{id}/watch", s.HandleWatch).Methods(http.MethodPost)
	router.HandleFunc("/bpmn/running/{id}/watch", s.HandleUnwatch).Methods(http.MethodDelete)
	router.HandleFunc("/bpmn/stop", s.HandleStopAll).Methods(http.MethodPost)

	router.HandleFunc("/graph", s.HandleGraphSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/graph/nodes", s.HandleCreateNode).Methods(http.MethodPost)
	router.HandleFunc("/graph/load", s.HandleLoadType).Methods(http.MethodPost)
	router.HandleFunc("/graph/nodes/{id}/expand", s.HandleExpand).Methods(http.MethodPost)
	router.HandleFunc("/graph/nodes/{id}/hide", s.HandleHideNode).Methods(http.MethodPost)
	router.HandleFunc("/graph/nodes/{id}", s.HandleDropNode).Methods(http.MethodDelete)
	router.HandleFunc("/graph/entities/{id}", s.HandleDeleteEntity).Methods(http.MethodDelete)
	router.HandleFunc("/graph/types/{type}/hidden", s.HandleHideType).Methods(http.MethodPost)
	router.HandleFunc("/graph/types/{type}/filtered", s.HandleFilterType).Methods(http.MethodPost)
	router.HandleFunc("/graph/clear", s.HandleClearGraph).Methods(http.MethodPost)
	router.HandleFunc("/graph/queries", s.HandleSavedQueries).Methods(http.MethodGet)
	router.HandleFunc("/graph/queries", s.HandleSaveQuery).Methods(http.MethodPost)

	if audit != nil {
		router.HandleFunc("/audit", s.HandleAudit).Methods(http.MethodGet)
	}
	if hub != nil {
		router.HandleFunc("/ws", hub.HandleWS).Methods(http.MethodGet)
	}

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	if s.hub != nil {
		s.hub.Close()
	}
	return nil
}

func (s *Server) HandleAudit(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", DEFAULT_AUDIT_LIMIT)
	records, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		respondWithServiceError(w, "error reading audit log", err)
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI, zap.String("method", r.Method))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondOKWithoutBody(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps command errors onto status codes.
func respondWithServiceError(w http.ResponseWriter, message string, err error) {
	var nf command.NotFoundError
	var ve command.ValidationError
	switch {
	case errors.As(err, &nf):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ve):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(message, zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, message)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
