package rest

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type startProcessRequest struct {
	Type string `json:"type"`
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func (s *Server) HandleProcessTree(w http.ResponseWriter, r *http.Request) {
	active := r.URL.Query().Get("active") != "false"
	nodes, err := s.console.ProcessTree(r.Context(), active)
	if err != nil {
		respondWithServiceError(w, "error listing processes", err)
		return
	}
	respondWithJSON(w, http.StatusOK, nodes)
}

func (s *Server) HandleAvailableProcesses(w http.ResponseWriter, r *http.Request) {
	processes, err := s.console.AvailableProcesses(r.Context())
	if err != nil {
		respondWithServiceError(w, "error listing processes", err)
		return
	}
	respondWithJSON(w, http.StatusOK, processes)
}

func (s *Server) HandleProcessDetails(w http.ResponseWriter, r *http.Request) {
	details, err := s.console.ProcessDetails(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, "error loading process", err)
		return
	}
	respondWithJSON(w, http.StatusOK, details)
}

func (s *Server) HandleDeleteProcess(w http.ResponseWriter, r *http.Request) {
	if err := s.console.DeleteProcess(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, "error deleting process", err)
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleEnableProcess(w http.ResponseWriter, r *http.Request) {
	if err := s.console.EnableProcess(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, "error enabling process", err)
		return
	}
	respondOK(w, map[string]any{"active": true})
}

func (s *Server) HandleDisableProcess(w http.ResponseWriter, r *http.Request) {
	if err := s.console.DisableProcess(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, "error disabling process", err)
		return
	}
	respondOK(w, map[string]any{"active": false})
}

func (s *Server) HandleProcessSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := s.console.ProcessSteps(r.Context(), mux.Vars(r)["category"])
	if err != nil {
		respondWithServiceError(w, "error listing steps", err)
		return
	}
	respondWithJSON(w, http.StatusOK, steps)
}

func (s *Server) HandleStepTree(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.console.StepTree(r.Context(), mux.Vars(r)["category"])
	if err != nil {
		respondWithServiceError(w, "error listing steps", err)
		return
	}
	respondWithJSON(w, http.StatusOK, nodes)
}

func (s *Server) HandleStepDetails(w http.ResponseWriter, r *http.Request) {
	step, err := s.console.StepDetails(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, "error loading step", err)
		return
	}
	respondWithJSON(w, http.StatusOK, step)
}

func (s *Server) HandleRunningProcesses(w http.ResponseWriter, r *http.Request) {
	rows, err := s.console.RunningProcesses(r.Context())
	if err != nil {
		respondWithServiceError(w, "error listing running processes", err)
		return
	}
	respondWithJSON(w, http.StatusOK, rows)
}

func (s *Server) HandleStartProcess(w http.ResponseWriter, r *http.Request) {
	var req startProcessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	row, err := s.console.StartProcess(r.Context(), req.Type)
	if err != nil {
		respondWithServiceError(w, "error starting process", err)
		return
	}
	respondWithJSON(w, http.StatusOK, row)
}

func (s *Server) HandleContinue(w http.ResponseWriter, r *http.Request) {
	if err := s.console.Continue(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, "error continuing process", err)
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleWatch(w http.ResponseWriter, r *http.Request) {
	if err := s.console.EnableContinuousUpdate(mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, "error watching process", err)
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleUnwatch(w http.ResponseWriter, r *http.Request) {
	s.console.DisableContinuousUpdate(mux.Vars(r)["id"])
	respondOKWithoutBody(w)
}

func (s *Server) HandleStopAll(w http.ResponseWriter, r *http.Request) {
	s.console.StopAll()
	respondOKWithoutBody(w)
}
