package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/orchy-console/model"
)

type createNodeRequest struct {
	Type     string          `json:"type"`
	Position *model.Position `json:"position,omitempty"`
}

type loadTypeRequest struct {
	Type     string `json:"type"`
	PageSize int    `json:"pageSize"`
}

type toggleRequest struct {
	Value bool `json:"value"`
}

type saveQueryRequest struct {
	Kind   string         `json:"kind"`
	Query  string         `json:"query"`
	Params map[string]any `json:"params,omitempty"`
}

func (s *Server) HandleGraphSnapshot(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.graph.Snapshot())
}

func (s *Server) HandleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var pos []model.Position
	if req.Position != nil {
		pos = append(pos, *req.Position)
	}
	e, err := s.graph.CreateNode(r.Context(), req.Type, pos...)
	if err != nil {
		respondWithServiceError(w, "error creating node", err)
		return
	}
	respondWithJSON(w, http.StatusOK, e)
}

func (s *Server) HandleLoadType(w http.ResponseWriter, r *http.Request) {
	var req loadTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Type == "" {
		respondWithError(w, http.StatusBadRequest, "type is required")
		return
	}
	drawn, err := s.graph.LoadType(r.Context(), req.Type, req.PageSize)
	if err != nil {
		respondWithServiceError(w, "error loading nodes", err)
		return
	}
	respondOK(w, map[string]any{"drawn": drawn})
}

func (s *Server) HandleExpand(w http.ResponseWriter, r *http.Request) {
	drawn, err := s.graph.Expand(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, "error expanding node", err)
		return
	}
	respondOK(w, map[string]any{"drawn": drawn})
}

func (s *Server) HandleHideNode(w http.ResponseWriter, r *http.Request) {
	if !s.graph.HideNode(mux.Vars(r)["id"]) {
		respondWithError(w, http.StatusNotFound, "node is not drawn")
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleDropNode(w http.ResponseWriter, r *http.Request) {
	if !s.graph.DropNode(mux.Vars(r)["id"]) {
		respondWithError(w, http.StatusNotFound, "node is not drawn")
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := s.graph.DeleteEntity(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, "error deleting entity", err)
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleHideType(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	typ := mux.Vars(r)["type"]
	if r.URL.Query().Get("kind") == "rel" {
		s.graph.SetRelTypeHidden(typ, req.Value)
	} else {
		s.graph.SetNodeTypeHidden(typ, req.Value)
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleFilterType(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.graph.FilterNodeType(mux.Vars(r)["type"], req.Value)
	respondOKWithoutBody(w)
}

func (s *Server) HandleClearGraph(w http.ResponseWriter, r *http.Request) {
	s.graph.Clear()
	respondOKWithoutBody(w)
}

func (s *Server) HandleSavedQueries(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.graph.SavedQueries())
}

func (s *Server) HandleSaveQuery(w http.ResponseWriter, r *http.Request) {
	var req saveQueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		respondWithError(w, http.StatusBadRequest, "query is required")
		return
	}
	saved := s.graph.SaveQuery(req.Query, req.Kind, req.Params)
	respondOK(w, map[string]any{"saved": saved})
}
