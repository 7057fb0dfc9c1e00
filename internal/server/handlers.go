package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tuannvm/engai/internal/pipeline"
	"github.com/tuannvm/engai/internal/project"
	"github.com/tuannvm/engai/internal/runner"
)

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Description  string `json:"description"`
	Requirements string `json:"requirements,omitempty"`
	SaveFiles    *bool  `json:"save_files,omitempty"`
	ProjectName  string `json:"project_name,omitempty"`
}

// GenerateResponse is returned for every request that passed validation,
// including failed runs.
type GenerateResponse struct {
	Architecture   string         `json:"architecture"`
	DatabaseSchema string         `json:"database_schema"`
	APIRoutePlan   string         `json:"api_route_plan,omitempty"`
	Code           string         `json:"code"`
	FrontendCode   string         `json:"frontend_code"`
	Tests          string         `json:"tests"`
	Success        bool           `json:"success"`
	Message        string         `json:"message,omitempty"`
	Files          *project.Files `json:"files,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusUnprocessableEntity, "description is required")
		return
	}

	save := true
	if req.SaveFiles != nil {
		save = *req.SaveFiles
	}

	gen, err := s.gen.Generate(r.Context(), runner.GenerateRequest{
		Description:  req.Description,
		Requirements: req.Requirements,
		ProjectName:  req.ProjectName,
		SaveFiles:    save,
	})
	if err != nil || gen == nil {
		if pipeline.IsValidation(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	writeJSON(w, http.StatusOK, newGenerateResponse(gen))
}

func newGenerateResponse(gen *runner.Generation) GenerateResponse {
	res := gen.Result
	resp := GenerateResponse{
		Architecture:   res.Architecture,
		DatabaseSchema: res.DatabaseSchema,
		APIRoutePlan:   res.APIRoutePlan,
		Code:           res.Code,
		FrontendCode:   res.FrontendCode,
		Tests:          res.Tests,
		Success:        res.Success,
		Message:        res.Message,
		Files:          gen.Files,
	}
	var stageErr *pipeline.StageError
	if errors.As(gen.Err, &stageErr) {
		resp.Message = stageErr.Error()
	}
	return resp
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gen.Usage())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: s.config.ServiceName})
}
