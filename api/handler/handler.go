package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ethan225300/mbspro/api/response"
	"github.com/Ethan225300/mbspro/service"
	"github.com/Ethan225300/mbspro/types"
	"github.com/Ethan225300/mbspro/vars"
)

// RagHandler exposes the /rag surface.
type RagHandler struct {
	agentSvc     *service.AgentService
	retrievalSvc *service.RetrievalService
	ingestionSvc *service.IngestionService
	statusFn     func(c *gin.Context) types.StatusResponse
}

func NewRagHandler(agentSvc *service.AgentService, retrievalSvc *service.RetrievalService, ingestionSvc *service.IngestionService, statusFn func(c *gin.Context) types.StatusResponse) *RagHandler {
	return &RagHandler{
		agentSvc:     agentSvc,
		retrievalSvc: retrievalSvc,
		ingestionSvc: ingestionSvc,
		statusFn:     statusFn,
	}
}

// Agentic runs Deep mode: iterative retrieve + verify.
func (h *RagHandler) Agentic(c *gin.Context) {
	var req types.AgenticRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Note) == "" {
		response.Fail(c, http.StatusBadRequest, "note must be a non-empty string")
		return
	}
	result, err := h.agentSvc.RunDeep(c.Request.Context(), req.Note, req.Top)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, gin.H{
		"results":            service.APIItems(result),
		"note_facts":         result.NoteFacts,
		"iterations":         result.Iterations,
		"conflicts_resolved": result.ConflictsResolved,
		"reflections":        result.Reflections,
	})
}

// Smart runs Smart mode: one reflected retrieval, no verification.
func (h *RagHandler) Smart(c *gin.Context) {
	var req types.AgenticRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Note) == "" {
		response.Fail(c, http.StatusBadRequest, "note must be a non-empty string")
		return
	}
	result, err := h.agentSvc.RunSmart(c.Request.Context(), req.Note, req.Top)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, gin.H{
		"mode":       "smart",
		"results":    service.APIItems(result),
		"note_facts": result.NoteFacts,
	})
}

// Query is single-shot retrieval without verification.
func (h *RagHandler) Query(c *gin.Context) {
	var req types.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		response.Fail(c, http.StatusBadRequest, "query must be a non-empty string")
		return
	}
	result, err := h.retrievalSvc.Query(c.Request.Context(), req.Query, req.Top)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, result)
}

// Ingest loads a catalog export. Guarded by the shared token.
func (h *RagHandler) Ingest(c *gin.Context) {
	var req types.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Filename == "" {
		response.Fail(c, http.StatusBadRequest, "filename required")
		return
	}
	if !authorized(req.Token) {
		response.Fail(c, http.StatusUnauthorized, "invalid token")
		return
	}
	count, err := h.ingestionSvc.Ingest(c.Request.Context(), req.Filename)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, gin.H{"ingested": count, "status": "indexed"})
}

// Clear wipes the index namespace.
func (h *RagHandler) Clear(c *gin.Context) {
	var req types.ClearRequest
	_ = c.ShouldBindJSON(&req)
	if !authorized(req.Token) {
		response.Fail(c, http.StatusUnauthorized, "invalid token")
		return
	}
	if err := h.ingestionSvc.Clear(c.Request.Context()); err != nil {
		response.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, gin.H{"status": "cleared"})
}

// Refresh is clear + ingest.
func (h *RagHandler) Refresh(c *gin.Context) {
	var req types.RefreshRequest
	_ = c.ShouldBindJSON(&req)
	if !authorized(req.Token) {
		response.Fail(c, http.StatusUnauthorized, "invalid token")
		return
	}
	count, err := h.ingestionSvc.Refresh(c.Request.Context(), req.Filename)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, gin.H{"ingested": count, "status": "refreshed"})
}

// Status reports which external services are configured.
func (h *RagHandler) Status(c *gin.Context) {
	response.OK(c, h.statusFn(c))
}

// Health is the liveness probe.
func (h *RagHandler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok"})
}

func authorized(token string) bool {
	if vars.RAGTOKEN == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(vars.RAGTOKEN)) == 1
}
