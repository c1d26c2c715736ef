package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mcsim/app"
	"mcsim/domain/core"
	"mcsim/domain/kernel"
	"mcsim/domain/run"
	"mcsim/internal/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500

	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 1 << 20
)

// RunHandler serves the simulation JSON API
type RunHandler struct {
	service *app.SimulationService
	hub     *SSEHub
}

// NewRunHandler creates a new run handler. hub may be nil, in which case
// runs do not publish progress.
func NewRunHandler(service *app.SimulationService, hub *SSEHub) *RunHandler {
	return &RunHandler{service: service, hub: hub}
}

// CompileRequest is the body of POST /api/compile
type CompileRequest struct {
	Formula string   `json:"formula"`
	Inputs  []string `json:"inputs"`
}

// CompileResponse describes a compiled program
type CompileResponse struct {
	Instructions []kernel.Instruction `json:"instructions"`
	Listing      []string             `json:"listing"`
	MaxDepth     int                  `json:"max_depth"`
	InputCount   int                  `json:"input_count"`
	Bytecode     []byte               `json:"bytecode"`
}

// Register mounts the API routes on rg
func (h *RunHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/runs", h.CreateRun)
	rg.GET("/runs", h.ListRuns)
	rg.GET("/runs/:id", h.GetRun)
	rg.POST("/runs/:id/replay", h.ReplayRun)
	rg.POST("/compile", h.Compile)
	if h.hub != nil {
		rg.GET("/events", h.hub.HandleSSE)
		rg.GET("/events/ws", h.hub.HandleWebSocket)
	}
}

// CreateRun executes a run. Fields missing from the body take the
// configured defaults. With ?stream_id= progress is published to that stream.
func (h *RunHandler) CreateRun(c *gin.Context) {
	req := h.service.NewRequest()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err), "code": errors.CodeInvalidInput})
		return
	}

	streamID := c.Query("stream_id")
	var progress func(done, total int)
	if h.hub != nil && streamID != "" {
		progress = func(done, total int) {
			h.hub.Broadcast(RunEvent{StreamID: streamID, EventType: EventProgress, Progress: float64(done) / float64(total)})
		}
	}

	result, err := h.service.RunWithProgress(c.Request.Context(), req, progress)
	if err != nil {
		if progress != nil {
			h.hub.Broadcast(RunEvent{StreamID: streamID, EventType: EventFailed, Message: err.Error()})
		}
		respondError(c, err)
		return
	}
	if progress != nil {
		h.hub.Broadcast(RunEvent{StreamID: streamID, EventType: EventCompleted, RunID: result.Manifest.RunID.String(), Progress: 1})
	}
	c.JSON(http.StatusCreated, result)
}

// ListRuns returns recent runs, newest first
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := defaultListLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be in [1, %d]", maxListLimit), "code": errors.CodeValidationError})
			return
		}
		limit = n
	}

	results, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if results == nil {
		results = []*run.Result{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": results, "count": len(results)})
}

// GetRun returns one stored run
func (h *RunHandler) GetRun(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	result, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReplayRun re-executes a stored run and reports whether it reproduced
func (h *RunHandler) ReplayRun(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	result, err := h.service.Replay(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reproduced": true, "result": result})
}

// Compile compiles a formula and returns its bytecode
func (h *RunHandler) Compile(c *gin.Context) {
	var req CompileRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err), "code": errors.CodeInvalidInput})
		return
	}

	program, err := h.service.Compile(req.Formula, req.Inputs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CompileResponse{
		Instructions: program.Instructions(),
		Listing:      program.Disassemble(),
		MaxDepth:     program.MaxDepth(),
		InputCount:   program.InputCount(),
		Bytecode:     kernel.EncodeProgram(program),
	})
}

func parseRunID(c *gin.Context) (core.RunID, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeValidationError})
		return "", false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}
