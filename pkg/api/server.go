// Package api exposes the execution engine and OCR registry over HTTP.
package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/screengrid-dev/screengrid/pkg/core"
	"github.com/screengrid-dev/screengrid/pkg/engine"
	"github.com/screengrid-dev/screengrid/pkg/logger"
	"github.com/screengrid-dev/screengrid/pkg/ocr"
	"github.com/screengrid-dev/screengrid/pkg/scripts"
)

// Server wires the HTTP routes to the engine and registries.
type Server struct {
	engine  *engine.Engine
	scripts *scripts.Registry
	ocr     *ocr.Registry
	router  *gin.Engine
}

// NewServer builds the router. gin runs in release mode; the access log
// goes through the shared logger.
func NewServer(e *engine.Engine, scriptRegistry *scripts.Registry, ocrRegistry *ocr.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:  e,
		scripts: scriptRegistry,
		ocr:     ocrRegistry,
		router:  gin.New(),
	}
	s.router.Use(gin.Recovery())

	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/execute", s.handleExecute)
		v1.GET("/execution/:id", s.handleExecutionStatus)
		v1.GET("/executions", s.handleExecutionList)
		v1.GET("/scripts", s.handleScriptList)

		v1.POST("/ocr/process", s.handleOCRProcess)
		v1.POST("/ocr/process/:engine", s.handleOCRProcess)
		v1.GET("/ocr/engines", s.handleOCREngines)
		v1.GET("/ocr/engines/status", s.handleOCREngineStatus)
		v1.POST("/ocr/engines/default", s.handleOCRSetDefault)
	}

	return s
}

// Router returns the underlying gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves HTTP on the given address until the listener fails.
func (s *Server) Run(addr string) error {
	logger.Info("HTTP API listening on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type executeRequest struct {
	DeviceID   string                 `json:"device_id"`
	ScriptName string                 `json:"script_name"`
	Variables  map[string]interface{} `json:"variables"`
}

func (s *Server) handleExecute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	if req.DeviceID == "" || req.ScriptName == "" {
		fail(c, http.StatusBadRequest, "invalid_request", "device_id and script_name are required")
		return
	}

	executionID, err := s.engine.Submit(req.DeviceID, req.ScriptName, req.Variables)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"execution_id": executionID,
	})
}

func (s *Server) handleExecutionStatus(c *gin.Context) {
	rec, err := s.engine.Snapshot(c.Param("id"))
	if err != nil {
		failFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleExecutionList(c *gin.Context) {
	records := s.engine.List()
	c.JSON(http.StatusOK, gin.H{
		"executions": records,
		"total":      len(records),
	})
}

func (s *Server) handleScriptList(c *gin.Context) {
	infos := s.scripts.List()
	c.JSON(http.StatusOK, gin.H{
		"scripts": infos,
		"total":   len(infos),
	})
}

type ocrProcessRequest struct {
	ImageBase64 string `json:"image_base64"`
	Languages   string `json:"languages"` // Joined by +, e.g. "eng+chi_sim"
}

// textPosition is the wire shape of one OCR hit; x,y is the box center.
type textPosition struct {
	Text       string  `json:"text"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence float64 `json:"confidence"`
}

func (s *Server) handleOCRProcess(c *gin.Context) {
	var req ocrProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(image) == 0 {
		fail(c, http.StatusBadRequest, "invalid_request", "image_base64 is not valid base64")
		return
	}

	result, err := s.ocr.Recognize(c.Request.Context(), image, splitLanguages(req.Languages), c.Param("engine"))
	if err != nil {
		failFromError(c, err)
		return
	}

	positions := make([]textPosition, 0, len(result.Elements))
	for _, element := range result.Elements {
		center := element.Center()
		positions = append(positions, textPosition{
			Text:       element.Text,
			X:          center.X,
			Y:          center.Y,
			Confidence: element.Confidence,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"text_positions": positions,
		"total_found":    len(positions),
		"engine_used":    result.EngineUsed,
		"languages_used": strings.Join(result.LanguagesUsed, "+"),
	})
}

func (s *Server) handleOCREngines(c *gin.Context) {
	names := s.ocr.Names()
	c.JSON(http.StatusOK, gin.H{
		"engines": names,
		"total":   len(names),
	})
}

func (s *Server) handleOCREngineStatus(c *gin.Context) {
	status, defaultEngine := s.ocr.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"default_engine": defaultEngine,
	})
}

type setDefaultRequest struct {
	Engine string `json:"engine"`
}

func (s *Server) handleOCRSetDefault(c *gin.Context) {
	var req setDefaultRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Engine == "" {
		fail(c, http.StatusBadRequest, "invalid_request", "engine is required")
		return
	}

	if err := s.ocr.SetDefault(req.Engine); err != nil {
		failFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"default_engine": req.Engine,
	})
}

func splitLanguages(raw string) []string {
	if raw == "" {
		return nil
	}
	var languages []string
	for _, lang := range strings.Split(raw, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			languages = append(languages, lang)
		}
	}
	return languages
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"code":    code,
		"error":   message,
	})
}

// failFromError maps the error taxonomy onto HTTP statuses.
func failFromError(c *gin.Context, err error) {
	var execErr *core.ExecutionError
	if !errors.As(err, &execErr) {
		fail(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch execErr.Code {
	case core.ErrUnknownScript.Code, core.ErrNotFound.Code:
		status = http.StatusNotFound
	case core.ErrInvalidQuery.Code:
		status = http.StatusBadRequest
	case core.ErrEngineUnavailable.Code:
		status = http.StatusServiceUnavailable
	case core.ErrDeviceUnreachable.Code, core.ErrDeviceError.Code:
		status = http.StatusBadGateway
	case core.ErrTimeout.Code:
		status = http.StatusGatewayTimeout
	}
	fail(c, status, execErr.Code, execErr.Error())
}
