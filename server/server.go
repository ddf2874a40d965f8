package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"docchat/internal/models"
	"docchat/pkg/extract"
	"docchat/pkg/rag"
)

//go:embed web/index.html
var indexHTML []byte

// Engine is the ingest/query surface the UI needs. *rag.Engine satisfies
// it; tests substitute a stub.
type Engine interface {
	Ingest(ctx context.Context, doc models.Document, apiKey string) (int, error)
	Query(ctx context.Context, question string, mode models.QueryMode, apiKey string) (string, error)
	QueryStream(ctx context.Context, question string, mode models.QueryMode, apiKey string, fn func(chunk string)) (string, error)
	DocumentCount(ctx context.Context) (int, error)
}

// ScrapeFunc fetches a documentation URL and returns one document per page.
type ScrapeFunc func(ctx context.Context, url string) ([]models.Document, error)

type Config struct {
	Addr          string
	MaxUploadMB   int
	SessionCookie string
	Streaming     bool
	DefaultAPIKey string
	DefaultMode   models.QueryMode
}

type Server struct {
	config   Config
	engine   Engine
	scrape   ScrapeFunc
	sessions *SessionStore
	log      *zap.Logger
	echo     *echo.Echo
}

func New(config Config, engine Engine, scrape ScrapeFunc, log *zap.Logger) *Server {
	if config.MaxUploadMB == 0 {
		config.MaxUploadMB = 32
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		config:   config,
		engine:   engine,
		scrape:   scrape,
		sessions: NewSessionStore(config.SessionCookie, config.DefaultAPIKey, config.DefaultMode),
		log:      log,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", config.MaxUploadMB)))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/", s.handleIndex)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/ws", s.handleWebSocket)

	api := e.Group("/api")
	api.GET("/session", s.handleGetSession)
	api.PUT("/session", s.handlePutSession)
	api.POST("/documents", s.handleUpload)
	api.POST("/documents/url", s.handleIngestURL)
	api.POST("/query", s.handleQuery)
	api.GET("/history", s.handleHistory)
	api.DELETE("/history", s.handleClearHistory)
	api.GET("/stats", s.handleStats)

	s.echo = e
	return s
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	return s.echo.Start(s.config.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// errorHandler maps engine failures to status codes and keeps everything
// else behind a generic message.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "internal error"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		msg = fmt.Sprint(he.Message)
	case errors.Is(err, rag.ErrAuthentication):
		code = http.StatusUnauthorized
		msg = "authentication failed: check your API key"
	case errors.Is(err, rag.ErrEmptyIndex):
		code = http.StatusConflict
		msg = "no documents ingested yet"
	case errors.Is(err, rag.ErrEmptyQuestion), errors.Is(err, rag.ErrEmptyDocument):
		code = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, extract.ErrUnsupportedFormat):
		code = http.StatusUnsupportedMediaType
		msg = err.Error()
	}

	req := c.Request()
	s.log.Warn("request failed",
		zap.Int("status", code),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Error(err))

	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

// publicError gives the websocket the same sanitized messages the HTTP
// error handler produces.
func publicError(err error) string {
	switch {
	case errors.Is(err, rag.ErrAuthentication):
		return "authentication failed: check your API key"
	case errors.Is(err, rag.ErrEmptyIndex):
		return "no documents ingested yet"
	case errors.Is(err, rag.ErrEmptyQuestion):
		return err.Error()
	}
	return "internal error"
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, indexHTML)
}

type sessionResponse struct {
	Mode      models.QueryMode `json:"mode"`
	HasAPIKey bool             `json:"has_api_key"`
	Streaming bool             `json:"streaming"`
}

func (s *Server) handleGetSession(c echo.Context) error {
	session := s.sessions.Get(c)
	session.Lock()
	defer session.Unlock()

	return c.JSON(http.StatusOK, sessionResponse{
		Mode:      session.Mode(),
		HasAPIKey: session.APIKey() != "",
		Streaming: s.config.Streaming,
	})
}

func (s *Server) handlePutSession(c echo.Context) error {
	var req struct {
		APIKey *string `json:"api_key"`
		Mode   *string `json:"mode"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session := s.sessions.Get(c)
	session.Lock()
	defer session.Unlock()

	if req.Mode != nil {
		mode, err := models.ParseMode(*req.Mode)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		session.SetMode(mode)
	}
	if req.APIKey != nil {
		session.SetAPIKey(strings.TrimSpace(*req.APIKey))
	}

	return c.JSON(http.StatusOK, sessionResponse{
		Mode:      session.Mode(),
		HasAPIKey: session.APIKey() != "",
		Streaming: s.config.Streaming,
	})
}

type uploadResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Chunks int    `json:"chunks,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleUpload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart upload")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files in upload")
	}

	session := s.sessions.Get(c)
	session.Lock()
	apiKey := session.APIKey()
	session.Unlock()

	ctx := c.Request().Context()
	results := make([]uploadResult, 0, len(files))
	loaded := 0

	for _, header := range files {
		result := uploadResult{Name: header.Filename}

		format, err := extract.DetectFormat(header.Filename)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		file, err := header.Open()
		if err != nil {
			result.Error = "failed to read upload"
			results = append(results, result)
			continue
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			result.Error = "failed to read upload"
			results = append(results, result)
			continue
		}

		text, err := extract.Text(format, data)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		chunks, err := s.engine.Ingest(ctx, models.Document{
			ID:     uuid.NewString(),
			Name:   header.Filename,
			Format: format,
			Text:   text,
		}, apiKey)
		if err != nil {
			if errors.Is(err, rag.ErrAuthentication) {
				return err
			}
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		result.OK = true
		result.Chunks = chunks
		loaded++
		results = append(results, result)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"loaded":  loaded,
		"total":   len(files),
		"results": results,
	})
}

func (s *Server) handleIngestURL(c echo.Context) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	if s.scrape == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "URL ingestion is not configured")
	}

	target := strings.TrimSpace(req.URL)
	if !strings.HasPrefix(target, "http") {
		target = "https://" + target
	}

	session := s.sessions.Get(c)
	session.Lock()
	apiKey := session.APIKey()
	session.Unlock()

	ctx := c.Request().Context()
	docs, err := s.scrape(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to scrape %s: %w", target, err)
	}

	loaded := 0
	chunks := 0
	for _, doc := range docs {
		n, err := s.engine.Ingest(ctx, doc, apiKey)
		if err != nil {
			if errors.Is(err, rag.ErrAuthentication) {
				return err
			}
			s.log.Warn("page ingest failed", zap.String("page", doc.Source), zap.Error(err))
			continue
		}
		loaded++
		chunks += n
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"pages":  loaded,
		"chunks": chunks,
	})
}

func (s *Server) handleQuery(c echo.Context) error {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session := s.sessions.Get(c)
	session.Lock()
	defer session.Unlock()

	answer, err := s.engine.Query(c.Request().Context(), req.Question, session.Mode(), session.APIKey())
	if err != nil {
		return err
	}

	turn := models.ChatTurn{
		ID:       uuid.NewString(),
		Question: req.Question,
		Answer:   answer,
		Mode:     session.Mode(),
		AskedAt:  time.Now(),
	}
	session.AppendTurn(turn)

	return c.JSON(http.StatusOK, turn)
}

func (s *Server) handleHistory(c echo.Context) error {
	session := s.sessions.Get(c)
	session.Lock()
	defer session.Unlock()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"turns": session.Turns(),
	})
}

func (s *Server) handleClearHistory(c echo.Context) error {
	session := s.sessions.Get(c)
	session.Lock()
	defer session.Unlock()

	session.ClearTurns()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStats(c echo.Context) error {
	session := s.sessions.Get(c)
	session.Lock()
	messages := len(session.Turns())
	session.Unlock()

	documents, err := s.engine.DocumentCount(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]int{
		"documents": documents,
		"messages":  messages,
	})
}
