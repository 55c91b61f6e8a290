// Package server exposes the question-answering pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/satyajitsk27/zania/internal/models"
	"github.com/satyajitsk27/zania/internal/parser"
	"github.com/satyajitsk27/zania/internal/rag"
)

// Server is the HTTP front end. Request routing is handled by echo; all
// document and question semantics live in the pipeline.
type Server struct {
	echo     *echo.Echo
	pipeline *rag.Pipeline
	addr     string
}

// AnswerResponse is the JSON body of a successful POST /answer.
type AnswerResponse struct {
	QAPairs []models.QAPair `json:"qa_pairs"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates the HTTP server around a pipeline.
func NewServer(pipeline *rag.Pipeline, addr string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	s := &Server{echo: e, pipeline: pipeline, addr: addr}
	e.GET("/health", s.handleHealth)
	e.POST("/answer", s.handleAnswer)
	return s
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnswer accepts a multipart form with a questions_file JSON part
// and a document_file part (PDF, DOCX, XLSX, Markdown, JSON, or YAML),
// answers every question against the document, and returns the ordered
// question/answer/source records.
func (s *Server) handleAnswer(c echo.Context) error {
	questionsBytes, _, err := readFormFile(c, "questions_file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	documentBytes, documentHeader, err := readFormFile(c, "document_file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if err := parser.CheckPayloadSize("questions file", questionsBytes); err != nil {
		return s.fail(c, err)
	}
	if err := parser.CheckPayloadSize("document file", documentBytes); err != nil {
		return s.fail(c, err)
	}

	questions, err := parser.ParseQuestions(questionsBytes)
	if err != nil {
		return s.fail(c, err)
	}

	// the document kind is decided here, once, before extraction
	kind := models.DetectKind(documentHeader.Filename, documentHeader.Header.Get("Content-Type"))

	log.Info().
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Str("document", documentHeader.Filename).
		Str("kind", string(kind)).
		Int("questions", len(questions)).
		Msg("answering document questions")

	qaPairs, err := s.pipeline.AnswerDocument(c.Request().Context(), documentBytes, kind, questions)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, AnswerResponse{QAPairs: qaPairs})
}

// fail maps pipeline errors onto HTTP statuses: ingestion-stage failures
// are client errors with their descriptive message, anything else is a
// generic server error.
func (s *Server) fail(c echo.Context, err error) error {
	var (
		validationErr *models.ValidationError
		parseErr      *models.ParseError
		decodeErr     *models.DecodeError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &parseErr),
		errors.As(err, &decodeErr), errors.Is(err, models.ErrNoQuestions):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "unexpected error while processing the request"})
	}
}

func readFormFile(c echo.Context, field string) ([]byte, *multipart.FileHeader, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("missing form file %q", field)
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("reading form file %q: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("reading form file %q: %w", field, err)
	}
	return data, header, nil
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }
