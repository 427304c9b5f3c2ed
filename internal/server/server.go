// Package server exposes the exporter over HTTP.
package server

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	goerrors "github.com/goliatone/go-errors"

	pdfexport "github.com/porticus-lab/go-pdfexport"
	"github.com/porticus-lab/go-pdfexport/download"
)

// Output modes accepted by POST /exports.
const (
	OutputBlob     = "blob"
	OutputBase64   = "base64"
	OutputDownload = "download"
)

// Service renders an HTML document to PDF. [*pdfexport.Converter]
// satisfies it.
type Service interface {
	ExportHTML(ctx context.Context, html, selector string, opts pdfexport.ExportOptions) (*pdfexport.Result, error)
}

// Server routes export requests to a Service.
type Server struct {
	app       *fiber.App
	svc       Service
	downloads *download.Registry
	logger    pdfexport.Logger
}

// ExportRequest is the body of POST /exports.
type ExportRequest struct {
	HTML        string   `json:"html"`
	Selector    string   `json:"selector"`
	FileName    string   `json:"fileName"`
	Orientation string   `json:"orientation"`
	Format      string   `json:"format"`
	Margin      *float64 `json:"margin"`
	Output      string   `json:"output"`
}

// Base64Response is returned for output "base64".
type Base64Response struct {
	FileName string `json:"fileName"`
	Pages    int    `json:"pages"`
	Data     string `json:"data"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error message and code.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

var errMissingHTML = errors.New("html is required")

// New builds a Server. A nil registry gets a default one.
func New(svc Service, downloads *download.Registry, logger pdfexport.Logger) *Server {
	if downloads == nil {
		downloads = download.NewRegistry()
	}
	s := &Server{
		svc:       svc,
		downloads: downloads,
		logger:    logger,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "pdfexport",
		DisableStartupMessage: true,
		BodyLimit:             16 << 20,
	})
	s.app.Use(recover.New())
	s.app.Post("/exports", s.handleExport)
	s.app.Get("/downloads/:id", s.handleDownload)
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Infof("listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server and revokes outstanding downloads.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.downloads.Close()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	var req ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, goerrors.New("invalid request body", goerrors.CategoryValidation).WithTextCode("bad_request"))
	}
	if strings.TrimSpace(req.HTML) == "" {
		return writeError(c, goerrors.New(errMissingHTML.Error(), goerrors.CategoryValidation).WithTextCode("validation"))
	}

	output := strings.ToLower(req.Output)
	switch output {
	case "":
		output = OutputBlob
	case OutputBlob, OutputBase64, OutputDownload:
	default:
		return writeError(c, goerrors.New("unknown output "+strconv.Quote(req.Output), goerrors.CategoryValidation).WithTextCode("validation"))
	}

	opts := pdfexport.ExportOptions{
		FileName:    req.FileName,
		Orientation: pdfexport.Orientation(req.Orientation),
		Format:      pdfexport.Format(req.Format),
		Margin:      req.Margin,
	}
	res, err := s.svc.ExportHTML(c.UserContext(), req.HTML, req.Selector, opts)
	if err != nil {
		s.logger.Errorf("export %q: %v", req.FileName, err)
		return writeError(c, pdfexport.AsGoError(err))
	}

	switch output {
	case OutputBase64:
		return c.JSON(Base64Response{
			FileName: res.FileName(),
			Pages:    res.Pages(),
			Data:     res.Base64(),
		})
	case OutputDownload:
		url := s.downloads.Create(res.Bytes(), res.FileName(), res.ContentType())
		s.logger.Debugf("registered %s for %s", url, res.FileName())
		return c.Redirect(url, fiber.StatusSeeOther)
	default:
		c.Set(fiber.HeaderContentType, res.ContentType())
		c.Set("X-Page-Count", strconv.Itoa(res.Pages()))
		c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": res.FileName()}))
		return c.Send(res.Bytes())
	}
}

func (s *Server) handleDownload(c *fiber.Ctx) error {
	e, ok := s.downloads.Lookup(c.Params("id"))
	if !ok {
		return writeError(c, goerrors.New("download not found or expired", goerrors.CategoryNotFound).WithTextCode("not_found"))
	}
	c.Attachment(e.FileName)
	c.Set(fiber.HeaderContentType, e.ContentType)
	return c.Send(e.Data)
}

func writeError(c *fiber.Ctx, ge *goerrors.Error) error {
	return c.Status(statusForError(ge)).JSON(ErrorResponse{
		Error: ErrorBody{Message: ge.Message, Code: ge.TextCode},
	})
}

func statusForError(err *goerrors.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.Category {
	case goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryOperation:
		switch err.TextCode {
		case "timeout":
			return http.StatusGatewayTimeout
		case "canceled":
			return http.StatusConflict
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
