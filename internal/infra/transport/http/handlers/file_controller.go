package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"filecommand-api/internal/app"
	"filecommand-api/internal/domain"
	"filecommand-api/internal/log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileProcessor runs the commands of one request and collects error messages.
type FileProcessor interface {
	Start(data domain.FileData, uploads map[string]domain.Upload)
	ProcessData() domain.FileResults
	ErrorMessages() []string
}

// ProcessingContext is the state of one file command request.
type ProcessingContext struct {
	FileData  domain.FileData
	Uploads   map[string]domain.Upload
	Redirect  string
	Processor FileProcessor
	Results   domain.FileResults
}

type Response struct {
	Status int
	Body   any
}

type FileController struct {
	newProcessor func() FileProcessor
	flattener    *ResultFlattener
	files        *app.FilesystemService
	log          *log.Logger
}

func NewFileController(newProcessor func() FileProcessor, flattener *ResultFlattener, files *app.FilesystemService, logger *log.Logger) *FileController {
	return &FileController{
		newProcessor: newProcessor,
		flattener:    flattener,
		files:        files,
		log:          logger,
	}
}

func (fc *FileController) main(pc *ProcessingContext) {
	pc.Processor.Start(pc.FileData, pc.Uploads)
	pc.Results = pc.Processor.ProcessData()
}

// processRequest answers 200 with the flattened results, or 500 as soon as
// the processor reported any error message.
func (fc *FileController) processRequest(pc *ProcessingContext) Response {
	fc.main(pc)

	if errs := pc.Processor.ErrorMessages(); len(errs) > 0 {
		return Response{
			Status: fiber.StatusInternalServerError,
			Body:   fiber.Map{"success": false, "errors": errs},
		}
	}
	return Response{
		Status: fiber.StatusOK,
		Body:   fc.flattener.FlattenResults(pc.Results),
	}
}

// newContext reads the command payload from a JSON body or a multipart form.
func (fc *FileController) newContext(c *fiber.Ctx) (*ProcessingContext, error) {
	pc := &ProcessingContext{
		Processor: fc.newProcessor(),
		Redirect:  c.Query("redirect"),
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		if raw := form.Value["data"]; len(raw) > 0 && raw[0] != "" {
			if err := json.Unmarshal([]byte(raw[0]), &pc.FileData); err != nil {
				return nil, fmt.Errorf("invalid data field: %w", err)
			}
		}
		if r := form.Value["redirect"]; len(r) > 0 && r[0] != "" {
			pc.Redirect = r[0]
		}
		pc.Uploads = make(map[string]domain.Upload, len(form.File))
		for key, headers := range form.File {
			if len(headers) == 0 {
				continue
			}
			h := headers[0]
			pc.Uploads[key] = domain.Upload{
				Name: h.Filename,
				Size: h.Size,
				Open: func() (io.ReadCloser, error) { return h.Open() },
			}
		}
	} else if len(c.Body()) > 0 {
		var req domain.ProcessRequest
		if err := c.BodyParser(&req); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		pc.FileData = req.Data
		if req.Redirect != "" {
			pc.Redirect = req.Redirect
		}
	}

	if pc.FileData == nil {
		pc.FileData = domain.FileData{}
	}
	return pc, nil
}

func (fc *FileController) dispatch(c *fiber.Ctx) (*ProcessingContext, Response, error) {
	pc, err := fc.newContext(c)
	if err != nil {
		return nil, Response{}, err
	}

	requestID := uuid.NewString()
	c.Set("X-Request-ID", requestID)

	resp := fc.processRequest(pc)
	fc.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"operations": len(pc.FileData),
		"status":     resp.Status,
	}).Info("file commands processed")

	return pc, resp, nil
}

// POST /api/ajax/file/process
func (fc *FileController) ProcessAjaxRequest(c *fiber.Ctx) error {
	_, resp, err := fc.dispatch(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(resp.Status).JSON(resp.Body)
}

// POST /api/file/process?redirect=/some/page
func (fc *FileController) Main(c *fiber.Ctx) error {
	pc, resp, err := fc.dispatch(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if resp.Status == fiber.StatusOK && isLocalRedirect(pc.Redirect) {
		return c.Redirect(pc.Redirect, fiber.StatusSeeOther)
	}
	return c.Status(resp.Status).JSON(resp.Body)
}

// only same-site paths, no scheme-relative //host targets
func isLocalRedirect(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
}

// GET /api/file/exists?fileName=a.txt&fileTarget=default:/docs/
func (fc *FileController) FileExistsInFolder(c *fiber.Ctx) error {
	fileName := c.Query("fileName")
	fileTarget := c.Query("fileTarget")
	if fileName == "" || fileTarget == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "fileName and fileTarget are required",
		})
	}

	file, err := fc.files.FileInFolder(fileTarget, fileName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotAFile) || errors.Is(err, domain.ErrNotAFolder) {
			return c.JSON(false)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fc.flattener.Flatten(file))
}
