package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"filecommand-api/internal/app"
	"filecommand-api/internal/domain"
	"filecommand-api/internal/log"

	"github.com/gofiber/fiber/v2"
)

type FileManagerHandler struct {
	service *app.FilesystemService
	log     *log.Logger
}

func NewFileManagerHandler(service *app.FilesystemService, logger *log.Logger) *FileManagerHandler {
	return &FileManagerHandler{service: service, log: logger}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrStorageNotFound), errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPath), errors.Is(err, domain.ErrNotAFile):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// GET /api/
func (h *FileManagerHandler) ListStorages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"storages": h.service.ListStorages(),
	})
}

// GET /api/files?storage=ssd1&path=/some/folder
func (h *FileManagerHandler) ListFiles(c *fiber.Ctx) error {
	storage := c.Query("storage")
	if storage == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "storage parameter is required",
		})
	}

	dir := c.Query("path", "/")
	recursive := c.Query("recursive") == "true"
	showHidden := c.Query("show_hidden") == "true"

	var files []domain.FileInfo
	var err error

	if recursive {
		files, err = h.service.ListAllFiles(storage, showHidden)
	} else {
		files, err = h.service.ListFiles(storage, dir, showHidden)
	}

	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"storage": storage,
		"path":    dir,
		"files":   files,
	})
}

// GET /api/download?storage=ssd1&path=/some/file.txt
func (h *FileManagerHandler) DownloadFile(c *fiber.Ctx) error {
	storage := c.Query("storage")
	filePath := c.Query("path")
	if storage == "" || filePath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "storage and path are required",
		})
	}

	f, info, mime, err := h.service.OpenFile(storage, filePath)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	disposition := "attachment"
	if c.Query("inline") == "true" {
		disposition = "inline"
	}
	name := path.Base(filePath)
	c.Set(fiber.HeaderContentType, mime)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`,
		disposition, strings.ReplaceAll(name, `"`, ""), url.PathEscape(name)))

	// fasthttp closes the file once the body is written
	return c.SendStream(f, int(info.Size()))
}

// GET /api/search?storage=ssd&ext=jpg,png&limit=40&offset=0&days=7
func (h *FileManagerHandler) SearchFiles(c *fiber.Ctx) error {
	storage := c.Query("storage")
	if storage == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "storage required"})
	}

	var extensions []string
	if extParam := c.Query("ext"); extParam != "" {
		extensions = strings.Split(extParam, ",")
	}

	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)
	days := c.QueryInt("days", 0)

	files, total, err := h.service.Search(storage, extensions, limit, offset, days)
	if err != nil {
		h.log.Error("Search in %s failed: %v", storage, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "search failed"})
	}

	return c.JSON(fiber.Map{
		"files":  files,
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"days":   days,
	})
}

// GET /api/recent?storage=ssd&limit=50&offset=0
func (h *FileManagerHandler) GetRecent(c *fiber.Ctx) error {
	storage := c.Query("storage")
	if storage == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "storage required"})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	files, err := h.service.Recent(storage, limit, offset)
	if err != nil {
		h.log.Error("Recent files for %s failed: %v", storage, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query failed"})
	}

	return c.JSON(fiber.Map{
		"files":  files,
		"limit":  limit,
		"offset": offset,
	})
}

// POST /api/reindex
func (h *FileManagerHandler) Reindex(c *fiber.Ctx) error {
	if !h.service.StartReindex() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "file index is not available",
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Reindexing started in background",
	})
}

// POST /api/stats?storage=ssd
// Body: { "photos": ["jpg","png"], "videos": ["mp4"], "others": [] }
func (h *FileManagerHandler) GetStats(c *fiber.Ctx) error {
	storage := c.Query("storage")
	if storage == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "storage required"})
	}

	var req map[string][]string
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	_, totalFiles, err := h.service.Search(storage, nil, 0, 0, 0)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats failed"})
	}

	stats := make(map[string]int)
	sumKnown := 0
	for category, exts := range req {
		if category == "others" || len(exts) == 0 {
			continue
		}
		_, count, err := h.service.Search(storage, exts, 0, 0, 0)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats failed"})
		}
		stats[category] = count
		sumKnown += count
	}

	if _, ok := req["others"]; ok {
		stats["others"] = max(totalFiles-sumKnown, 0)
	}

	return c.JSON(fiber.Map{
		"stats": stats,
		"total": totalFiles,
	})
}
