package handlers

import "github.com/gofiber/fiber/v2"

// Register mounts the file command and file manager routes on api.
func Register(api fiber.Router, fc *FileController, fm *FileManagerHandler) {
	// file commands
	api.Post("/file/process", fc.Main)
	api.Post("/ajax/file/process", fc.ProcessAjaxRequest)
	api.Get("/file/exists", fc.FileExistsInFolder)

	// read side
	api.Get("/files", fm.ListFiles)
	api.Get("/download", fm.DownloadFile)
	api.Get("/search", fm.SearchFiles)
	api.Get("/recent", fm.GetRecent)
	api.Post("/stats", fm.GetStats)
	api.Post("/reindex", fm.Reindex)
	api.Get("/", fm.ListStorages)
}
