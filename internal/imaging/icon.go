package imaging

import (
	"fmt"
	"html"
	"strings"
)

type IconSize string

const (
	SizeSmall   IconSize = "small"
	SizeDefault IconSize = "default"
	SizeLarge   IconSize = "large"
)

func (s IconSize) pixels() int {
	switch s {
	case SizeLarge:
		return 48
	case SizeDefault:
		return 32
	}
	return 16
}

const fallbackIdentifier = "mimetypes-other-other"

// Icon renders to the markup the backend UI expects.
type Icon interface {
	Identifier() string
	Render() string
}

type IconFactory interface {
	IconForFileExtension(extension string, size IconSize) Icon
}

var extensionIcons = map[string]string{
	"html": "mimetypes-text-html",
	"htm":  "mimetypes-text-html",
	"css":  "mimetypes-text-css",
	"js":   "mimetypes-text-js",
	"ts":   "mimetypes-text-ts",
	"json": "mimetypes-text-json",
	"xml":  "mimetypes-text-xml",
	"csv":  "mimetypes-text-csv",
	"md":   "mimetypes-text-markdown",
	"txt":  "mimetypes-text-text",
	"log":  "mimetypes-text-text",
	"pdf":  "mimetypes-pdf",
	"doc":  "mimetypes-word",
	"docx": "mimetypes-word",
	"odt":  "mimetypes-open-document-text",
	"xls":  "mimetypes-excel",
	"xlsx": "mimetypes-excel",
	"ods":  "mimetypes-open-document-spreadsheet",
	"ppt":  "mimetypes-powerpoint",
	"pptx": "mimetypes-powerpoint",
	"zip":  "mimetypes-compressed",
	"gz":   "mimetypes-compressed",
	"tgz":  "mimetypes-compressed",
	"rar":  "mimetypes-compressed",
	"7z":   "mimetypes-compressed",
	"jpg":  "mimetypes-media-image",
	"jpeg": "mimetypes-media-image",
	"png":  "mimetypes-media-image",
	"gif":  "mimetypes-media-image",
	"webp": "mimetypes-media-image",
	"svg":  "mimetypes-media-image",
	"mp3":  "mimetypes-media-audio",
	"wav":  "mimetypes-media-audio",
	"ogg":  "mimetypes-media-audio",
	"mp4":  "mimetypes-media-video",
	"mkv":  "mimetypes-media-video",
	"webm": "mimetypes-media-video",
	"mov":  "mimetypes-media-video",
	"avi":  "mimetypes-media-video",
}

// Registry resolves file extensions to icons from a static table.
type Registry struct {
	BasePath string
	mapping  map[string]string
}

func NewRegistry(basePath string) *Registry {
	mapping := make(map[string]string, len(extensionIcons))
	for ext, id := range extensionIcons {
		mapping[ext] = id
	}
	return &Registry{BasePath: strings.TrimRight(basePath, "/"), mapping: mapping}
}

// Register maps an extension to an icon identifier, replacing any existing entry.
func (r *Registry) Register(extension, identifier string) {
	r.mapping[normalizeExtension(extension)] = identifier
}

func (r *Registry) IconForFileExtension(extension string, size IconSize) Icon {
	id, ok := r.mapping[normalizeExtension(extension)]
	if !ok {
		id = fallbackIdentifier
	}
	return &markupIcon{identifier: id, size: size, basePath: r.BasePath}
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

type markupIcon struct {
	identifier string
	size       IconSize
	basePath   string
}

func (i *markupIcon) Identifier() string { return i.identifier }

func (i *markupIcon) Render() string {
	id := html.EscapeString(i.identifier)
	px := i.size.pixels()
	return fmt.Sprintf(
		`<span class="icon icon-size-%s icon-state-default icon-%s" data-identifier="%s"><span class="icon-markup"><img src="%s/%s.svg" width="%d" height="%d" alt=""></span></span>`,
		html.EscapeString(string(i.size)), id, id, html.EscapeString(i.basePath), id, px, px,
	)
}
