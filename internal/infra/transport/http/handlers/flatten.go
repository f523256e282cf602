package handlers

import (
	"time"

	"filecommand-api/internal/domain"
	"filecommand-api/internal/imaging"
)

// ResultFlattener turns processor results into plain maps for JSON clients.
type ResultFlattener struct {
	icons      imaging.IconFactory
	dateLayout string
	location   *time.Location
}

func NewResultFlattener(icons imaging.IconFactory, dateLayout string, location *time.Location) *ResultFlattener {
	if dateLayout == "" {
		dateLayout = "02-01-06"
	}
	if location == nil {
		location = time.UTC
	}
	return &ResultFlattener{icons: icons, dateLayout: dateLayout, location: location}
}

// Flatten returns file resources as their record plus date, icon and thumbUrl,
// and folders as their combined identifier. Anything else is returned as is.
func (f *ResultFlattener) Flatten(value any) any {
	var file domain.FileResource
	switch v := value.(type) {
	case domain.FileResource:
		file = v
	case domain.FolderResource:
		return v.Identifier()
	default:
		return value
	}

	record := file.ToArray()
	result := make(map[string]any, len(record)+3)
	for k, v := range record {
		result[k] = v
	}
	// two digit year by default, kept for client compatibility
	result["date"] = time.Unix(file.ModificationTime(), 0).In(f.location).Format(f.dateLayout)
	result["icon"] = f.icons.IconForFileExtension(file.Extension(), imaging.SizeSmall).Render()
	result["thumbUrl"] = ""
	return result
}

// FlattenResults flattens every result, expanding nested lists and dropping
// falsy ones. Operations without a kept result get no key.
func (f *ResultFlattener) FlattenResults(results domain.FileResults) map[string][]any {
	flat := make(map[string][]any, len(results))
	for op, list := range results {
		out := []any{}
		for _, result := range list {
			switch r := result.(type) {
			case []any:
				for _, sub := range r {
					out = append(out, f.Flatten(sub))
				}
			case nil:
			case bool:
				if r {
					out = append(out, f.Flatten(r))
				}
			default:
				out = append(out, f.Flatten(r))
			}
		}
		if len(out) > 0 {
			flat[op] = out
		}
	}
	return flat
}
