package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIconForFileExtension(t *testing.T) {
	r := NewRegistry("/icons")

	tests := []struct {
		ext  string
		want string
	}{
		{"html", "mimetypes-text-html"},
		{".HTML", "mimetypes-text-html"},
		{"jpeg", "mimetypes-media-image"},
		{"unknown", fallbackIdentifier},
		{"", fallbackIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IconForFileExtension(tt.ext, SizeSmall).Identifier())
		})
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry("")
	r.Register(".Go", "mimetypes-text-go")

	assert.Equal(t, "mimetypes-text-go", r.IconForFileExtension("go", SizeSmall).Identifier())
	// registering on one registry leaves the package table alone
	assert.Equal(t, fallbackIdentifier, NewRegistry("").IconForFileExtension("go", SizeSmall).Identifier())
}

func TestRender(t *testing.T) {
	markup := NewRegistry("/icons/").IconForFileExtension("pdf", SizeSmall).Render()

	assert.Contains(t, markup, `data-identifier="mimetypes-pdf"`)
	assert.Contains(t, markup, `icon-size-small`)
	assert.Contains(t, markup, `src="/icons/mimetypes-pdf.svg"`)
	assert.Contains(t, markup, `width="16"`)

	large := NewRegistry("").IconForFileExtension("pdf", SizeLarge).Render()
	assert.Contains(t, large, `width="48"`)
}
