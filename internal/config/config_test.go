package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStorageMounts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{name: "single", input: "default:/tmp", want: map[string]string{"default": "/tmp"}},
		{name: "multiple with spaces", input: " ssd:/mnt/ssd , hdd:/mnt/hdd ", want: map[string]string{"ssd": "/mnt/ssd", "hdd": "/mnt/hdd"}},
		{name: "windows path keeps colon", input: "win:C:/data", want: map[string]string{"win": "C:/data"}},
		{name: "skips malformed", input: "broken,:/x,y:", want: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseStorageMounts(tt.input))
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_MOUNTS", "default:/tmp")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "02-01-06", cfg.DateFormat)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, "@every 30m", cfg.IndexSchedule)
	assert.Equal(t, "/icons", cfg.IconBasePath)
	assert.Contains(t, cfg.TextExtensions, "html")
	assert.True(t, cfg.FileDenyPattern.MatchString("shell.php"))
	assert.True(t, cfg.FileDenyPattern.MatchString(".htaccess"))
	assert.False(t, cfg.FileDenyPattern.MatchString("index.html"))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("STORAGE_MOUNTS", "a:/srv/a,b:/srv/b")
	t.Setenv("DATE_TIMEZONE", "Europe/Berlin")
	t.Setenv("TEXT_EXTENSIONS", ".TXT, md")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Len(t, cfg.StorageMounts, 2)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, []string{"txt", "md"}, cfg.TextExtensions)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("DATE_TIMEZONE", "Mars/Olympus")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("deny pattern", func(t *testing.T) {
		t.Setenv("FILE_DENY_PATTERN", "([")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("no mounts", func(t *testing.T) {
		t.Setenv("STORAGE_MOUNTS", " , ")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
