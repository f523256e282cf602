package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string
	StorageMounts   map[string]string // name -> path
	IndexDSN        string
	IndexSchedule   string
	DateFormat      string
	Location        *time.Location
	FileDenyPattern *regexp.Regexp
	TextExtensions  []string
	IconBasePath    string
	BodyLimitMB     int
	Debug           bool
}

const defaultDenyPattern = `\.(php[3-8]?|phpsh|phtml|pht|phar|shtml|cgi)(\..*)?$|^\.htaccess$`

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("STORAGE_MOUNTS", "default:/tmp")
	v.SetDefault("INDEX_DSN", "file:storage_index.db?_journal_mode=WAL&_sync=NORMAL")
	v.SetDefault("INDEX_SCHEDULE", "@every 30m")
	v.SetDefault("DATE_FORMAT", "02-01-06")
	v.SetDefault("DATE_TIMEZONE", "UTC")
	v.SetDefault("FILE_DENY_PATTERN", defaultDenyPattern)
	v.SetDefault("TEXT_EXTENSIONS", "txt,html,htm,css,js,json,xml,md,csv,yaml,yml,ts,tmpl,svg,ini,log")
	v.SetDefault("ICON_BASE_PATH", "/icons")
	v.SetDefault("BODY_LIMIT_MB", 100)
	v.SetDefault("DEBUG", false)
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	// a missing .env is fine, the environment still applies
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	loc, err := time.LoadLocation(v.GetString("DATE_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATE_TIMEZONE: %w", err)
	}

	deny, err := regexp.Compile(v.GetString("FILE_DENY_PATTERN"))
	if err != nil {
		return nil, fmt.Errorf("invalid FILE_DENY_PATTERN: %w", err)
	}

	mounts := parseStorageMounts(v.GetString("STORAGE_MOUNTS"))
	if len(mounts) == 0 {
		return nil, fmt.Errorf("STORAGE_MOUNTS defines no storage")
	}

	return &Config{
		Port:            v.GetString("APP_PORT"),
		StorageMounts:   mounts,
		IndexDSN:        v.GetString("INDEX_DSN"),
		IndexSchedule:   v.GetString("INDEX_SCHEDULE"),
		DateFormat:      v.GetString("DATE_FORMAT"),
		Location:        loc,
		FileDenyPattern: deny,
		TextExtensions:  splitList(v.GetString("TEXT_EXTENSIONS")),
		IconBasePath:    v.GetString("ICON_BASE_PATH"),
		BodyLimitMB:     v.GetInt("BODY_LIMIT_MB"),
		Debug:           v.GetBool("DEBUG"),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(item), "."))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Parse "name1:path1,name2:path2" into a map
func parseStorageMounts(mountsStr string) map[string]string {
	mounts := make(map[string]string)

	pairs := strings.Split(mountsStr, ",")
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) == 2 {
			name := strings.TrimSpace(parts[0])
			path := strings.TrimSpace(parts[1])
			if name != "" && path != "" {
				mounts[name] = path
			}
		}
	}

	return mounts
}
