package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// File mirrors the subset of Config that may be set from a JSON5 file.
// Durations are Go duration strings ("2s", "500ms"); empty fields keep the
// default.
type File struct {
	BaseURL    string `json:"baseUrl"`
	Database   string `json:"database"`
	Query      string `json:"query"`
	StartPage  int    `json:"startPage"`
	EndPage    int    `json:"endPage"`
	MaxRetries int    `json:"maxRetries"`
	OutFile    string `json:"outFile"`
	ReportFile string `json:"reportFile"`
	Headless   *bool  `json:"headless"`
	UserAgent  string `json:"userAgent"`
	ChromePath string `json:"chromePath"`
	// BlockImages is a pointer so an explicit false is distinguishable.
	BlockImages *bool `json:"blockImages"`

	SearchTimeout   string `json:"searchTimeout"`
	SettleDelay     string `json:"settleDelay"`
	SettleTimeout   string `json:"settleTimeout"`
	PollInterval    string `json:"pollInterval"`
	NavigateTimeout string `json:"navigateTimeout"`
	ElementTimeout  string `json:"elementTimeout"`
	DetailTimeout   string `json:"detailTimeout"`
	RetryBackoff    string `json:"retryBackoff"`

	DBEnabled  *bool  `json:"dbEnabled"`
	DBHost     string `json:"dbHost"`
	DBPort     int    `json:"dbPort"`
	DBUser     string `json:"dbUser"`
	DBPassword string `json:"dbPassword"`
	DBName     string `json:"dbName"`
	DBSSLMode  string `json:"dbSslMode"`
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// ReadFile reads name and, if present, <name>.local.<ext> merged on top of
// it. It returns os.ErrNotExist when neither file exists.
func ReadFile(name string) (File, error) {
	var out File
	found := false

	raw, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(raw) > 0 {
		if err := json5.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
		found = true
	}

	prefix, ext := splitExt(filepath.Base(name))
	localPath := filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))
	localRaw, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localRaw) > 0 {
		var override File
		if err := json5.Unmarshal(localRaw, &override); err != nil {
			return out, fmt.Errorf("parse %s: %w", localPath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		override.applySwitches(&out)
		log.Printf("merging config with local overrides from %s", localPath)
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// applySwitches copies every switch set in f onto dst. mergo treats false as
// empty, so an explicit false in an override would otherwise be dropped.
func (f File) applySwitches(dst *File) {
	for _, sw := range []struct {
		dst **bool
		src *bool
	}{
		{&dst.Headless, f.Headless},
		{&dst.BlockImages, f.BlockImages},
		{&dst.DBEnabled, f.DBEnabled},
	} {
		if sw.src != nil {
			v := *sw.src
			*sw.dst = &v
		}
	}
}

// Load returns Default() with the settings from name applied. A missing
// file is not an error.
func Load(name string) (Config, error) {
	cfg := Default()
	if name == "" {
		return cfg, nil
	}
	f, err := ReadFile(name)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := f.Apply(&cfg); err != nil {
		return cfg, fmt.Errorf("apply %s: %w", name, err)
	}
	return cfg, nil
}

// Apply copies every non-empty field of f onto cfg.
func (f File) Apply(cfg *Config) error {
	setString(&cfg.BaseURL, f.BaseURL)
	setString(&cfg.Database, f.Database)
	setString(&cfg.Query, f.Query)
	setInt(&cfg.StartPage, f.StartPage)
	setInt(&cfg.EndPage, f.EndPage)
	setInt(&cfg.MaxRetries, f.MaxRetries)
	setString(&cfg.OutFile, f.OutFile)
	setString(&cfg.ReportFile, f.ReportFile)
	if f.Headless != nil {
		cfg.Headless = *f.Headless
	}
	setString(&cfg.UserAgent, f.UserAgent)
	setString(&cfg.ChromePath, f.ChromePath)
	if f.BlockImages != nil {
		cfg.BlockImages = *f.BlockImages
	}

	durations := []struct {
		dst *time.Duration
		src string
	}{
		{&cfg.SearchTimeout, f.SearchTimeout},
		{&cfg.SettleDelay, f.SettleDelay},
		{&cfg.SettleTimeout, f.SettleTimeout},
		{&cfg.PollInterval, f.PollInterval},
		{&cfg.NavigateTimeout, f.NavigateTimeout},
		{&cfg.ElementTimeout, f.ElementTimeout},
		{&cfg.DetailTimeout, f.DetailTimeout},
		{&cfg.RetryBackoff, f.RetryBackoff},
	}
	for _, d := range durations {
		if d.src == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.src)
		if err != nil {
			return err
		}
		*d.dst = parsed
	}

	if f.DBEnabled != nil {
		cfg.DBEnabled = *f.DBEnabled
	}
	setString(&cfg.DBHost, f.DBHost)
	setInt(&cfg.DBPort, f.DBPort)
	setString(&cfg.DBUser, f.DBUser)
	setString(&cfg.DBPassword, f.DBPassword)
	setString(&cfg.DBName, f.DBName)
	setString(&cfg.DBSSLMode, f.DBSSLMode)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
