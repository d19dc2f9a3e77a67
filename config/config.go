package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the crawler.
type Config struct {
	// Search
	BaseURL  string `json:"baseUrl"`
	Database string `json:"database"`
	Query    string `json:"query"`

	// Range
	StartPage  int `json:"startPage"`
	EndPage    int `json:"endPage"`
	MaxRetries int `json:"maxRetries"`

	// Output
	OutFile    string `json:"outFile"`
	ReportFile string `json:"reportFile"`

	// Browser
	Headless    bool   `json:"headless"`
	UserAgent   string `json:"userAgent"`
	ChromePath  string `json:"chromePath"`
	BlockImages bool   `json:"blockImages"`

	// Timing
	SearchTimeout   time.Duration `json:"searchTimeout"`
	SettleDelay     time.Duration `json:"settleDelay"`
	SettleTimeout   time.Duration `json:"settleTimeout"`
	PollInterval    time.Duration `json:"pollInterval"`
	NavigateTimeout time.Duration `json:"navigateTimeout"`
	ElementTimeout  time.Duration `json:"elementTimeout"`
	DetailTimeout   time.Duration `json:"detailTimeout"`
	RetryBackoff    time.Duration `json:"retryBackoff"`

	// PostgreSQL mirror
	DBEnabled  bool   `json:"dbEnabled"`
	DBHost     string `json:"dbHost"`
	DBPort     int    `json:"dbPort"`
	DBUser     string `json:"dbUser"`
	DBPassword string `json:"dbPassword"`
	DBName     string `json:"dbName"`
	DBSSLMode  string `json:"dbSslMode"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:  "https://www.ncbi.nlm.nih.gov",
		Database: "protein",
		Query:    "SARS-CoV-2[Organism] Nucleocapsid",

		StartPage:  1,
		EndPage:    5,
		MaxRetries: 3,

		OutFile: getEnv("OUT_FILE", "coronavirus_data.txt"),

		Headless: getEnvBool("HEADLESS", true),
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ChromePath:  getEnv("CHROME_PATH", ""),
		BlockImages: getEnvBool("BLOCK_IMAGES", true),

		SearchTimeout:   10 * time.Second,
		SettleDelay:     3 * time.Second,
		SettleTimeout:   getEnvDuration("SETTLE_TIMEOUT", 15*time.Second),
		PollInterval:    250 * time.Millisecond,
		NavigateTimeout: 30 * time.Second,
		ElementTimeout:  5 * time.Second,
		DetailTimeout:   10 * time.Second,
		RetryBackoff:    2 * time.Second,

		DBEnabled:  getEnvBool("DB_ENABLED", false),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "crawler"),
		DBPassword: getEnv("DB_PASSWORD", "crawler"),
		DBName:     getEnv("DB_NAME", "protein_crawl"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// Validate clamps the page range and retry count into usable values and
// returns a notice for every adjustment it made.
func (c *Config) Validate() []string {
	var notices []string
	if c.StartPage < 1 {
		c.StartPage = 1
		notices = append(notices, "Start page set to 1 (minimum value)")
	}
	if c.EndPage < c.StartPage {
		c.EndPage = c.StartPage
		notices = append(notices, fmt.Sprintf("End page set to %d (cannot be less than start page)", c.StartPage))
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
		notices = append(notices, "Max retries set to 1 (every item gets at least one attempt)")
	}
	return notices
}

// DSN renders the PostgreSQL connection string for the mirror.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
