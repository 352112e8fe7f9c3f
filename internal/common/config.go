package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	Converter ConverterConfig
	LLM       LLMConfig
	Queue     QueueConfig
	LogLevel  string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	RequestTimeout time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
}

// SessionConfig controls how long idle sessions (and their documents) live.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// ConverterConfig holds document conversion configuration
type ConverterConfig struct {
	Engine          string // "ocr" | "docconv"
	Pdftotext       string
	Pdftoppm        string
	Tesseract       string
	TesseractLang   string
	TessdataDir     string
	DPI             int
	MaxPages        int
	MinPDFTextChars int
	TempDir         string // parent of per-conversion scratch dirs; "" = os.TempDir()
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider     string // "openai" | "gemini"
	Model        string
	BaseURL      string
	APIKey       string
	GeminiModel  string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// QueueConfig sizes the background run queue
type QueueConfig struct {
	Workers    int
	Size       int
	RunTimeout time.Duration
}

const (
	EngineOCR     = "ocr"
	EngineDocconv = "docconv"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// LoadConfig loads configuration from environment variables, reading a .env file first if present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 3*time.Minute),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 32<<20),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8501", "http://localhost:5173"}),
		},
		Session: SessionConfig{
			TTL:           getEnvAsDuration("SESSION_TTL", 2*time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Converter: ConverterConfig{
			Engine:          strings.ToLower(getEnv("CONVERTER_ENGINE", EngineOCR)),
			Pdftotext:       getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:        getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:       getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:   getEnv("TESSERACT_LANG", "por"),
			TessdataDir:     getEnv("TESSDATA_PREFIX", ""),
			DPI:             getEnvAsInt("OCR_DPI", 300),
			MaxPages:        getEnvAsInt("OCR_MAX_PAGES", 0),
			MinPDFTextChars: getEnvAsInt("PDF_MIN_TEXT_CHARS", 40),
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
			MaxRetries:   getEnvAsInt("LLM_MAX_RETRIES", 2),
			RetryBackoff: getEnvAsDuration("LLM_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Queue: QueueConfig{
			Workers:    getEnvAsInt("RUN_WORKERS", 4),
			Size:       getEnvAsInt("RUN_QUEUE_SIZE", 128),
			RunTimeout: getEnvAsDuration("RUN_TIMEOUT", 5*time.Minute),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.Converter.Engine {
	case EngineOCR, EngineDocconv:
	default:
		return NewAppError(CodeConfig, "CONVERTER_ENGINE must be one of: ocr | docconv", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return NewAppError(CodeConfig, "LLM_PROVIDER must be one of: openai | gemini", ErrInvalidInput)
	}
	if c.LLM.MaxRetries < 0 {
		return NewAppError(CodeConfig, "LLM_MAX_RETRIES must not be negative", ErrInvalidInput)
	}
	if c.Queue.Workers <= 0 {
		return NewAppError(CodeConfig, "RUN_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Session.TTL <= 0 {
		return NewAppError(CodeConfig, "SESSION_TTL must be positive", ErrInvalidInput)
	}
	return nil
}
