package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by MNEMO_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("MNEMO_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// StateDir returns the directory holding the local state database.
// Defaults to ".mnemo" if not set.
func StateDir() string {
	dir := os.Getenv("STATE_DIR")
	if dir == "" {
		return ".mnemo"
	}
	return dir
}

// DatabasePath returns the full path of the sqlite state file.
func DatabasePath() string {
	return filepath.Join(StateDir(), "memory.db")
}

func VectorHost() string {
	h := os.Getenv("VECTOR_HOST")
	if h == "" {
		return "127.0.0.1"
	}
	return h
}

func VectorPort() int {
	port, err := strconv.Atoi(os.Getenv("VECTOR_PORT"))
	if err != nil || port <= 0 {
		return 6333
	}
	return port
}

func VectorCollection() string {
	c := os.Getenv("VECTOR_COLLECTION")
	if c == "" {
		return "mnemo_memories"
	}
	return c
}

// VectorSize returns the dimensionality of stored vectors.
// Must match the embedding model's output size.
func VectorSize() int {
	size, err := strconv.Atoi(os.Getenv("VECTOR_SIZE"))
	if err != nil || size <= 0 {
		return 768
	}
	return size
}

func LLMBaseURL() string {
	u := os.Getenv("LLM_BASE_URL")
	if u == "" {
		return "https://api.openai.com/v1"
	}
	return u
}

func LLMAPIKey() string {
	return os.Getenv("LLM_API_KEY")
}

func LLMModel() string {
	m := os.Getenv("LLM_MODEL")
	if m == "" {
		return "gpt-4o-mini"
	}
	return m
}

func EmbeddingBaseURL() string {
	u := os.Getenv("EMBEDDING_BASE_URL")
	if u == "" {
		return "https://api.openai.com/v1"
	}
	return u
}

func EmbeddingAPIKey() string {
	k := os.Getenv("EMBEDDING_API_KEY")
	if k == "" {
		return LLMAPIKey()
	}
	return k
}

func EmbeddingModel() string {
	m := os.Getenv("EMBEDDING_MODEL")
	if m == "" {
		return "text-embedding-3-small"
	}
	return m
}

// EmbeddingDimensions returns the embedding vector size.
// Defaults to VectorSize so the two stay aligned.
func EmbeddingDimensions() int {
	d, err := strconv.Atoi(os.Getenv("EMBEDDING_DIMENSIONS"))
	if err != nil || d <= 0 {
		return VectorSize()
	}
	return d
}

// EmbeddingRPS returns the client-side rate limit for the embedding service.
// Defaults to 10 requests per second.
func EmbeddingRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("EMBEDDING_RPS"), 64)
	if err != nil || rps <= 0 {
		return 10
	}
	return rps
}

// AutoCaptureEnabled reports whether the agent-end capture hook is active.
// Defaults to true.
func AutoCaptureEnabled() bool {
	v := os.Getenv("AUTO_CAPTURE_ENABLED")
	if v == "" {
		return true
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return enabled
}

// AutoCaptureMinConfidence returns the minimum extraction confidence
// for slot updates and memories. Defaults to 0.7.
func AutoCaptureMinConfidence() float64 {
	c, err := strconv.ParseFloat(os.Getenv("AUTO_CAPTURE_MIN_CONFIDENCE"), 64)
	if err != nil || c <= 0 || c > 1 {
		return 0.7
	}
	return c
}

// ContextWindowMaxTokens returns the token budget for conversation
// selection before extraction. Defaults to 12000.
func ContextWindowMaxTokens() int {
	t, err := strconv.Atoi(os.Getenv("CONTEXT_WINDOW_MAX_TOKENS"))
	if err != nil || t <= 0 {
		return 12000
	}
	return t
}

// MaxSlots caps the number of slots rendered into the recall block.
// Defaults to 50.
func MaxSlots() int {
	n, err := strconv.Atoi(os.Getenv("MAX_SLOTS"))
	if err != nil || n <= 0 {
		return 50
	}
	return n
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
