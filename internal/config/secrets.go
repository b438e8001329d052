package config

import (
	"os"
	"strconv"
)

// values that must never be committed are read from the environment once at start
var (
	AuthToken     = os.Getenv("AUTH_TOKEN")
	NoAuthBypass  = envBool("NO_AUTH_BYPASS")
	RedisPassword = os.Getenv("REDIS_PASSWORD")
	RedisAddress  = envOrDefault("REDIS_ADDR", RedisAddr)
	GeminiAPIKey  = os.Getenv("GEMINI_API_KEY")
	OpenAIAPIKey  = os.Getenv("OPENAI_API_KEY")
	LLMProvider   = envOrDefault("LLM_PROVIDER", "gemini")
	UploadDir     = envOrDefault("UPLOAD_DIR", DefaultUploadDir)
)

func envOrDefault(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
