package bootstrap

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string
	LogLevel   string
	Version    string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	TranscriptionModel    string
	TranscriptionLanguage string
	GenerationModel       string
	SystemPrompt          string
	MaxHistoryTurns       int
	SynthesisModel        string
	SynthesisVoice        string

	VADSampleRate      int
	VADEnergyThreshold float64
	VADMinSilence      time.Duration
	VADMinUtterance    time.Duration
	VADMaxUtterance    time.Duration

	PoolWorkers     int
	PoolQueueDepth  int
	PoolTaskTimeout time.Duration

	SchedulingURL   string
	AvailabilityTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

const defaultSystemPrompt = "You are the phone assistant for a moving company. " +
	"Keep answers short and conversational; they will be read aloud. " +
	"Use the scheduling tools to check availability, book, look up and cancel appointments. " +
	"Confirm every booking detail with the caller before creating an appointment."

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Version:    getEnv("VERSION", "dev"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		TranscriptionModel:    getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		TranscriptionLanguage: getEnv("TRANSCRIPTION_LANGUAGE", ""),
		GenerationModel:       getEnv("GENERATION_MODEL", "gpt-4o-mini"),
		SystemPrompt:          getEnv("SYSTEM_PROMPT", defaultSystemPrompt),
		MaxHistoryTurns:       getEnvInt("MAX_HISTORY_TURNS", 20),
		SynthesisModel:        getEnv("SYNTHESIS_MODEL", "tts-1"),
		SynthesisVoice:        getEnv("SYNTHESIS_VOICE", "alloy"),

		VADSampleRate:      getEnvInt("VAD_SAMPLE_RATE", 16000),
		VADEnergyThreshold: getEnvFloat("VAD_ENERGY_THRESHOLD", 0.0005),
		VADMinSilence:      getEnvDuration("VAD_MIN_SILENCE", 500*time.Millisecond),
		VADMinUtterance:    getEnvDuration("VAD_MIN_UTTERANCE", 300*time.Millisecond),
		VADMaxUtterance:    getEnvDuration("VAD_MAX_UTTERANCE", 15*time.Second),

		PoolWorkers:     getEnvInt("POOL_WORKERS", 4),
		PoolQueueDepth:  getEnvInt("POOL_QUEUE_DEPTH", 64),
		PoolTaskTimeout: getEnvDuration("POOL_TASK_TIMEOUT", 30*time.Second),

		SchedulingURL:   getEnv("SCHEDULING_URL", ""),
		AvailabilityTTL: getEnvDuration("AVAILABILITY_TTL", time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
