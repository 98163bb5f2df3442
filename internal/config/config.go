/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SpeechProvider selects the cloud voice used before falling back to the local engine.
type SpeechProvider string

const (
	SpeechGoogle SpeechProvider = "google" // Cloud Text-to-Speech API
	SpeechProxy  SpeechProvider = "proxy"  // HTTP endpoint fronting a TTS service
	SpeechPolly  SpeechProvider = "polly"
)

// AudioStoreBackend selects where synthesized narration is kept while a cinematic plays.
type AudioStoreBackend string

const (
	AudioStoreMemory AudioStoreBackend = "memory"
	AudioStoreS3     AudioStoreBackend = "s3"
)

// DevJWTSigningKey is accepted outside production only.
const DevJWTSigningKey = "kidscast-dev-signing-key"

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	BaseURL       string // Public base URL used for OAuth redirects and audio links
	JWTSigningKey string
	SessionTTL    time.Duration
	ScriptsPath   string // Optional YAML file with intro/outro cinematic scripts

	// Speech synthesis
	SpeechPrimary     SpeechProvider
	TTSProxyURL       string
	GoogleAPIKey      string
	PollyRegion       string
	PollyVoice        string
	LocalTTSBin       string // espeak-ng or a compatible binary
	SpeechTimeout     time.Duration
	AudioStore        AudioStoreBackend
	AudioURLTTL       time.Duration
	S3Bucket          string
	S3Region          string
	S3Endpoint        string // For S3-compatible services (MinIO, etc.)
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool
	S3Prefix          string

	// Google sign-in for playlist import
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Playlist page cache
	CacheEnabled     bool
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	PlaylistCacheTTL time.Duration

	// Event mirror
	NATSURL     string
	NATSSubject string

	// Kiosk browser
	LaunchBrowser bool
	BrowserBin    string
	DisplayURL    string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"KIDSCAST_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"KIDSCAST_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"KIDSCAST_HTTP_PORT"}, 8080),
		BaseURL:       getEnvAny([]string{"KIDSCAST_BASE_URL"}, ""),
		JWTSigningKey: getEnvAny([]string{"KIDSCAST_JWT_SIGNING_KEY"}, ""),
		SessionTTL:    time.Duration(getEnvIntAny([]string{"KIDSCAST_SESSION_TTL_HOURS"}, 12)) * time.Hour,
		ScriptsPath:   getEnvAny([]string{"KIDSCAST_SCRIPTS_PATH"}, ""),

		SpeechPrimary:     SpeechProvider(strings.ToLower(getEnvAny([]string{"KIDSCAST_SPEECH_PRIMARY"}, string(SpeechGoogle)))),
		TTSProxyURL:       getEnvAny([]string{"KIDSCAST_TTS_PROXY_URL"}, ""),
		GoogleAPIKey:      getEnvAny([]string{"KIDSCAST_GOOGLE_API_KEY", "GOOGLE_API_KEY"}, ""),
		PollyRegion:       getEnvAny([]string{"KIDSCAST_POLLY_REGION", "AWS_REGION"}, "us-east-1"),
		PollyVoice:        getEnvAny([]string{"KIDSCAST_POLLY_VOICE"}, "Joanna"),
		LocalTTSBin:       getEnvAny([]string{"KIDSCAST_LOCAL_TTS_BIN"}, "espeak-ng"),
		SpeechTimeout:     time.Duration(getEnvIntAny([]string{"KIDSCAST_SPEECH_TIMEOUT_SECONDS"}, 15)) * time.Second,
		AudioStore:        AudioStoreBackend(strings.ToLower(getEnvAny([]string{"KIDSCAST_AUDIO_STORE"}, string(AudioStoreMemory)))),
		AudioURLTTL:       time.Duration(getEnvIntAny([]string{"KIDSCAST_AUDIO_URL_TTL_MINUTES"}, 30)) * time.Minute,
		S3Bucket:          getEnvAny([]string{"KIDSCAST_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Region:          getEnvAny([]string{"KIDSCAST_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Endpoint:        getEnvAny([]string{"KIDSCAST_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3AccessKeyID:     getEnvAny([]string{"KIDSCAST_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"KIDSCAST_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"KIDSCAST_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),
		S3Prefix:          getEnvAny([]string{"KIDSCAST_S3_PREFIX"}, "narration/"),

		GoogleClientID:     getEnvAny([]string{"KIDSCAST_GOOGLE_CLIENT_ID"}, ""),
		GoogleClientSecret: getEnvAny([]string{"KIDSCAST_GOOGLE_CLIENT_SECRET"}, ""),
		GoogleRedirectURL:  getEnvAny([]string{"KIDSCAST_GOOGLE_REDIRECT_URL"}, ""),

		CacheEnabled:     getEnvBoolAny([]string{"KIDSCAST_CACHE_ENABLED"}, false),
		RedisAddr:        getEnvAny([]string{"KIDSCAST_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:    getEnvAny([]string{"KIDSCAST_REDIS_PASSWORD"}, ""),
		RedisDB:          getEnvIntAny([]string{"KIDSCAST_REDIS_DB"}, 0),
		PlaylistCacheTTL: time.Duration(getEnvIntAny([]string{"KIDSCAST_PLAYLIST_CACHE_TTL_SECONDS"}, 300)) * time.Second,

		NATSURL:     getEnvAny([]string{"KIDSCAST_NATS_URL"}, ""),
		NATSSubject: getEnvAny([]string{"KIDSCAST_NATS_SUBJECT"}, "kidscast.events"),

		LaunchBrowser: getEnvBoolAny([]string{"KIDSCAST_LAUNCH_BROWSER"}, false),
		BrowserBin:    getEnvAny([]string{"KIDSCAST_BROWSER_BIN"}, ""),
		DisplayURL:    getEnvAny([]string{"KIDSCAST_DISPLAY_URL"}, ""),

		TracingEnabled:    getEnvBoolAny([]string{"KIDSCAST_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"KIDSCAST_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"KIDSCAST_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPPort)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = cfg.BaseURL + "/auth/callback"
	}
	if cfg.DisplayURL == "" {
		cfg.DisplayURL = cfg.BaseURL + "/display"
	}

	production := strings.EqualFold(cfg.Environment, "production")
	if cfg.JWTSigningKey == "" {
		if production {
			return nil, fmt.Errorf("KIDSCAST_JWT_SIGNING_KEY must be provided in production")
		}
		cfg.JWTSigningKey = DevJWTSigningKey
	}
	if production && cfg.JWTSigningKey == DevJWTSigningKey {
		return nil, fmt.Errorf("KIDSCAST_JWT_SIGNING_KEY must be set to a non-default value in production")
	}

	switch cfg.SpeechPrimary {
	case SpeechGoogle, SpeechPolly:
	case SpeechProxy:
		if cfg.TTSProxyURL == "" {
			return nil, fmt.Errorf("KIDSCAST_TTS_PROXY_URL must be provided when KIDSCAST_SPEECH_PRIMARY=proxy")
		}
	default:
		return nil, fmt.Errorf("unsupported speech provider %q", cfg.SpeechPrimary)
	}

	switch cfg.AudioStore {
	case AudioStoreMemory:
	case AudioStoreS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("KIDSCAST_S3_BUCKET must be provided when KIDSCAST_AUDIO_STORE=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported audio store %q", cfg.AudioStore)
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid KIDSCAST_HTTP_PORT %d", cfg.HTTPPort)
	}

	return cfg, nil
}

// GoogleSignInEnabled reports whether OAuth client credentials are configured.
func (c *Config) GoogleSignInEnabled() bool {
	return c != nil && c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
