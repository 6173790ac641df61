package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the relay. It is built once at
// startup and passed by value or pointer to components; nothing mutates it.
type Config struct {
	App          AppConfig
	Logger       LoggerConfig
	LLM          LLMConfig
	Desk         DeskConfig
	Extraction   ExtractionConfig
	Auth         AuthConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	MaxUploadMB           int
	CORSAllowedOrigins    string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// LLMConfig holds the chat-completion endpoint settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	RateLimit      float64
	RateBurst      int
	TimeoutSeconds int
}

// DeskConfig holds helpdesk OAuth credentials and tenant constants.
type DeskConfig struct {
	ClientID                  string
	ClientSecret              string
	RedirectURI               string
	RefreshToken              string
	TokenURL                  string
	APIBaseURL                string
	OrgID                     string
	DepartmentID              string
	ContactID                 string
	ProductID                 string
	ModelName                 string
	SeverityPercentage        string
	Language                  string
	Category                  string
	RefetchTokenPerAttachment bool
	TimeoutSeconds            int
}

// ExtractionConfig selects the extraction profile.
type ExtractionConfig struct {
	Profile      string
	ProfilesFile string
}

// AuthConfig defines inbound authentication parameters. An empty secret
// leaves the relay endpoints open.
type AuthConfig struct {
	JWTSecret string
}

// NotificationConfig holds the optional event webhook.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	rateLimit, err := getEnvAsFloat("LLM_RATE_LIMIT", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "desk-relay"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", getEnv("PORT", "3000")),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 0),
			MaxUploadMB:           getEnvAsInt("MAX_UPLOAD_MB", 20),
			CORSAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		LLM: LLMConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			BaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:          os.Getenv("LLM_MODEL"),
			RateLimit:      rateLimit,
			RateBurst:      getEnvAsInt("LLM_RATE_BURST", 1),
			TimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 0),
		},
		Desk: DeskConfig{
			ClientID:                  os.Getenv("ZOHO_CLIENT_ID"),
			ClientSecret:              os.Getenv("ZOHO_CLIENT_SECRET"),
			RedirectURI:               os.Getenv("ZOHO_REDIRECT_URI"),
			RefreshToken:              os.Getenv("ZOHO_REFRESH_TOKEN"),
			TokenURL:                  os.Getenv("ZOHO_TOKEN_URL"),
			APIBaseURL:                getEnv("ZOHO_DESK_API_URL", "https://desk.zoho.com/api/v1"),
			OrgID:                     os.Getenv("ZOHO_ORG_ID"),
			DepartmentID:              os.Getenv("DESK_DEPARTMENT_ID"),
			ContactID:                 os.Getenv("DESK_CONTACT_ID"),
			ProductID:                 os.Getenv("DESK_PRODUCT_ID"),
			ModelName:                 os.Getenv("DESK_MODEL_NAME"),
			SeverityPercentage:        getEnv("DESK_SEVERITY_PERCENTAGE", "0.0"),
			Language:                  getEnv("DESK_LANGUAGE", "English"),
			Category:                  getEnv("DESK_CATEGORY", "general"),
			RefetchTokenPerAttachment: getEnvAsBool("DESK_REFETCH_TOKEN_PER_ATTACHMENT", false),
			TimeoutSeconds:            getEnvAsInt("DESK_TIMEOUT_SECONDS", 0),
		},
		Extraction: ExtractionConfig{
			Profile:      getEnv("EXTRACTION_PROFILE", "basic"),
			ProfilesFile: os.Getenv("EXTRACTION_PROFILES_FILE"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("RELAY_JWT_SECRET"),
		},
		Notification: NotificationConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
	}

	return cfg, nil
}

// RequiredSetting pairs an environment key with its loaded value.
type RequiredSetting struct {
	Key    string
	Value  string
	Secret bool
}

// Required lists the settings the relay needs to reach its dependencies.
func (c *Config) Required() []RequiredSetting {
	return []RequiredSetting{
		{Key: "OPENAI_API_KEY", Value: c.LLM.APIKey, Secret: true},
		{Key: "ZOHO_CLIENT_ID", Value: c.Desk.ClientID},
		{Key: "ZOHO_CLIENT_SECRET", Value: c.Desk.ClientSecret, Secret: true},
		{Key: "ZOHO_REDIRECT_URI", Value: c.Desk.RedirectURI},
		{Key: "ZOHO_REFRESH_TOKEN", Value: c.Desk.RefreshToken, Secret: true},
		{Key: "ZOHO_TOKEN_URL", Value: c.Desk.TokenURL},
		{Key: "ZOHO_ORG_ID", Value: c.Desk.OrgID},
	}
}

// Missing returns the keys of required settings that are empty.
func (c *Config) Missing() []string {
	var missing []string
	for _, s := range c.Required() {
		if strings.TrimSpace(s.Value) == "" {
			missing = append(missing, s.Key)
		}
	}
	return missing
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// BodyLimit returns the inbound body limit in bytes.
func (a AppConfig) BodyLimit() int {
	if a.MaxUploadMB <= 0 {
		return 4 << 20
	}
	return a.MaxUploadMB << 20
}

// Timeout returns the outbound client timeout; zero means no timeout.
func (l LLMConfig) Timeout() time.Duration {
	return seconds(l.TimeoutSeconds)
}

// Timeout returns the outbound client timeout; zero means no timeout.
func (d DeskConfig) Timeout() time.Duration {
	return seconds(d.TimeoutSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
