package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"ragbase/internal/fault"
)

type Config struct {
	// Ledger storage (Postgres)
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"ragbase"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"ragbase"`

	// Vector store
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	IndexName      string `envconfig:"INDEX_NAME" default:"GeneralGuides"`

	// Messaging
	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	// Model selectors, "provider/model-name" form
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini/gemini-embedding-001"`
	QueryModel     string `envconfig:"QUERY_MODEL" default:"gemini/gemini-2.0-flash"`
	ResponseModel  string `envconfig:"RESPONSE_MODEL" default:"gemini/gemini-2.0-flash"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`

	// Indexing
	ForceUpdate bool `envconfig:"FORCE_UPDATE" default:"false"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Workers
	EnableIngestWorker bool   `envconfig:"ENABLE_INGEST_WORKER" default:"true"`
	MigrationPath      string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

// knownProviders are the capability providers the registry can construct.
// Keep in sync with the registry wiring in internal/app.
var knownProviders = map[string]bool{
	"gemini": true,
	"openai": true,
}

func Load() (*Config, error) {
	// Env vars may also be set in the shell, so a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		return fault.Configuration("DB_HOST, DB_USER and DB_NAME are required", nil)
	}
	if c.IndexName == "" {
		return fault.Configuration("INDEX_NAME is required", nil)
	}
	for _, selector := range []string{c.EmbeddingModel, c.QueryModel, c.ResponseModel} {
		if _, _, err := SplitModelSelector(selector); err != nil {
			return err
		}
	}
	return nil
}

// SplitModelSelector parses a "provider/model-name" selector and rejects
// unknown providers. Validation happens at startup so a bad selector never
// surfaces mid-request.
func SplitModelSelector(selector string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(selector, "/")
	if !ok || provider == "" || model == "" {
		return "", "", fault.Configuration(fmt.Sprintf("invalid model selector %q, want provider/model-name", selector), nil)
	}
	if !knownProviders[provider] {
		return "", "", fault.Configuration(fmt.Sprintf("unsupported provider %q in selector %q", provider, selector), nil)
	}
	return provider, model, nil
}
