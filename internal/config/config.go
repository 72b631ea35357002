package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ReviewAspects/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "ABSA_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	logFormatEnv      = "LOG_FORMAT"
	llmProviderEnv    = "LLM_PROVIDER"
	llmAPIKeyEnv      = "LLM_API_KEY"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	geminiAPIKeyEnv   = "GEMINI_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	llmEndpointEnv    = "LLM_ENDPOINT"
	warehouseDrvEnv   = "WAREHOUSE_DRIVER"
	warehouseDSNEnv   = "WAREHOUSE_DSN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	chatAddrEnv       = "CHAT_ADDR"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1"
	defaultOpenAIModel    = "gpt-4o-mini"
)

// Provider names accepted by LLMConfig.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Warehouse drivers accepted by WarehouseConfig.Driver.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	LLM           LLMConfig          `yaml:"llm"`
	Warehouse     WarehouseConfig    `yaml:"warehouse"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Ledger        LedgerConfig       `yaml:"ledger"`
	Notifications NotificationConfig `yaml:"notifications"`
	Chat          ChatConfig         `yaml:"chat"`
}

// LoggingConfig selects level and output format (json or console).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig defines how to contact the language model.
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	Temperature       float64       `yaml:"temperature"`
	TopP              float64       `yaml:"topP"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
}

// WarehouseConfig describes the warehouse connection.
type WarehouseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// PipelineConfig describes source, target and artifacts of the incremental pass.
type PipelineConfig struct {
	SourceQuery   string   `yaml:"sourceQuery"`
	TargetTable   string   `yaml:"targetTable"`
	IDColumn      string   `yaml:"idColumn"`
	ReviewColumns []string `yaml:"reviewColumns"`
	ArtifactDir   string   `yaml:"artifactDir"`
	StripMarkup   *bool    `yaml:"stripMarkup"`
}

// SchedulerConfig defines when the pass should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LedgerConfig points at the SQLite run history; an empty path disables it.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// ChatConfig configures the interactive front-end.
type ChatConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads .env, the YAML configuration (if present) and applies environment overrides.
// An explicit path takes precedence over ABSA_CONFIG.
func Load(path string) Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.LLM.dropForeignDefaults()
	cfg.bindTimezone()

	return cfg
}

// Validate reports settings that make the incremental pass impossible.
func (c Config) Validate() error {
	if len(c.Pipeline.ReviewColumns) == 0 {
		return fmt.Errorf("%w: pipeline.reviewColumns is empty", domain.ErrConfiguration)
	}
	if c.Pipeline.TargetTable == "" {
		return fmt.Errorf("%w: pipeline.targetTable is empty", domain.ErrConfiguration)
	}
	if c.Pipeline.SourceQuery == "" {
		return fmt.Errorf("%w: pipeline.sourceQuery is empty", domain.ErrConfiguration)
	}
	switch c.Warehouse.Driver {
	case DriverDuckDB, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown warehouse driver %q", domain.ErrConfiguration, c.Warehouse.Driver)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", domain.ErrConfiguration, c.LLM.Provider)
	}
	return nil
}

// StripMarkupEnabled reports whether HTML in review fields should be reduced to text.
// Review text is passed through unchanged unless stripMarkup is set.
func (p PipelineConfig) StripMarkupEnabled() bool {
	return p.StripMarkup != nil && *p.StripMarkup
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(llmEndpointEnv); v != "" {
		c.LLM.Endpoint = v
	}

	keyEnv := openAIAPIKeyEnv
	if c.LLM.Provider == ProviderGemini {
		keyEnv = geminiAPIKeyEnv
	}
	if v := os.Getenv(keyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(warehouseDrvEnv); v != "" {
		c.Warehouse.Driver = strings.ToLower(v)
	}
	if v := os.Getenv(warehouseDSNEnv); v != "" {
		c.Warehouse.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatAddrEnv); v != "" {
		c.Chat.Addr = v
	}
}

// dropForeignDefaults clears the OpenAI endpoint and model defaults when another
// provider is selected without its own values.
func (l *LLMConfig) dropForeignDefaults() {
	if l.Provider == ProviderOpenAI {
		return
	}
	if l.Endpoint == defaultOpenAIEndpoint {
		l.Endpoint = ""
	}
	if l.Model == defaultOpenAIModel {
		l.Model = ""
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.LLM.Provider != "" {
		base.LLM.Provider = strings.ToLower(override.LLM.Provider)
	}
	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Temperature > 0 {
		base.LLM.Temperature = override.LLM.Temperature
	}
	if override.LLM.TopP > 0 {
		base.LLM.TopP = override.LLM.TopP
	}
	if override.LLM.Timeout > 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}
	if override.LLM.RequestsPerSecond > 0 {
		base.LLM.RequestsPerSecond = override.LLM.RequestsPerSecond
	}

	if override.Warehouse.Driver != "" {
		base.Warehouse.Driver = strings.ToLower(override.Warehouse.Driver)
	}
	if override.Warehouse.DSN != "" {
		base.Warehouse.DSN = override.Warehouse.DSN
	}

	if override.Pipeline.SourceQuery != "" {
		base.Pipeline.SourceQuery = override.Pipeline.SourceQuery
	}
	if override.Pipeline.TargetTable != "" {
		base.Pipeline.TargetTable = override.Pipeline.TargetTable
	}
	if override.Pipeline.IDColumn != "" {
		base.Pipeline.IDColumn = override.Pipeline.IDColumn
	}
	if override.Pipeline.ReviewColumns != nil {
		base.Pipeline.ReviewColumns = override.Pipeline.ReviewColumns
	}
	if override.Pipeline.ArtifactDir != "" {
		base.Pipeline.ArtifactDir = override.Pipeline.ArtifactDir
	}
	if override.Pipeline.StripMarkup != nil {
		base.Pipeline.StripMarkup = override.Pipeline.StripMarkup
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Ledger.Path != "" {
		base.Ledger.Path = override.Ledger.Path
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Chat.Addr != "" {
		base.Chat.Addr = override.Chat.Addr
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Endpoint:    defaultOpenAIEndpoint,
			Model:       defaultOpenAIModel,
			Temperature: 0.1,
			TopP:        1,
			Timeout:     60 * time.Second,
		},
		Warehouse: WarehouseConfig{Driver: DriverDuckDB, DSN: "data/warehouse.duckdb"},
		Pipeline: PipelineConfig{
			SourceQuery:   "SELECT * FROM dim_review",
			TargetTable:   "dim_review_absa",
			IDColumn:      "review_id",
			ReviewColumns: []string{"review_title", "review_description"},
			ArtifactDir:   "data",
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Ledger:    LedgerConfig{Path: "data/runs.db"},
		Chat:      ChatConfig{Addr: ":8000"},
	}
}
