package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsCast/internal/domain"
	"NewsCast/internal/podcast"
	"NewsCast/internal/scanner"
)

const (
	configPathEnv      = "NEWSCAST_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	openAIBaseURLEnv   = "OPENAI_BASE_URL"
	anthropicKeyEnv    = "ANTHROPIC_API_KEY"
	generationModelEnv = "GENERATION_MODELS"
	r2EndpointEnv      = "R2_ENDPOINT"
	r2AccessKeyEnv     = "R2_ACCESS_KEY_ID"
	r2SecretKeyEnv     = "R2_SECRET_ACCESS_KEY"
	r2BucketEnv        = "R2_BUCKET"
	r2PublicURLEnv     = "R2_PUBLIC_BASE_URL"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	metricsAddrEnv     = "METRICS_ADDR"
	variantsEnv        = "GENERATION_VARIANTS"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	HTTP          HTTPConfig         `yaml:"http"`
	LLM           LLMConfig          `yaml:"llm"`
	Batches       BatchConfig        `yaml:"batches"`
	Intervals     IntervalConfig     `yaml:"intervals"`
	Judging       JudgingConfig      `yaml:"judging"`
	Generation    GenerationConfig   `yaml:"generation"`
	Roundup       RoundupConfig      `yaml:"roundup"`
	Podcast       PodcastConfig      `yaml:"podcast"`
	Storage       StorageConfig      `yaml:"storage"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Sources       []SourceConfig     `yaml:"sources"`
	Sites         []scanner.RuleSpec `yaml:"sites"`
	Projects      []domain.Project   `yaml:"projects"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig selects the SQL driver ("postgres" or "sqlite3") and DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// HTTPConfig governs outbound page fetching.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"userAgent"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
}

// LLMConfig defines how to contact model providers and which models to use.
type LLMConfig struct {
	BaseURL          string        `yaml:"baseUrl"`
	APIKey           string        `yaml:"apiKey"`
	AnthropicAPIKey  string        `yaml:"anthropicApiKey"`
	AnthropicBaseURL string        `yaml:"anthropicBaseUrl"`
	Timeout          time.Duration `yaml:"timeout"`
	ExtractionModel  string        `yaml:"extractionModel"`
	JudgeModel       string        `yaml:"judgeModel"`
	GenerationModels []string      `yaml:"generationModels"`
	SelectionModel   string        `yaml:"selectionModel"`
	RoundupModel     string        `yaml:"roundupModel"`
	TTSModel         string        `yaml:"ttsModel"`
	ImageModel       string        `yaml:"imageModel"`
	ImageSize        string        `yaml:"imageSize"`
	VoiceA           string        `yaml:"voiceA"`
	VoiceB           string        `yaml:"voiceB"`
	MaxInputChars    int           `yaml:"maxInputChars"`
}

// BatchConfig bounds how many rows each stage takes per poll.
type BatchConfig struct {
	Links    int `yaml:"links"`
	Articles int `yaml:"articles"`
	Extract  int `yaml:"extract"`
	Judge    int `yaml:"judge"`
	Generate int `yaml:"generate"`
	Select   int `yaml:"select"`
}

// IntervalConfig sets each stage's polling period; zero disables the stage.
type IntervalConfig struct {
	Scrape   time.Duration `yaml:"scrape"`
	Links    time.Duration `yaml:"links"`
	Articles time.Duration `yaml:"articles"`
	Extract  time.Duration `yaml:"extract"`
	Judge    time.Duration `yaml:"judge"`
	Generate time.Duration `yaml:"generate"`
	Select   time.Duration `yaml:"select"`
	Roundup  time.Duration `yaml:"roundup"`
	Publish  time.Duration `yaml:"publish"`
}

// FormatBand assigns formats to every score at or above MinScore.
type FormatBand struct {
	MinScore int      `yaml:"minScore"`
	Formats  []string `yaml:"formats"`
}

// JudgingConfig holds the score-to-format policy table.
type JudgingConfig struct {
	Bands []FormatBand `yaml:"bands"`
}

// GenerationConfig controls the model/variant fan-out.
type GenerationConfig struct {
	Variants        int               `yaml:"variants"`
	DefaultPlatform string            `yaml:"defaultPlatform"`
	Platforms       map[string]string `yaml:"platforms"`
}

// RoundupConfig controls story selection for audio roundups.
type RoundupConfig struct {
	Size            int           `yaml:"size"`
	Window          time.Duration `yaml:"window"`
	MinScore        int           `yaml:"minScore"`
	DefaultLanguage string        `yaml:"defaultLanguage"`
	Platform        string        `yaml:"platform"`
	// ScopeToProject limits each project's roundup to its own articles.
	ScopeToProject bool `yaml:"scopeToProject"`
}

// PodcastConfig controls feed publication.
type PodcastConfig struct {
	MaxEpisodes  int                     `yaml:"maxEpisodes"`
	ArtworkSize  int                     `yaml:"artworkSize"`
	MediaDir     string                  `yaml:"mediaDir"`
	EnableTTS    bool                    `yaml:"enableTts"`
	EnableImages bool                    `yaml:"enableImages"`
	OwnerEmail   string                  `yaml:"ownerEmail"`
	BytesPerSec  int                     `yaml:"bytesPerSecond"`
	Shows        map[string]podcast.Meta `yaml:"shows"`
}

// StorageConfig describes the S3-compatible bucket for published artifacts.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	PublicBaseURL string `yaml:"publicBaseUrl"`
	UseSSL        bool   `yaml:"useSsl"`
}

// Enabled reports whether uploads can be attempted.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != "" && s.AccessKey != "" && s.SecretKey != "" && s.PublicBaseURL != ""
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// MetricsConfig sets the Prometheus listen address; empty disables it.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// SourceConfig is one category listing page to scrape. Articles found
// through it are attributed to Project when set.
type SourceConfig struct {
	Site    string `yaml:"site"`
	URL     string `yaml:"url"`
	Project string `yaml:"project"`
}

// Load reads YAML configuration (if present) over defaults and applies environment overrides.
// An explicit path wins over NEWSCAST_CONFIG.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString := func(env string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}

	setString(logLevelEnv, &c.Logging.Level)
	setString(databaseDriverEnv, &c.Database.Driver)
	setString(databaseDSNEnv, &c.Database.DSN)
	setString(openAIAPIKeyEnv, &c.LLM.APIKey)
	setString(openAIBaseURLEnv, &c.LLM.BaseURL)
	setString(anthropicKeyEnv, &c.LLM.AnthropicAPIKey)
	setString(r2EndpointEnv, &c.Storage.Endpoint)
	setString(r2AccessKeyEnv, &c.Storage.AccessKey)
	setString(r2SecretKeyEnv, &c.Storage.SecretKey)
	setString(r2BucketEnv, &c.Storage.Bucket)
	setString(r2PublicURLEnv, &c.Storage.PublicBaseURL)
	setString(telegramTokenEnv, &c.Notifications.Telegram.BotToken)
	setString(telegramChatIDEnv, &c.Notifications.Telegram.ChatID)
	setString(metricsAddrEnv, &c.Metrics.Address)

	if v := os.Getenv(generationModelEnv); v != "" {
		var models []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		if len(models) > 0 {
			c.LLM.GenerationModels = models
		}
	}

	if v := os.Getenv(variantsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generation.Variants = n
		}
	}
}

// Validate reports configuration errors that would make stages misbehave.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want postgres or sqlite3", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if len(c.LLM.GenerationModels) == 0 {
		errs = append(errs, errors.New("llm.generationModels must name at least one model"))
	}
	if c.Generation.Variants < 1 {
		errs = append(errs, fmt.Errorf("generation.variants %d: must be at least 1", c.Generation.Variants))
	}
	for i, band := range c.Judging.Bands {
		for _, f := range band.Formats {
			if _, ok := domain.ParseContentType(f); !ok {
				errs = append(errs, fmt.Errorf("judging.bands[%d]: unknown format %q", i, f))
			}
		}
	}
	if c.Roundup.Size < 1 {
		errs = append(errs, errors.New("roundup.size must be positive"))
	}
	if c.Podcast.ArtworkSize < 1 {
		errs = append(errs, errors.New("podcast.artworkSize must be positive"))
	}

	return errors.Join(errs...)
}

// PlatformFor returns the publishing platform for a generated format.
func (g GenerationConfig) PlatformFor(ct domain.ContentType) string {
	if p, ok := g.Platforms[string(ct)]; ok && p != "" {
		return p
	}
	return g.DefaultPlatform
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "file:newscast.db?_foreign_keys=on"},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         defaultUserAgent,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		LLM: LLMConfig{
			BaseURL:          "https://api.openai.com/v1",
			AnthropicBaseURL: "https://api.anthropic.com",
			Timeout:          60 * time.Second,
			ExtractionModel:  "gpt-5-nano",
			JudgeModel:       "gpt-4.1-mini",
			GenerationModels: []string{"gpt-4.1-mini"},
			SelectionModel:   "gpt-4.1-mini",
			RoundupModel:     "gpt-4.1-mini",
			TTSModel:         "gpt-4o-mini-tts",
			ImageModel:       "gpt-image-1",
			ImageSize:        "1024x1024",
			VoiceA:           "alloy",
			VoiceB:           "nova",
			MaxInputChars:    20000,
		},
		Batches: BatchConfig{Links: 50, Articles: 20, Extract: 3, Judge: 20, Generate: 10, Select: 20},
		Intervals: IntervalConfig{
			Scrape:   time.Hour,
			Links:    10 * time.Minute,
			Articles: 10 * time.Minute,
			Extract:  10 * time.Minute,
			Judge:    15 * time.Minute,
			Generate: 20 * time.Minute,
			Select:   30 * time.Minute,
			Roundup:  24 * time.Hour,
			Publish:  6 * time.Hour,
		},
		Judging: JudgingConfig{Bands: []FormatBand{
			{MinScore: 8, Formats: []string{"headline", "carousel", "video", "podcast"}},
			{MinScore: 6, Formats: []string{"carousel", "headline"}},
			{MinScore: 4, Formats: []string{"headline"}},
		}},
		Generation: GenerationConfig{
			Variants:        1,
			DefaultPlatform: "instagram",
			Platforms:       map[string]string{"video": "tiktok", "podcast": "youtube"},
		},
		Roundup: RoundupConfig{Size: 5, Window: 24 * time.Hour, MinScore: 0, DefaultLanguage: "en", Platform: "youtube"},
		Podcast: PodcastConfig{
			MaxEpisodes: 30,
			ArtworkSize: 3000,
			MediaDir:    "media",
			BytesPerSec: 16000,
			OwnerEmail:  "feeds@oneplace.example",
		},
		Storage: StorageConfig{Region: "auto", UseSSL: true},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
		},
		Sources: []SourceConfig{
			{Site: "topky.sk", URL: "https://www.topky.sk/se/15/Prominenti"},
			{Site: "cas.sk", URL: "https://www.cas.sk/r/prominenti"},
			{Site: "pluska.sk", URL: "https://www1.pluska.sk/r/soubiznis"},
			{Site: "refresher.sk", URL: "https://refresher.sk/osobnosti"},
			{Site: "startitup.sk", URL: "https://www.startitup.sk/kategoria/kultura/"},
		},
		Sites: defaultSites(),
	}
}

const slugTail = `[^"'\s<>?#]+`

func defaultSites() []scanner.RuleSpec {
	return []scanner.RuleSpec{
		{
			Domain:  "topky.sk",
			BaseURL: "https://www.topky.sk",
			Allow:   []string{`(?i)^https?://(?:www\.)?topky\.sk/cl/\d+/\d+/` + slugTail},
			Extract: []string{`(?i)https?://(?:www\.)?topky\.sk/cl/\d+/\d+/` + slugTail},
		},
		{
			Domain:           "cas.sk",
			BaseURL:          "https://www.cas.sk",
			HrefOnly:         true,
			DropTrailingDash: true,
			Allow:            []string{`(?i)^https?://(?:www\.)?cas\.sk/(?:premium/)?prominenti/` + slugTail},
			Extract:          []string{`(?i)https?://(?:www\.)?cas\.sk/(?:premium/)?prominenti/` + slugTail},
		},
		{
			Domain:  "pluska.sk",
			BaseURL: "https://www1.pluska.sk",
			Allow:   []string{`(?i)^https?://(?:[a-z0-9-]+\.)?pluska\.sk/soubiznis/` + slugTail},
			Extract: []string{`(?i)https?://(?:[a-z0-9-]+\.)?pluska\.sk/soubiznis/` + slugTail},
			Deny:    []string{`(?i)/cookie`, `(?i)/predplatne`, `(?i)/r/soubiznis`},
		},
		{
			Domain:  "refresher.sk",
			BaseURL: "https://refresher.sk",
			Allow:   []string{`(?i)^https?://refresher\.sk/\d+` + slugTail},
			Extract: []string{`(?i)https?://refresher\.sk/\d+` + slugTail},
			Deny:    []string{`(?i)\.(?:js|css|jpe?g|png|gif|webp|svg|woff2?)$`},
		},
		{
			Domain:  "startitup.sk",
			BaseURL: "https://www.startitup.sk",
			Allow:   []string{`(?i)^https?://(?:www\.)?startitup\.sk/` + slugTail},
			Extract: []string{`(?i)https?://(?:www\.)?startitup\.sk/` + slugTail},
			Deny: []string{
				`(?i)startitup\.sk/(?:kategoria|autor|tag|wp-|videa|video|feed)`,
				`(?i)/wp-content`,
			},
		},
	}
}
