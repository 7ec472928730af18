package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

var ErrMissingSetting = errors.New("missing required setting")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type Cfg struct {
	// Delivery
	TelegramToken   string
	TelegramChannel string
	LinkButtonText  string
	PublishInterval time.Duration

	// Summarization
	GeminiKey       string
	GeminiModel     string
	OpenAIKey       string
	OpenAIModel     string
	SummaryLanguage string
	AIMaxAttempts   int
	AIBackoff       time.Duration

	// Link store
	StoreBackend string
	DBPath       string
	RedisAddr    string
	RedisKey     string

	// Pipeline pacing
	FeedsFile string
	PostDelay time.Duration
	IdleDelay time.Duration
	SkipDelay time.Duration

	// Enrichment
	MinImageWidth  int
	MinImageHeight int
	MaxTextLength  int
	Extractor      string
	FeedTimeout    time.Duration
	PageTimeout    time.Duration
	ImageTimeout   time.Duration
	UserAgent      string

	// Application metadata
	StatusAddr string
	Debug      bool
	LogFormat  string
	Version    string
}

type rawCfg struct {
	TelegramToken   string `long:"telegram-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token (required)"`
	TelegramChannel string `long:"telegram-channel" env:"TELEGRAM_CHANNEL_ID" description:"Target channel, @username or numeric id (required)"`
	LinkButtonText  string `long:"link-button" env:"LINK_BUTTON_TEXT" default:"🔗 Read the source" description:"Text of the link button under each post"`
	PublishInterval int    `long:"publish-interval" env:"PUBLISH_INTERVAL_MS" default:"3000" description:"Minimum interval between channel messages in milliseconds"`

	GeminiKey       string `long:"gemini-key" env:"GEMINI_API_KEY" description:"Gemini API key (required)"`
	GeminiModel     string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-1.5-pro-latest" description:"Gemini model name"`
	OpenAIKey       string `long:"openai-key" env:"OPENAI_API_KEY" description:"OpenAI API key (required)"`
	OpenAIModel     string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o" description:"OpenAI model name"`
	SummaryLanguage string `long:"summary-language" env:"SUMMARY_LANGUAGE" default:"Russian" description:"Language of generated posts"`
	AIMaxAttempts   int    `long:"ai-attempts" env:"AI_MAX_ATTEMPTS" default:"3" description:"Attempts against the primary provider"`
	AIBackoff       int    `long:"ai-backoff" env:"AI_BACKOFF_SECONDS" default:"10" description:"Base backoff between primary attempts in seconds"`

	StoreBackend string `long:"store" env:"STORE_BACKEND" default:"sqlite" choice:"sqlite" choice:"redis" description:"Link store backend"`
	DBPath       string `long:"db-path" env:"DB_PATH" default:"./news_database.sqlite" description:"SQLite database path"`
	RedisAddr    string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address"`
	RedisKey     string `long:"redis-key" env:"REDIS_KEY" default:"herald:posted_articles" description:"Redis hash holding published links"`

	FeedsFile string `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yml" description:"YAML file listing feed sources"`
	PostDelay int    `long:"post-delay" env:"POST_DELAY_SECONDS" default:"900" description:"Pause after a published post in seconds"`
	IdleDelay int    `long:"idle-delay" env:"IDLE_DELAY_SECONDS" default:"300" description:"Pause between polling cycles in seconds"`
	SkipDelay int    `long:"skip-delay" env:"SKIP_DELAY_SECONDS" default:"5" description:"Pause after a failed summary in seconds"`

	MinImageWidth  int    `long:"min-image-width" env:"MIN_IMAGE_WIDTH" default:"400" description:"Minimum lead image width in pixels"`
	MinImageHeight int    `long:"min-image-height" env:"MIN_IMAGE_HEIGHT" default:"200" description:"Minimum lead image height in pixels"`
	MaxTextLength  int    `long:"max-text-length" env:"MAX_TEXT_LENGTH" default:"12000" description:"Maximum article text length in characters"`
	Extractor      string `long:"extractor" env:"CONTENT_EXTRACTOR" default:"selectors" choice:"selectors" choice:"readability" description:"Article text extraction strategy"`
	FeedTimeout    int    `long:"feed-timeout" env:"FEED_TIMEOUT" default:"20" description:"Feed request timeout in seconds"`
	PageTimeout    int    `long:"page-timeout" env:"PAGE_TIMEOUT" default:"15" description:"Article page request timeout in seconds"`
	ImageTimeout   int    `long:"image-timeout" env:"IMAGE_TIMEOUT" default:"10" description:"Image probe timeout in seconds"`
	UserAgent      string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests"`

	StatusAddr string `long:"status-addr" env:"STATUS_ADDR" default:":8080" description:"Status API listen address, empty disables it"`
	Debug      bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFormat  string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
}

// LoadDotEnv exports the variables of an optional .env file without
// overriding the environment.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load parses command-line arguments and the environment. It returns nil
// without error when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		TelegramToken:   raw.TelegramToken,
		TelegramChannel: raw.TelegramChannel,
		LinkButtonText:  raw.LinkButtonText,
		PublishInterval: time.Duration(raw.PublishInterval) * time.Millisecond,
		GeminiKey:       raw.GeminiKey,
		GeminiModel:     raw.GeminiModel,
		OpenAIKey:       raw.OpenAIKey,
		OpenAIModel:     raw.OpenAIModel,
		SummaryLanguage: raw.SummaryLanguage,
		AIMaxAttempts:   raw.AIMaxAttempts,
		AIBackoff:       seconds(raw.AIBackoff),
		StoreBackend:    raw.StoreBackend,
		DBPath:          raw.DBPath,
		RedisAddr:       raw.RedisAddr,
		RedisKey:        raw.RedisKey,
		FeedsFile:       raw.FeedsFile,
		PostDelay:       seconds(raw.PostDelay),
		IdleDelay:       seconds(raw.IdleDelay),
		SkipDelay:       seconds(raw.SkipDelay),
		MinImageWidth:   raw.MinImageWidth,
		MinImageHeight:  raw.MinImageHeight,
		MaxTextLength:   raw.MaxTextLength,
		Extractor:       raw.Extractor,
		FeedTimeout:     seconds(raw.FeedTimeout),
		PageTimeout:     seconds(raw.PageTimeout),
		ImageTimeout:    seconds(raw.ImageTimeout),
		UserAgent:       cmp.Or(raw.UserAgent, defaultUserAgent),
		StatusAddr:      raw.StatusAddr,
		Debug:           raw.Debug,
		LogFormat:       raw.LogFormat,
		Version:         GetVersion(),
	}

	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c *Cfg) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"TELEGRAM_BOT_TOKEN", c.TelegramToken},
		{"TELEGRAM_CHANNEL_ID", c.TelegramChannel},
		{"GEMINI_API_KEY", c.GeminiKey},
		{"OPENAI_API_KEY", c.OpenAIKey},
	}

	var missing []string
	for _, setting := range required {
		if strings.TrimSpace(setting.value) == "" {
			missing = append(missing, setting.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}

	if c.PublishInterval <= 0 {
		return fmt.Errorf("publish interval must be positive")
	}
	if c.AIMaxAttempts < 1 {
		return fmt.Errorf("AI attempts must be at least 1")
	}

	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
