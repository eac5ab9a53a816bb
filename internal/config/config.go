// Package config defines the configuration contract and handles loading and validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tg_link_relay_bot/internal/domain"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken       = "TELEGRAM_TOKEN"
	KeyBotOwner            = "BOT_OWNER"
	KeyRequiredChannel     = "REQUIRED_CHANNEL"
	KeyArchiveChannel      = "ARCHIVE_CHANNEL"
	KeyJoinURL             = "JOIN_URL"
	KeyOperatorCountButton = "OPERATOR_COUNT_BUTTON"
	KeyViewerURLTemplate   = "VIEWER_URL_TEMPLATE"
	KeyDeveloperURL        = "DEVELOPER_URL"
	KeyTelegramAPIURL      = "TELEGRAM_API_URL"
	KeyHTTPClientTimeout   = "HTTP_CLIENT_TIMEOUT"
	KeyAppEnv              = "APP_ENV"
	KeyLogLevel            = "LOG_LEVEL"
	KeyHTTPPort            = "HTTP_PORT"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv            = EnvProduction
	DefaultLogLevel          = "info"
	DefaultHTTPPort          = 8080
	DefaultViewerURLTemplate = "https://terabox.com/sharing/embed?surl=%s"
	DefaultDeveloperURL      = "https://t.me/+qdLjzK5bWoViOWQ1"
	DefaultTelegramAPIURL    = "https://api.telegram.org"
	DefaultHTTPClientTimeout = 30 * time.Second

	joinURLPrefix = "https://t.me/"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyBotOwner,
		Example:     "123456789",
		Required:    true,
		Description: "Operator Telegram user_id; receives new-user notifications and may view the user count.",
	},
	{
		Key:         KeyRequiredChannel,
		Example:     "my_channel",
		Required:    true,
		Description: "Channel or group users must belong to. Username (leading @ optional) or numeric chat id.",
		Notes:       "The bot must be an administrator there for membership queries to succeed.",
	},
	{
		Key:         KeyArchiveChannel,
		Example:     "@my_archive / -1001234567890",
		Description: "Destination recording every resolved request.",
		Notes:       "Leave unset to disable archive notifications.",
	},
	{
		Key:         KeyJoinURL,
		Example:     joinURLPrefix + "my_channel",
		Default:     joinURLPrefix + "<" + KeyRequiredChannel + ">",
		Description: "Link behind the join button of the membership prompt.",
		Notes:       "Required when " + KeyRequiredChannel + " is a numeric chat id.",
	},
	{
		Key:         KeyOperatorCountButton,
		Example:     "true / false",
		Default:     "true",
		Description: "Attach a user-count button to operator notifications.",
	},
	{
		Key:         KeyViewerURLTemplate,
		Example:     DefaultViewerURLTemplate,
		Default:     DefaultViewerURLTemplate,
		Description: "Viewer URL template; exactly one %s is replaced by the resource code.",
	},
	{
		Key:         KeyDeveloperURL,
		Example:     DefaultDeveloperURL,
		Default:     DefaultDeveloperURL,
		Description: "Target of the developer contact button.",
	},
	{
		Key:         KeyTelegramAPIURL,
		Example:     DefaultTelegramAPIURL,
		Default:     DefaultTelegramAPIURL,
		Description: "Bot API base URL; point it at a local Bot API server if you run one.",
	},
	{
		Key:         KeyHTTPClientTimeout,
		Example:     "30s",
		Default:     DefaultHTTPClientTimeout.String(),
		Description: "Timeout applied to viewer page fetches.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP liveness/metrics port.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken       string
	BotOwnerID          int64
	RequiredChannel     domain.Recipient
	ArchiveChannel      domain.Recipient
	JoinURL             string
	OperatorCountButton bool
	ViewerURLTemplate   string
	DeveloperURL        string
	TelegramAPIURL      string
	HTTPClientTimeout   time.Duration
	AppEnv              string
	LogLevel            string
	HTTPPort            int
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:              firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken:       strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		LogLevel:            firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:            DefaultHTTPPort,
		OperatorCountButton: true,
		ViewerURLTemplate:   firstNonEmpty(os.Getenv(KeyViewerURLTemplate), DefaultViewerURLTemplate),
		DeveloperURL:        firstNonEmpty(os.Getenv(KeyDeveloperURL), DefaultDeveloperURL),
		TelegramAPIURL:      strings.TrimRight(firstNonEmpty(os.Getenv(KeyTelegramAPIURL), DefaultTelegramAPIURL), "/"),
		HTTPClientTimeout:   DefaultHTTPClientTimeout,
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}

	ownerRaw := strings.TrimSpace(os.Getenv(KeyBotOwner))
	if ownerRaw == "" {
		missing = append(missing, KeyBotOwner)
	} else {
		ownerID, parseErr := strconv.ParseInt(ownerRaw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyBotOwner, parseErr)
		}
		if ownerID <= 0 {
			return Config{}, fmt.Errorf("invalid %s: must be a positive user id", KeyBotOwner)
		}
		cfg.BotOwnerID = ownerID
	}

	channelRaw := strings.TrimSpace(os.Getenv(KeyRequiredChannel))
	if channelRaw == "" {
		missing = append(missing, KeyRequiredChannel)
	} else {
		channel, ok := domain.ParseRecipient(channelRaw)
		if !ok {
			return Config{}, fmt.Errorf("invalid %s: %q is neither a username nor a chat id", KeyRequiredChannel, channelRaw)
		}
		cfg.RequiredChannel = channel
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if archiveRaw := strings.TrimSpace(os.Getenv(KeyArchiveChannel)); archiveRaw != "" {
		archive, ok := domain.ParseRecipient(archiveRaw)
		if !ok {
			return Config{}, fmt.Errorf("invalid %s: %q is neither a username nor a chat id", KeyArchiveChannel, archiveRaw)
		}
		cfg.ArchiveChannel = archive
	}

	joinURL, err := resolveJoinURL(strings.TrimSpace(os.Getenv(KeyJoinURL)), cfg.RequiredChannel)
	if err != nil {
		return Config{}, err
	}
	cfg.JoinURL = joinURL

	if raw := strings.TrimSpace(os.Getenv(KeyOperatorCountButton)); raw != "" {
		enabled, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyOperatorCountButton, parseErr)
		}
		cfg.OperatorCountButton = enabled
	}

	if strings.Count(cfg.ViewerURLTemplate, "%s") != 1 || strings.Count(cfg.ViewerURLTemplate, "%") != 1 {
		return Config{}, fmt.Errorf("invalid %s: must contain exactly one %%s verb", KeyViewerURLTemplate)
	}

	for key, raw := range map[string]string{
		KeyDeveloperURL:   cfg.DeveloperURL,
		KeyTelegramAPIURL: cfg.TelegramAPIURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	if raw := strings.TrimSpace(os.Getenv(KeyHTTPClientTimeout)); raw != "" {
		timeout, parseErr := time.ParseDuration(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPClientTimeout, parseErr)
		}
		if timeout <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPClientTimeout)
		}
		cfg.HTTPClientTimeout = timeout
	}

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// ArchiveEnabled reports whether resolved requests are copied to an archive channel.
func (c Config) ArchiveEnabled() bool {
	return !c.ArchiveChannel.IsZero()
}

// FormatRedacted renders the configuration for diagnostics with secrets masked.
func FormatRedacted(cfg Config) string {
	archive := "disabled"
	if cfg.ArchiveEnabled() {
		archive = cfg.ArchiveChannel.String()
	}

	lines := []string{
		"telegram_token: " + redactToken(cfg.TelegramToken),
		"bot_owner: " + strconv.FormatInt(cfg.BotOwnerID, 10),
		"required_channel: " + cfg.RequiredChannel.String(),
		"archive_channel: " + archive,
		"join_url: " + cfg.JoinURL,
		"operator_count_button: " + strconv.FormatBool(cfg.OperatorCountButton),
		"viewer_url_template: " + cfg.ViewerURLTemplate,
		"developer_url: " + cfg.DeveloperURL,
		"telegram_api_url: " + cfg.TelegramAPIURL,
		"http_client_timeout: " + cfg.HTTPClientTimeout.String(),
		"app_env: " + cfg.AppEnv,
		"log_level: " + cfg.LogLevel,
		"http_port: " + strconv.Itoa(cfg.HTTPPort),
	}

	return strings.Join(lines, "\n")
}

func redactToken(token string) string {
	if token == "" {
		return "(unset)"
	}
	if len(token) <= 4 {
		return "...redacted"
	}
	return token[:4] + "...redacted"
}

func resolveJoinURL(explicit string, channel domain.Recipient) (string, error) {
	if explicit != "" {
		if err := validateHTTPURL(explicit); err != nil {
			return "", fmt.Errorf("invalid %s: %w", KeyJoinURL, err)
		}
		return explicit, nil
	}

	if channel.Username == "" {
		return "", fmt.Errorf("%s is required when %s is a numeric chat id", KeyJoinURL, KeyRequiredChannel)
	}

	return joinURLPrefix + channel.Username, nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
