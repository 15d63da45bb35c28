package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/tenderwatch/internal/scheduler"
	"github.com/starford/tenderwatch/internal/scraper"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Notification drivers.
const (
	NotifyDriverSMTP   = "smtp"
	NotifyDriverResend = "resend"
	NotifyDriverNoop   = "noop"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Data     DataConfig        `yaml:"data"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Scraper  ScraperConfig     `yaml:"scraper"`
	Notify   NotifyConfig      `yaml:"notify"`
	Feeds    FeedsConfig       `yaml:"feeds"`
	Schedule ScheduleConfig    `yaml:"schedule"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Data, &c.SQLite, &c.Auth, &c.Scraper, &c.Notify, &c.Feeds, &c.Schedule,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// Timezone deadlines are interpreted in, e.g. "Europe/Lisbon".
	Timezone string `yaml:"timezone"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("app: timezone: %w", err)
	}
	return nil
}

// Location resolves Timezone. Empty means the host's local zone.
func (c *ApplicationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig points at the directory holding the JSON collections,
// snapshots and rendered feeds.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// SQLiteConfig holds SQLite archive configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ScraperConfig configures the gazette scraper.
type ScraperConfig struct {
	FeedURL        string        `yaml:"feed_url"`
	Renderer       string        `yaml:"renderer"`
	UserAgent      string        `yaml:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RenderTimeout  time.Duration `yaml:"render_timeout"`
	Delay          time.Duration `yaml:"delay"`
	MaxItems       int           `yaml:"max_items"`
}

// Validate validates the scraper configuration.
func (c *ScraperConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FeedURL, validation.Required, is.RequestURL),
		validation.Field(&c.Renderer, validation.Required, validation.In(scraper.RendererBrowser, scraper.RendererStatic)),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RenderTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxItems, validation.Min(0)),
	)
}

// NotifyConfig selects and configures the digest transport.
type NotifyConfig struct {
	Driver string       `yaml:"driver"`
	SMTP   SMTPConfig   `yaml:"smtp"`
	Resend ResendConfig `yaml:"resend"`
}

// Validate validates the notify configuration. Only the block of the
// selected driver is checked.
func (c *NotifyConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = NotifyDriverNoop
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(NotifyDriverSMTP, NotifyDriverResend, NotifyDriverNoop)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case NotifyDriverSMTP:
		return c.SMTP.Validate()
	case NotifyDriverResend:
		return c.Resend.Validate()
	}
	return nil
}

// Recipients returns the digest recipients of the selected driver.
func (c *NotifyConfig) Recipients() []string {
	switch c.Driver {
	case NotifyDriverSMTP:
		return splitList(c.SMTP.Recipient)
	case NotifyDriverResend:
		return splitList(c.Resend.Recipient)
	}
	return nil
}

// SMTPConfig holds the SMTP submission settings. Recipient may list several
// addresses separated by commas.
type SMTPConfig struct {
	Server    string        `yaml:"server"`
	Port      int           `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	From      string        `yaml:"from"`
	Recipient string        `yaml:"recipient"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Validate validates the SMTP configuration.
func (c *SMTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.Required, is.Host),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
		validation.Field(&c.Recipient, validation.Required, validation.By(emailList)),
	)
}

// ResendConfig holds the Resend API settings.
type ResendConfig struct {
	APIKey    string `yaml:"api_key"`
	From      string `yaml:"from"`
	Recipient string `yaml:"recipient"`
}

// Validate validates the Resend configuration.
func (c *ResendConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.From, validation.Required),
		validation.Field(&c.Recipient, validation.Required, validation.By(emailList)),
	)
}

// FeedsConfig holds RSS channel metadata.
type FeedsConfig struct {
	BaseURL          string `yaml:"base_url"`
	Title            string `yaml:"title"`
	Description      string `yaml:"description"`
	SeedsTitle       string `yaml:"seeds_title"`
	SeedsDescription string `yaml:"seeds_description"`
}

// Validate validates the feeds configuration.
func (c *FeedsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, is.RequestURL),
	)
}

// ScheduleConfig controls the in-process batch scheduler of serve mode.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// Validate validates the schedule configuration.
func (c *ScheduleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Cron, validation.When(c.Enabled, validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			Timezone: "Europe/Lisbon",
		},
		Data: DataConfig{
			Dir: "./data",
		},
		SQLite: SQLiteConfig{
			Path: "./tenderwatch.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Scraper: ScraperConfig{
			FeedURL:        scraper.DefaultFeedURL,
			Renderer:       scraper.RendererBrowser,
			UserAgent:      scraper.DefaultUserAgent,
			RequestTimeout: 30 * time.Second,
			RenderTimeout:  30 * time.Second,
		},
		Notify: NotifyConfig{
			Driver: NotifyDriverNoop,
			SMTP: SMTPConfig{
				Port:    587,
				Timeout: 30 * time.Second,
			},
		},
		Schedule: ScheduleConfig{
			Cron: scheduler.DefaultSpec,
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func emailList(value any) error {
	s, _ := value.(string)
	list := splitList(s)
	if len(list) == 0 {
		return errors.New("must list at least one address")
	}
	for _, addr := range list {
		if err := is.EmailFormat.Validate(addr); err != nil {
			return fmt.Errorf("%s: %w", addr, err)
		}
	}
	return nil
}
