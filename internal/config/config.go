package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	defaultServerPort   = 8484
	defaultPollMinutes  = 5
	defaultActivitySize = 20
)

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Server   ServerConfig   `yaml:"server,omitempty"`
	Database DatabaseConfig `yaml:"database,omitempty"`
	Email    EmailConfig    `yaml:"email,omitempty"`
	Inbox    InboxConfig    `yaml:"inbox,omitempty"`
	Engine   EngineConfig   `yaml:"engine,omitempty"`
}

type ServerConfig struct {
	Port          int `yaml:"port"`
	ActivityLimit int `yaml:"activity_limit"` // default page size for the activity feed
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type EmailConfig struct {
	Provider string         `yaml:"provider"` // "smtp", "resend", or "sendgrid"
	From     string         `yaml:"from"`
	FromName string         `yaml:"from_name,omitempty"`
	SMTP     SMTPConfig     `yaml:"smtp,omitempty"`
	Resend   ResendConfig   `yaml:"resend,omitempty"`
	SendGrid SendGridConfig `yaml:"sendgrid,omitempty"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

type ResendConfig struct {
	APIKey string `yaml:"api_key"`
}

type SendGridConfig struct {
	APIKey string `yaml:"api_key"`
}

// InboxConfig holds IMAP settings for pulling incoming mail into the
// engine.
type InboxConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Provider     string `yaml:"provider"` // "gmail", "outlook", "imap"
	Server       string `yaml:"server"`
	Port         int    `yaml:"port"`
	Email        string `yaml:"email"`
	Password     string `yaml:"password"` // app password, not the account password
	Folder       string `yaml:"folder"`
	PollMinutes  int    `yaml:"poll_minutes"`
	LookbackDays int    `yaml:"lookback_days"`
}

// EngineConfig tunes decision behavior.
type EngineConfig struct {
	// BlockEscalateAfterRespond rejects escalation of a message
	// that already had a response sent.
	BlockEscalateAfterRespond bool `yaml:"block_escalate_after_respond"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".pepper", "config.yaml")
}

func Load(path string) (*Config, error) {
	if err := checkFilePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with all defaults applied, used when no
// config file exists yet.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.ActivityLimit == 0 {
		c.Server.ActivityLimit = defaultActivitySize
	}

	if c.Inbox.Folder == "" {
		c.Inbox.Folder = "INBOX"
	}
	if c.Inbox.PollMinutes == 0 {
		c.Inbox.PollMinutes = defaultPollMinutes
	}
	if c.Inbox.LookbackDays == 0 {
		c.Inbox.LookbackDays = 7
	}
	if c.Inbox.Provider == "gmail" && c.Inbox.Server == "" {
		c.Inbox.Server = "imap.gmail.com"
		c.Inbox.Port = 993
	}
	if c.Inbox.Provider == "outlook" && c.Inbox.Server == "" {
		c.Inbox.Server = "outlook.office365.com"
		c.Inbox.Port = 993
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// ValidateEmail checks the outbound email settings. Only called when
// an operation actually needs to send mail.
func (c *Config) ValidateEmail() error {
	if c.Email.Provider == "" {
		return fmt.Errorf("email: provider is required")
	}
	if c.Email.From == "" {
		return fmt.Errorf("email: from address is required")
	}

	switch c.Email.Provider {
	case "smtp":
		if c.Email.SMTP.Host == "" {
			return fmt.Errorf("email.smtp: host is required")
		}
		if c.Email.SMTP.Port == 0 {
			return fmt.Errorf("email.smtp: port is required")
		}
	case "resend":
		if c.Email.Resend.APIKey == "" {
			return fmt.Errorf("email.resend: api_key is required")
		}
	case "sendgrid":
		if c.Email.SendGrid.APIKey == "" {
			return fmt.Errorf("email.sendgrid: api_key is required")
		}
	default:
		return fmt.Errorf("email: unknown provider %q (smtp, resend, or sendgrid)", c.Email.Provider)
	}
	return nil
}

// ValidateInbox checks the IMAP settings, only called when inbox
// polling is used.
func (c *Config) ValidateInbox() error {
	if !c.Inbox.Enabled {
		return fmt.Errorf("inbox: monitoring is not enabled in config")
	}
	if c.Inbox.Email == "" {
		return fmt.Errorf("inbox: email address is required")
	}
	if c.Inbox.Password == "" {
		return fmt.Errorf("inbox: password (app password) is required")
	}
	if c.Inbox.Server == "" {
		return fmt.Errorf("inbox: IMAP server is required")
	}
	if c.Inbox.Port == 0 {
		return fmt.Errorf("inbox: IMAP port is required")
	}
	return nil
}
