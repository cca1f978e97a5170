package config

import (
	"fmt"
	"time"
)

// IMAPConfig represents the configuration for the mail server connection
type IMAPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Folder   string
}

// ScanConfig represents the configuration for the scan engine
type ScanConfig struct {
	PageSize       int
	PageDelay      time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	IgnoredDomains []string
}

// StoreConfig represents the configuration for checkpoint/result storage
type StoreConfig struct {
	Type       string
	Dir        string
	SQLitePath string
	MySQLDSN   string
}

// NotifyConfig represents the configuration for new-address notification
type NotifyConfig struct {
	Enabled  bool
	SMTPAddr string
	Username string
	Password string
	From     string
	To       string
}

// GetIMAP returns the mail server configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Host:     c.GetString("imap.host"),
		Port:     c.GetString("imap.port"),
		Username: c.GetString("imap.username"),
		Password: c.GetString("imap.password"),
		Folder:   c.GetString("imap.folder"),
	}
}

// GetScan returns the scan engine configuration
func (c *Config) GetScan() (ScanConfig, error) {
	pageDelay, err := c.GetDuration("scan.page_delay")
	if err != nil {
		return ScanConfig{}, fmt.Errorf("invalid scan.page_delay: %w", err)
	}
	backoffBase, err := c.GetDuration("scan.backoff_base")
	if err != nil {
		return ScanConfig{}, fmt.Errorf("invalid scan.backoff_base: %w", err)
	}
	return ScanConfig{
		PageSize:       c.GetInt("scan.page_size"),
		PageDelay:      pageDelay,
		MaxRetries:     c.GetInt("scan.max_retries"),
		BackoffBase:    backoffBase,
		IgnoredDomains: c.GetStringSlice("scan.ignored_domains"),
	}, nil
}

// GetStore returns the storage configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		Dir:        c.GetString("store.dir"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetNotify returns the notification configuration
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		Enabled:  c.GetBool("notify.enabled"),
		SMTPAddr: c.GetString("notify.smtp_addr"),
		Username: c.GetString("notify.username"),
		Password: c.GetString("notify.password"),
		From:     c.GetString("notify.from"),
		To:       c.GetString("notify.to"),
	}
}
