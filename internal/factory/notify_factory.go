package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/junk-scan/internal/adapters/notify"
	"github.com/mikey/junk-scan/internal/config"
	"github.com/mikey/junk-scan/internal/core"
)

// NotifyFactory creates notifiers based on configuration
type NotifyFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifyFactory creates a new notify factory
func NewNotifyFactory(cfg *config.Config, logger *zap.Logger) *NotifyFactory {
	return &NotifyFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateNotifier returns the configured notifier, or a no-op when
// notifications are disabled.
func (f *NotifyFactory) CreateNotifier() (core.Notifier, error) {
	notifyCfg := f.cfg.GetNotify()
	if !notifyCfg.Enabled {
		return notify.Noop{}, nil
	}

	if notifyCfg.SMTPAddr == "" {
		return nil, fmt.Errorf("notify.smtp_addr is required when notifications are enabled")
	}
	if notifyCfg.From == "" || notifyCfg.To == "" {
		return nil, fmt.Errorf("notify.from and notify.to are required when notifications are enabled")
	}

	return notify.NewSMTPNotifier(
		notifyCfg.SMTPAddr,
		notifyCfg.Username,
		notifyCfg.Password,
		notifyCfg.From,
		notifyCfg.To,
		f.logger,
	), nil
}
