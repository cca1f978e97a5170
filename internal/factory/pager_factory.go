package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/junk-scan/internal/adapters/mailbox"
	"github.com/mikey/junk-scan/internal/config"
	"github.com/mikey/junk-scan/internal/core"
)

// PagerFactory creates folder pagers based on configuration
type PagerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPagerFactory creates a new pager factory
func NewPagerFactory(cfg *config.Config, logger *zap.Logger) *PagerFactory {
	return &PagerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateFolderPager connects to the configured mail server and returns
// a pager over its junk folder.
func (f *PagerFactory) CreateFolderPager() (core.FolderPager, error) {
	imapCfg := f.cfg.GetIMAP()
	if imapCfg.Host == "" {
		return nil, &core.FatalError{Err: fmt.Errorf("imap.host is required")}
	}
	if imapCfg.Username == "" {
		return nil, &core.FatalError{Err: fmt.Errorf("imap.username is required")}
	}

	return mailbox.Connect(mailbox.Options{
		Host:     imapCfg.Host,
		Port:     imapCfg.Port,
		Username: imapCfg.Username,
		Password: imapCfg.Password,
		Folder:   imapCfg.Folder,
	}, f.logger)
}
