package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/mikey/junk-scan/internal/core"
)

// Pager reads a junk folder over IMAP newest-first in fixed-size
// slices, fetching envelopes only. Full message bodies are never
// requested at this layer.
//
// Paging is by message sequence number offset. The mailbox size is
// pinned at select time so a single connection pages a consistent
// window, but mail arriving mid-scan still shifts the newest-first
// order; see core.FolderPager for the resulting resume caveats.
type Pager struct {
	client *imapclient.Client
	logger *zap.Logger
	folder string
	total  uint32
}

// Options holds the connection parameters for a Pager.
type Options struct {
	Host     string
	Port     string
	Username string
	Password string
	Folder   string
}

// Connect dials the server over implicit TLS, authenticates, and
// selects the junk folder read-only.
func Connect(opts Options, logger *zap.Logger) (*Pager, error) {
	addr := opts.Host + ":" + opts.Port

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, &core.TransientError{Err: fmt.Errorf("dialing %s: %w", addr, err)}
	}

	if err := client.Login(opts.Username, opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, classify(fmt.Errorf("logging in as %s: %w", opts.Username, err))
	}

	folder := opts.Folder
	if folder == "" {
		folder = "Junk"
	}
	sel, err := client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		_ = client.Logout().Wait()
		return nil, classify(fmt.Errorf("selecting %q: %w", folder, err))
	}

	logger.Info("Connected to mail server",
		zap.String("server", addr),
		zap.String("folder", folder),
		zap.Uint32("messages", sel.NumMessages))

	return &Pager{
		client: client,
		logger: logger,
		folder: folder,
		total:  sel.NumMessages,
	}, nil
}

// Total returns the folder's message count as of select time.
func (p *Pager) Total(_ context.Context) (int, error) {
	return int(p.total), nil
}

// NextPage fetches the envelopes for the page at cursor. Sequence
// numbers ascend oldest-to-newest, so the page covering offsets
// [cursor, cursor+pageSize) of the newest-first order maps to the
// range ending at total-cursor.
func (p *Pager) NextPage(_ context.Context, cursor, pageSize int) ([]core.PageItem, bool, error) {
	total := int(p.total)
	if cursor >= total {
		return nil, true, nil
	}

	hi := total - cursor
	lo := hi - pageSize + 1
	if lo < 1 {
		lo = 1
	}

	var seqSet imap.SeqSet
	seqSet.AddRange(uint32(lo), uint32(hi))

	fetchCmd := p.client.Fetch(seqSet, &imap.FetchOptions{Envelope: true})

	bySeq := make(map[uint32]core.PageItem, hi-lo+1)
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		seq := msg.SeqNum
		buf, err := msg.Collect()
		if err != nil {
			bySeq[seq] = core.PageItem{SkipReason: err.Error()}
			continue
		}
		bySeq[buf.SeqNum] = itemFromBuffer(buf)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, false, classify(fmt.Errorf("fetching %d:%d from %q: %w", lo, hi, p.folder, err))
	}

	// Emit newest first; a message missing from the response still
	// occupies its cursor position.
	items := make([]core.PageItem, 0, hi-lo+1)
	for seq := hi; seq >= lo; seq-- {
		it, ok := bySeq[uint32(seq)]
		if !ok {
			it = core.PageItem{SkipReason: fmt.Sprintf("no data returned for message %d", seq)}
		}
		items = append(items, it)
	}

	return items, len(items) < pageSize, nil
}

// Close logs out and drops the connection.
func (p *Pager) Close() error {
	if err := p.client.Logout().Wait(); err != nil {
		_ = p.client.Close()
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

func itemFromBuffer(buf *imapclient.FetchMessageBuffer) core.PageItem {
	if buf.Envelope == nil || len(buf.Envelope.From) == 0 {
		return core.PageItem{SkipReason: "missing envelope sender"}
	}
	from := buf.Envelope.From[0]
	sender := from.Addr()
	if sender == "" {
		sender = from.Name
	}
	if sender == "" {
		return core.PageItem{SkipReason: "empty sender address"}
	}
	return core.PageItem{Sender: sender}
}

// classify maps IMAP and network failures onto the engine's retry
// taxonomy: throttling and availability problems are transient,
// authentication and permission problems are fatal.
func classify(err error) error {
	var imapErr *imap.Error
	if errors.As(err, &imapErr) {
		switch imapErr.Code {
		case imap.ResponseCodeLimit,
			imap.ResponseCodeInUse,
			imap.ResponseCodeUnavailable,
			imap.ResponseCodeServerBug:
			return &core.TransientError{Err: err}
		case imap.ResponseCodeAuthenticationFailed,
			imap.ResponseCodeAuthorizationFailed,
			imap.ResponseCodeNoPerm,
			imap.ResponseCodePrivacyRequired:
			return &core.FatalError{Err: err}
		}
		if imapErr.Type == imap.StatusResponseTypeBye {
			return &core.TransientError{Err: err}
		}
		text := strings.ToLower(imapErr.Text)
		if strings.Contains(text, "throttl") || strings.Contains(text, "busy") || strings.Contains(text, "rate") {
			return &core.TransientError{Err: err}
		}
		return &core.FatalError{Err: err}
	}
	// Network-level failures are worth retrying.
	return &core.TransientError{Err: err}
}
