package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	gomail "github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"
)

// IMAPConfig carries the mailbox connection settings.
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// IMAPSource reads PDF submissions from an IMAP inbox. A fresh connection
// is established on every fetch cycle and reused for the matching MarkSeen,
// so a dead connection never outlives one polling cycle.
type IMAPSource struct {
	cfg    IMAPConfig
	client *imapclient.Client
	logger zerolog.Logger
}

// NewIMAPSource constructs a mailbox source.
func NewIMAPSource(cfg IMAPConfig, logger zerolog.Logger) *IMAPSource {
	return &IMAPSource{
		cfg:    cfg,
		logger: logger.With().Str("component", "imap_source").Logger(),
	}
}

func (s *IMAPSource) connect() error {
	s.disconnect()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("dial mailbox: %w", err)
	}

	if err := client.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		client.Close()
		return fmt.Errorf("login mailbox: %w", err)
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		client.Close()
		return fmt.Errorf("select inbox: %w", err)
	}

	s.client = client
	return nil
}

func (s *IMAPSource) disconnect() {
	if s.client != nil {
		_ = s.client.Close()
		s.client = nil
	}
}

// FetchUnseen lists unseen messages and extracts their PDF attachments.
// Messages without PDF attachments are still returned so the poller can
// mark them seen and keep the inbox moving.
func (s *IMAPSource) FetchUnseen(ctx context.Context) ([]Message, error) {
	if err := s.connect(); err != nil {
		return nil, err
	}

	searchData, err := s.client.Search(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}

	seqNums := searchData.AllSeqNums()
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqSet := imap.SeqSetNum(seqNums...)
	options, bodySection := unseenFetchOptions()
	fetched, err := s.client.Fetch(seqSet, options).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch unseen: %w", err)
	}

	messages := make([]Message, 0, len(fetched))
	for _, raw := range fetched {
		message := Message{ID: raw.SeqNum}
		if raw.Envelope != nil {
			message.Subject = raw.Envelope.Subject
			if len(raw.Envelope.From) > 0 {
				message.From = raw.Envelope.From[0].Addr()
			}
		}

		body := raw.FindBodySection(bodySection)
		if len(body) > 0 {
			message.Attachments = s.pdfAttachments(body)
		}

		s.logger.Info().Str("from", message.From).Str("subject", message.Subject).Int("attachments", len(message.Attachments)).Msg("unseen message fetched")
		messages = append(messages, message)
	}

	return messages, nil
}

// unseenFetchOptions builds the fetch request for unseen messages. The body
// section must be fetched with BODY.PEEK: a plain BODY[] fetch makes the
// server set \Seen immediately, which would stop the next cycle's unseen
// search from retrying messages whose submissions failed transiently.
// MarkSeen is the only place that flag may be added.
func unseenFetchOptions() (*imap.FetchOptions, *imap.FetchItemBodySection) {
	bodySection := &imap.FetchItemBodySection{Peek: true}
	return &imap.FetchOptions{
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}, bodySection
}

func (s *IMAPSource) pdfAttachments(body []byte) []Attachment {
	reader, err := gomail.CreateReader(bytes.NewReader(body))
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to parse message body")
		return nil
	}

	var attachments []Attachment
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read message part")
			break
		}

		header, ok := part.Header.(*gomail.AttachmentHeader)
		if !ok {
			continue
		}

		filename, err := header.Filename()
		if err != nil || !strings.EqualFold(filepath.Ext(filename), ".pdf") {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			s.logger.Warn().Str("file", filename).Err(err).Msg("failed to read attachment")
			continue
		}

		attachments = append(attachments, Attachment{FileName: filename, Data: data})
	}

	return attachments
}

// MarkSeen flags the given messages as seen on the connection opened by the
// preceding FetchUnseen.
func (s *IMAPSource) MarkSeen(ctx context.Context, ids []uint32) error {
	if s.client == nil {
		return fmt.Errorf("mailbox not connected")
	}
	if len(ids) == 0 {
		return nil
	}

	seqSet := imap.SeqSetNum(ids...)
	err := s.client.Store(seqSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Flags:  []imap.Flag{imap.FlagSeen},
		Silent: true,
	}, nil).Close()
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}

	return nil
}

// Close tears down the mailbox connection.
func (s *IMAPSource) Close() error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Debug().Err(err).Msg("mailbox logout failed")
	}
	err := s.client.Close()
	s.client = nil
	return err
}
