package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/xxxsen/mailwing/internal/config"
	"github.com/xxxsen/mailwing/internal/filestore"
	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
)

const verifyTimeout = 10 * time.Second

// OutboundMail is one message handed to the transport. Body is markdown and
// is rendered to an HTML part; HTMLBody, when set, is used verbatim instead.
type OutboundMail struct {
	To            string
	Subject       string
	Body          string
	HTMLBody      string
	AttachmentKey string
	Scheduled     bool
}

type MailSender interface {
	Send(ctx context.Context, mail OutboundMail) error
	Verify(ctx context.Context) error
}

type smtpSender struct {
	cfg         config.MailConfig
	attachments filestore.Store
}

func NewMailSender(cfg config.MailConfig, attachments filestore.Store) MailSender {
	return &smtpSender{cfg: cfg, attachments: attachments}
}

func (s *smtpSender) Send(ctx context.Context, mail OutboundMail) error {
	from := strings.TrimSpace(s.cfg.From)
	if s.cfg.Host == "" || s.cfg.Port == 0 || from == "" {
		return appErr.ErrInvalid
	}
	msg, err := s.buildMessage(ctx, from, mail)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, from, []string{mail.To}, msg)
}

// Verify probes transport reachability. It is informational only: the
// scheduler does not gate on it.
func (s *smtpSender) Verify(ctx context.Context) error {
	if s.cfg.Host == "" || s.cfg.Port == 0 {
		return appErr.ErrInvalid
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, verifyTimeout)
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Now().Add(verifyTimeout))
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	return client.Quit()
}

func (s *smtpSender) buildMessage(ctx context.Context, from string, mail OutboundMail) ([]byte, error) {
	html := mail.HTMLBody
	if html == "" {
		rendered, err := renderMarkdown(mail.Body)
		if err != nil {
			return nil, err
		}
		html = rendered
	}
	if mail.Scheduled {
		html = scheduledNotice + html
	}

	fromHeader := from
	if s.cfg.FromName != "" {
		fromHeader = fmt.Sprintf("%q <%s>", s.cfg.FromName, from)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "From: %s\r\n", fromHeader)
	fmt.Fprintf(&buf, "To: %s\r\n", mail.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mail.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	htmlHeader := textproto.MIMEHeader{}
	htmlHeader.Set("Content-Type", "text/html; charset=UTF-8")
	part, err := writer.CreatePart(htmlHeader)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}

	if mail.AttachmentKey != "" {
		if err := s.writeAttachment(ctx, writer, mail.AttachmentKey); err != nil {
			return nil, fmt.Errorf("attach %s: %w", mail.AttachmentKey, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *smtpSender) writeAttachment(ctx context.Context, writer *multipart.Writer, key string) error {
	if s.attachments == nil {
		return appErr.ErrInvalid
	}
	reader, err := s.attachments.Open(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()
	content, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "application/octet-stream")
	header.Set("Content-Transfer-Encoding", "base64")
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(content)
	for len(encoded) > 0 {
		line := encoded
		if len(line) > 76 {
			line = line[:76]
		}
		if _, err := io.WriteString(part, line+"\r\n"); err != nil {
			return err
		}
		encoded = encoded[len(line):]
	}
	return nil
}

func renderMarkdown(body string) (string, error) {
	var out bytes.Buffer
	if err := goldmark.Convert([]byte(body), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

const scheduledNotice = `<div style="background-color:#f8f9fa;padding:10px;border-radius:5px;margin-bottom:20px;border-left:4px solid #082563">` +
	`<p style="margin:0;font-size:12px;color:#666">This email was scheduled and delivered automatically.</p></div>`
