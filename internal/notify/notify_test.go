package notify

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-insights-go/internal/config"
	"review-insights-go/internal/directory"
)

const signedURL = "https://reports.s3.amazonaws.com/instareview-reports/ACME/2025-03-W10.pdf?X-Amz-Expires=604800&X-Amz-Signature=abc"

var sentAt = time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)

func TestReportMessage(t *testing.T) {
	msg, err := ReportMessage(directory.Company{ID: "ACME", Name: "Acme Diner", Email: "owner@acme.test"}, signedURL, sentAt)
	require.NoError(t, err)

	assert.Equal(t, "owner@acme.test", msg.To)
	assert.Equal(t, "Your Weekly InstaReview Report is Ready - Acme Diner", msg.Subject)
	assert.Contains(t, msg.Text, "Hello Acme Diner,")
	assert.Contains(t, msg.Text, "Download your report here: "+signedURL)
	assert.Contains(t, msg.HTML, "Hello Acme Diner")
	assert.Contains(t, msg.HTML, "X-Amz-Signature=abc")
	assert.Contains(t, msg.HTML, "2025 InstaReview.ai")
}

func TestReportMessageWithoutName(t *testing.T) {
	msg, err := ReportMessage(directory.Company{ID: "ACME"}, signedURL, sentAt)
	require.NoError(t, err)
	assert.Equal(t, "Your Weekly InstaReview Report is Ready - Your Company", msg.Subject)
}

func TestReportMessageEscapesName(t *testing.T) {
	msg, err := ReportMessage(directory.Company{Name: "<b>Bad</b>"}, signedURL, sentAt)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<b>Bad</b>")
	assert.Contains(t, msg.Text, "<b>Bad</b>")
}

// parts decodes a multipart/alternative message into media type -> body.
func parts(t *testing.T, raw []byte) (*mail.Message, map[string]string) {
	t.Helper()
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", mediaType)

	out := map[string]string{}
	mr := multipart.NewReader(m.Body, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p)
		require.NoError(t, err)
		mt, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
		out[mt] = string(body)
	}
	return m, out
}

func TestMessageBytes(t *testing.T) {
	msg := Message{
		From:    "reports@instareview.ai",
		To:      "owner@acme.test",
		Subject: "Café report",
		Text:    "plain " + strings.Repeat("x", 120),
		HTML:    "<p>html</p>",
		Date:    sentAt,
	}
	raw, err := msg.Bytes()
	require.NoError(t, err)

	m, bodies := parts(t, raw)
	subject, err := new(mime.WordDecoder).DecodeHeader(m.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Café report", subject)
	assert.Equal(t, "owner@acme.test", m.Header.Get("To"))
	assert.True(t, strings.HasSuffix(m.Header.Get("Message-ID"), "@instareview.ai>"))
	date, err := m.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(sentAt))

	assert.Equal(t, msg.Text, bodies["text/plain"])
	assert.Equal(t, msg.HTML, bodies["text/html"])
}

// fakeSMTP accepts one session and records the envelope and data.
type fakeSMTP struct {
	ln   net.Listener
	mu   sync.Mutex
	from string
	rcpt []string
	data []byte
	done chan struct{}
}

func newFakeSMTP(t *testing.T, extensions ...string) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeSMTP{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })
	go f.serve(extensions)
	return f
}

func (f *fakeSMTP) serve(extensions []string) {
	defer close(f.done)
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			if len(extensions) == 0 {
				_ = tp.PrintfLine("250 fake")
				continue
			}
			_ = tp.PrintfLine("250-fake")
			for i, ext := range extensions {
				sep := "-"
				if i == len(extensions)-1 {
					sep = " "
				}
				_ = tp.PrintfLine("250%s%s", sep, ext)
			}
		case "MAIL":
			f.mu.Lock()
			f.from = line
			f.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case "RCPT":
			f.mu.Lock()
			f.rcpt = append(f.rcpt, line)
			f.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.data = data
			f.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 unsupported")
		}
	}
}

func (f *fakeSMTP) sender() *SMTPSender {
	addr := f.ln.Addr().(*net.TCPAddr)
	return &SMTPSender{Host: "127.0.0.1", Port: addr.Port, From: "reports@instareview.ai"}
}

func TestSMTPSenderDelivers(t *testing.T) {
	srv := newFakeSMTP(t, "8BITMIME")
	msg, err := ReportMessage(directory.Company{Name: "Acme Diner", Email: "owner@acme.test"}, signedURL, sentAt)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.sender().Send(ctx, msg))
	<-srv.done

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "MAIL FROM:<reports@instareview.ai> BODY=8BITMIME", srv.from)
	assert.Equal(t, []string{"RCPT TO:<owner@acme.test>"}, srv.rcpt)

	m, bodies := parts(t, srv.data)
	assert.Equal(t, "reports@instareview.ai", m.Header.Get("From"))
	assert.Contains(t, bodies["text/plain"], signedURL)
	assert.Contains(t, bodies["text/html"], "Download Your Report")
}

func TestSMTPSenderDefaultsFrom(t *testing.T) {
	srv := newFakeSMTP(t)
	s := srv.sender()
	s.From = ""
	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.test", Text: "hi", HTML: "<p>hi</p>"}))
	<-srv.done
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "MAIL FROM:<"+DefaultFrom+">", srv.from)
}

func TestSMTPSenderNeedsRecipient(t *testing.T) {
	err := (&SMTPSender{Host: "127.0.0.1", Port: 1}).Send(context.Background(), Message{})
	assert.ErrorContains(t, err, "no recipient")
}

func TestSMTPSenderDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	err = (&SMTPSender{Host: "127.0.0.1", Port: port}).Send(context.Background(), Message{To: "a@b.test"})
	assert.ErrorContains(t, err, "smtp dial")
}

func TestSMTPSenderHonoursCancel(t *testing.T) {
	// A server that accepts but never greets.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			_, _ = io.Copy(io.Discard, conn)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s := &SMTPSender{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}
	start := time.Now()
	err = s.Send(ctx, Message{To: "a@b.test"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewSMTPSender(t *testing.T) {
	s := NewSMTPSender(config.EmailConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "x@y.z"})
	assert.Equal(t, "smtp.example.com", s.Host)
	assert.Equal(t, 587, s.Port)
	assert.False(t, s.ImplicitTLS)
	assert.Equal(t, "smtp.example.com", s.tlsConfig().ServerName)
}
