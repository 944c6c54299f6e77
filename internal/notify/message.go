// Package notify emails report download links to companies.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"

	"review-insights-go/internal/directory"
)

const (
	DefaultFrom = "reports@instareview.ai"
	PortalURL   = "https://app.instareview.ai/"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/report.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/report.txt.tmpl"))
)

type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
	Date    time.Time
}

type reportView struct {
	CompanyName string
	ReportURL   string
	PortalURL   string
	Year        int
}

// ReportMessage builds the weekly "report is ready" email for company. From
// is left to the sender.
func ReportMessage(company directory.Company, reportURL string, now time.Time) (Message, error) {
	name := strings.TrimSpace(company.Name)
	if name == "" {
		name = "Your Company"
	}
	view := reportView{CompanyName: name, ReportURL: reportURL, PortalURL: PortalURL, Year: now.Year()}

	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, "report.html.tmpl", view); err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}
	if err := textTemplates.ExecuteTemplate(&text, "report.txt.tmpl", view); err != nil {
		return Message{}, fmt.Errorf("render text body: %w", err)
	}
	return Message{
		To:      company.Email,
		Subject: "Your Weekly InstaReview Report is Ready - " + name,
		Text:    text.String(),
		HTML:    html.String(),
		Date:    now,
	}, nil
}

// Bytes encodes m as a multipart/alternative RFC 5322 message with plain text
// first and HTML second.
func (m Message) Bytes() ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct{ mediaType, content string }{
		{"text/plain", m.Text},
		{"text/html", m.HTML},
	} {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", part.mediaType+"; charset=utf-8")
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	domain := "instareview.ai"
	if at := strings.LastIndex(m.From, "@"); at >= 0 {
		domain = strings.Trim(m.From[at+1:], "<> ")
	}

	var out bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&out, "%s: %s\r\n", k, v) }
	header("From", m.From)
	header("To", m.To)
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	header("MIME-Version", "1.0")
	header("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary()))
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
