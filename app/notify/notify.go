// Package notify delivers run failure reports by email and webhooks
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
)

//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier

// Notifier is a delivery channel, go-pkgz/notify email and webhook senders implement it
type Notifier interface {
	fmt.Stringer
	Schema() string
	Send(ctx context.Context, destination, text string) error
}

// Params defines when to notify and how to render reports
type Params struct {
	EnabledError   bool
	EnabledSuccess bool
	ErrorTemplate  string // optional html template file, the built-in one is used if empty or broken
	HostName       string
}

// SendersParams defines delivery channels, a channel without destinations is not created
type SendersParams struct {
	notify.SMTPParams
	FromEmail      string
	ToEmails       []string
	WebhookURLs    []string
	WebhookTimeout time.Duration
}

// Report is the outcome of a run sent to the destinations
type Report struct {
	RunID    string
	Command  string
	Target   string
	Status   string
	Duration time.Duration
	Error    string
	TS       time.Time
}

// Service sends reports to all configured destinations
type Service struct {
	destinations []Notifier
	fromEmail    string
	toEmail      []string
	webhooks     []string
	errTemplate  string
	onError      bool
	onSuccess    bool
	host         string
}

// NewService makes a service with email and webhook senders, returns nil if no destination is set
func NewService(p Params, sp SendersParams) *Service {
	res := &Service{fromEmail: sp.FromEmail, toEmail: sp.ToEmails, webhooks: sp.WebhookURLs,
		errTemplate: p.ErrorTemplate, onError: p.EnabledError, onSuccess: p.EnabledSuccess, host: p.HostName}
	if res.host == "" {
		res.host = hostName()
	}
	if len(sp.ToEmails) > 0 {
		smtpParams := sp.SMTPParams
		if smtpParams.ContentType == "" {
			smtpParams.ContentType = "text/html"
		}
		res.destinations = append(res.destinations, notify.NewEmail(smtpParams))
		if res.fromEmail == "" {
			res.fromEmail = "fleetcheck@" + res.host
		}
	}
	if len(sp.WebhookURLs) > 0 {
		timeout := sp.WebhookTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		res.destinations = append(res.destinations, notify.NewWebhook(notify.WebhookParams{Timeout: timeout}))
	}
	if len(res.destinations) == 0 {
		return nil
	}
	return res
}

// Send delivers text to every destination. Email goes to all recipients at once, webhooks are
// called one by one. Errors of all destinations are joined.
func (s *Service) Send(ctx context.Context, subj, text string) error {
	var errs []error
	for _, dest := range s.destinations {
		switch dest.Schema() {
		case "mailto":
			if err := dest.Send(ctx, s.mailto(subj), text); err != nil {
				errs = append(errs, err)
			}
		default:
			for _, hook := range s.webhooks {
				if err := dest.Send(ctx, hook, subj+"\n"+stripTags(text)); err != nil {
					errs = append(errs, fmt.Errorf("webhook %s: %w", hook, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Notify renders the report and sends it if its status is enabled
func (s *Service) Notify(ctx context.Context, r Report) error {
	failed := r.Error != ""
	if (failed && !s.onError) || (!failed && !s.onSuccess) {
		return nil
	}
	msg, err := s.MakeReportHTML(r)
	if err != nil {
		return fmt.Errorf("can't make report: %w", err)
	}
	subj := fmt.Sprintf("fleetcheck %s %s on %s", r.Command, r.Status, r.Target)
	log.Printf("[INFO] send %q report to %d destination(s)", subj, len(s.destinations))
	return s.Send(ctx, subj, msg)
}

// IsOnError tells if failed runs are reported
func (s *Service) IsOnError() bool { return s.onError }

// IsOnSuccess tells if passed runs are reported
func (s *Service) IsOnSuccess() bool { return s.onSuccess }

// MakeReportHTML renders the report with the custom template, falling back to the default one
func (s *Service) MakeReportHTML(r Report) (string, error) {
	if r.TS.IsZero() {
		r.TS = time.Now()
	}
	data := struct {
		Report
		Host string
	}{Report: r, Host: s.host}

	if s.errTemplate != "" {
		res, err := execTemplate(s.errTemplate, data)
		if err == nil {
			return res, nil
		}
		log.Printf("[WARN] can't use report template %s, %v", s.errTemplate, err)
	}

	tmpl, err := template.New("report").Parse(defaultReportTemplate)
	if err != nil {
		return "", fmt.Errorf("can't parse report template: %w", err)
	}
	buf := bytes.Buffer{}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to apply report template: %w", err)
	}
	return buf.String(), nil
}

func execTemplate(file string, data any) (string, error) {
	tmpl, err := template.ParseFiles(file)
	if err != nil {
		return "", fmt.Errorf("can't parse %s: %w", file, err)
	}
	buf := bytes.Buffer{}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to apply %s: %w", file, err)
	}
	return buf.String(), nil
}

// mailto makes the email destination, "mailto:to1,to2?from=...&subject=..."
func (s *Service) mailto(subj string) string {
	q := url.Values{}
	q.Set("from", s.fromEmail)
	q.Set("subject", subj)
	return "mailto:" + strings.Join(s.toEmail, ",") + "?" + q.Encode()
}

// stripTags leaves the text of an html report for webhooks
func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	lines := strings.Split(b.String(), "\n")
	res := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			res = append(res, l)
		}
	}
	return strings.Join(res, "\n")
}

func hostName() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

const defaultReportTemplate = `<!DOCTYPE html>
<html>
	<head>
		<meta name="viewport" content="width=device-width" />
		<meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
		<style type="text/css">
			body { font-family: "Arial"; font-size: 1.0em; }
			ul { margin-top: -0.5em; margin-left: -0.5em; }
			pre { padding: 0.6em; font-size: 0.7em; background-color: #E8E2A0; font-family: "Menlo"; white-space: pre-wrap; word-wrap: break-word; }
			.bold { color: #882828; font-weight: 900; }
		</style>
	</head>
	<body>
		<p>Fleetcheck {{.Command}} {{.Status}} on <span class="bold">{{.Host}}</span> at {{.TS.Format "2006-01-02T15:04:05Z07:00"}}</p>
		<ul>
			<li>Target: <span class="bold">{{.Target}}</span></li>
			<li>Run: <span class="bold">{{.RunID}}</span></li>
			<li>Duration: <span class="bold">{{.Duration}}</span></li>
		</ul>
		{{if .Error}}<pre>
{{.Error}}
		</pre>{{end}}
	</body>
</html>
`
