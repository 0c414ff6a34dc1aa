package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/utcc/social-mentions/internal/config"
	"github.com/utcc/social-mentions/internal/models"
	"gopkg.in/gomail.v2"
)

// Service sends sentiment digests to Teams and email
type Service struct {
	config *config.Config
	client *resty.Client
	dial   func(m *gomail.Message) error
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.dial = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		return d.DialAndSend(m)
	}
	return s
}

// Enabled reports whether any channel is configured
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != ""
}

// SendReport sends a digest via every configured channel
func (s *Service) SendReport(report *models.Report) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(report *models.Report) error {
	message := buildTeamsMessage(report)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func subject(report *models.Report) string {
	prefix := "Mentions Digest"
	if report.Exceeded {
		prefix = "Negative Mentions Alert"
	}
	return fmt.Sprintf("%s - %s (%.1f%% negative of %d)", prefix, periodTitle(report.Period), report.NegativeShare, report.TotalMentions)
}

func periodTitle(period string) string {
	if period == "" {
		return ""
	}
	return strings.ToUpper(period[:1]) + period[1:]
}

func buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "0078D4",
		Title:      subject(report),
		Text: fmt.Sprintf("%d mentions analyzed, %.1f%% negative (threshold %.0f%%)",
			report.TotalMentions, report.NegativeShare, report.Threshold),
	}
	if report.Exceeded {
		message.ThemeColor = "D13438"
	}

	facts := []TeamsFact{
		{Name: "Total Mentions", Value: fmt.Sprintf("%d", report.TotalMentions)},
		{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}
	for _, b := range report.Distribution.Buckets() {
		facts = append(facts, TeamsFact{Name: b.Name, Value: fmt.Sprintf("%d", b.Value)})
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Sentiment",
		Facts:         facts,
		Markdown:      true,
	})

	if len(report.TopCategories) > 0 {
		var lines []string
		for _, c := range report.TopCategories {
			lines = append(lines, fmt.Sprintf("%s (%d)", c.Name, c.Count))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Faculties",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	if len(report.Negatives) > 0 {
		var lines []string
		for _, m := range report.Negatives {
			line := fmt.Sprintf("%s - %s", m.Category, truncate(m.Text, 120))
			if m.URL != "" {
				line = fmt.Sprintf("[%s](%s)", line, m.URL)
			}
			lines = append(lines, line)
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Latest Negative Mentions",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(report *models.Report) error {
	htmlBody, err := buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject(report))
	m.SetBody("text/plain", buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	if err := s.dial(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"truncate": truncate,
	"pct":      func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Mentions Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .header.alert { background-color: #d13438; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .mention { border-left: 4px solid #d13438; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .mention-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header{{if .Exceeded}} alert{{end}}">
        <h1>Mentions Digest</h1>
        <p>{{.Period}} digest generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM MST"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Total Mentions:</strong> {{.TotalMentions}}</p>
        {{range .Distribution.Buckets}}<p><strong>{{.Name}}:</strong> {{.Value}}</p>
        {{end}}
        <p><strong>Negative share:</strong> {{pct .NegativeShare}} (threshold {{pct .Threshold}})</p>
    </div>

    {{if .TopCategories}}
    <h2>Top Faculties</h2>
    <ol>{{range .TopCategories}}<li>{{.Name}} ({{.Count}})</li>{{end}}</ol>
    {{end}}

    {{if .TopKeywords}}
    <h2>Top Keywords</h2>
    <ol>{{range .TopKeywords}}<li>{{.Name}} ({{.Count}})</li>{{end}}</ol>
    {{end}}

    {{if .Negatives}}
    <h2>Latest Negative Mentions</h2>
    {{range .Negatives}}
        <div class="mention">
            <div class="mention-meta">{{.Category}} | {{.Day}}{{if .URL}} | <a href="{{.URL}}" target="_blank">open</a>{{end}}</div>
            <p>{{truncate .Text 200}}</p>
        </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by the social mentions dashboard.</small></p>
</body>
</html>
`))

func buildEmailHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(subject(report) + "\n")
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Total Mentions: %d\n", report.TotalMentions))
	for _, b := range report.Distribution.Buckets() {
		text.WriteString(fmt.Sprintf("%s: %d\n", b.Name, b.Value))
	}
	text.WriteString(fmt.Sprintf("Negative share: %.1f%% (threshold %.1f%%)\n", report.NegativeShare, report.Threshold))

	if len(report.TopCategories) > 0 {
		text.WriteString("\nTOP FACULTIES\n")
		text.WriteString("=============\n")
		for i, c := range report.TopCategories {
			text.WriteString(fmt.Sprintf("%d. %s (%d)\n", i+1, c.Name, c.Count))
		}
	}

	if len(report.Negatives) > 0 {
		text.WriteString("\nLATEST NEGATIVE MENTIONS\n")
		text.WriteString("========================\n")
		for i, m := range report.Negatives {
			text.WriteString(fmt.Sprintf("\n%d. [%s] %s\n", i+1, m.Category, truncate(m.Text, 200)))
			if m.URL != "" {
				text.WriteString(fmt.Sprintf("   URL: %s\n", m.URL))
			}
		}
	}

	text.WriteString("\n---\nThis digest was generated automatically by the social mentions dashboard.\n")

	return text.String()
}

// truncate cuts s to length runes
func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}
