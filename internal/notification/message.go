package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"hrm-server/internal/employee"
	"hrm-server/internal/events"
)

// Message is one rendered notification for one recipient.
type Message struct {
	Event         string
	ApplicationID string
	Subject       string
	HTML          string
	Text          string
}

var htmlBody = template.Must(template.New("notification").Parse(
	`<p>Hello {{.Name}},</p>
<p>{{.Headline}}</p>
<table>
<tr><td>Application</td><td>{{.Title}}</td></tr>
<tr><td>Type</td><td>{{.Type}}</td></tr>
<tr><td>Status</td><td>{{.Status}}</td></tr>
</table>
{{if .Note}}<blockquote>{{.Note}}</blockquote>{{end}}`))

func headline(event string) (subject, line string) {
	switch event {
	case events.NotifySubmitted:
		return "Approval requested", "A new application is waiting for your approval."
	case events.NotifyStageAdvance:
		return "Approval requested", "An application moved to your stage and is waiting for your approval."
	case events.NotifyApproved:
		return "Application approved", "Your application has been approved."
	case events.NotifyRejected:
		return "Application rejected", "Your application has been rejected."
	case events.NotifyCommented:
		return "New comment", "There is a new comment on an application."
	case events.NotifyCancelled:
		return "Application cancelled", "An application you were involved with has been cancelled."
	}
	return "Application update", "An application has been updated."
}

// Compose renders the subject and both bodies for a notification.
func Compose(n events.ApplicationNotification, to employee.Contact) (Message, error) {
	subject, line := headline(n.Event)
	title := n.Title
	if title == "" {
		title = n.ApplicationID
	}

	var buf bytes.Buffer
	err := htmlBody.Execute(&buf, map[string]string{
		"Name":     to.Name,
		"Headline": line,
		"Title":    title,
		"Type":     n.ApplicationType,
		"Status":   n.Status,
		"Note":     n.Message,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render notification html: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Hello %s,\n\n%s\n\nApplication: %s\nType: %s\nStatus: %s\n", to.Name, line, title, n.ApplicationType, n.Status)
	if n.Message != "" {
		fmt.Fprintf(&text, "\n%s\n", n.Message)
	}

	return Message{
		Event:         n.Event,
		ApplicationID: n.ApplicationID,
		Subject:       fmt.Sprintf("%s: %s", subject, title),
		HTML:          buf.String(),
		Text:          text.String(),
	}, nil
}
