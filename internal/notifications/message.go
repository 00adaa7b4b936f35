// Package notifications writes in-app reminder messages and serves the
// recipient's inbox. Nothing is delivered outside the Notifications
// collection.
package notifications

import (
	"strings"
	"time"
)

// dateLayout mirrors the en-US locale string the web client shows.
const dateLayout = "1/2/2006, 3:04:05 PM"

type Recipient struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// EventContext describes what a reminder is about. Every field is
// optional.
type EventContext struct {
	EventID          string
	EventName        string
	EventDate        time.Time
	EventDescription string
	SenderID         string
	SenderName       string
}

type Message struct {
	To      string
	Subject string
	Body    string
}

// ComposeMessage renders the reminder for one recipient.
func ComposeMessage(r Recipient, ev EventContext, loc *time.Location) Message {
	subject := "Reminder: Submit Your Volunteer Hours"
	if ev.EventName != "" {
		subject = "Reminder: Submit Your Hours for " + ev.EventName
	}

	name := r.FirstName
	if r.LastName != "" {
		name += " " + r.LastName
	}

	var b strings.Builder
	b.WriteString("Dear " + name + ",\n\n")
	if ev.EventName != "" {
		b.WriteString("This is a reminder to submit your volunteer hours for the event: " + ev.EventName + ".\n\n")
	} else {
		b.WriteString("This is a reminder to submit your volunteer hours.\n\n")
	}
	if !ev.EventDate.IsZero() {
		if loc == nil {
			loc = time.UTC
		}
		b.WriteString("Event Date: " + ev.EventDate.In(loc).Format(dateLayout) + "\n")
	}
	if ev.EventDescription != "" {
		b.WriteString("\nEvent Description: " + ev.EventDescription + "\n")
	}
	b.WriteString("\nPlease log in to the volunteer portal to submit your hours.\n\n")
	b.WriteString("Thank you for your service!\n\n")
	b.WriteString("Best regards,\nVolunteer Management Team")

	return Message{To: r.Email, Subject: subject, Body: b.String()}
}
