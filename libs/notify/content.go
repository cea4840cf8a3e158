package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/lashstudio/studio-backend/libs/model"
)

// Facts are the appointment details a message is rendered from.
type Facts struct {
	ClientName  string
	ServiceName string
	Date        time.Time
	Time        string
}

func FactsFrom(a model.Appointment) Facts {
	return Facts{
		ClientName:  a.Client.Name,
		ServiceName: a.Service.Name,
		Date:        a.DateTime.Date,
		Time:        a.DateTime.Time,
	}
}

type Message struct {
	Subject string
	Body    string
}

const displayDate = "January 02, 2006"

var emailTemplates = template.Must(template.New("confirmation").Parse(`<html>
<body>
    <h2>Appointment Confirmed!</h2>
    <p>Dear {{.ClientName}},</p>
    <p>Your appointment has been confirmed for:</p>
    <ul>
        <li><strong>Service:</strong> {{.ServiceName}}</li>
        <li><strong>Date:</strong> {{.Date}}</li>
        <li><strong>Time:</strong> {{.Time}}</li>
    </ul>
    <p>We look forward to seeing you!</p>
    <p>Best regards,<br>Your Beauty Team</p>
</body>
</html>
`))

func init() {
	template.Must(emailTemplates.New("reminder").Parse(`<html>
<body>
    <h2>Appointment Reminder</h2>
    <p>Dear {{.ClientName}},</p>
    <p>This is a friendly reminder that you have an appointment in {{.Hours}} hours:</p>
    <ul>
        <li><strong>Service:</strong> {{.ServiceName}}</li>
        <li><strong>Date:</strong> {{.Date}}</li>
        <li><strong>Time:</strong> {{.Time}}</li>
    </ul>
    <p>Please arrive 10 minutes early. If you need to reschedule, please contact us as soon as possible.</p>
    <p>Best regards,<br>Your Beauty Team</p>
</body>
</html>
`))
}

type templateData struct {
	ClientName  string
	ServiceName string
	Date        string
	Time        string
	Hours       int
}

// Render produces the message for kind on channel. SMS messages have no subject.
// It panics on a kind the scheduler never produces.
func Render(kind model.Kind, ch model.Channel, f Facts) Message {
	data := templateData{
		ClientName:  f.ClientName,
		ServiceName: f.ServiceName,
		Date:        f.Date.Format(displayDate),
		Time:        f.Time,
		Hours:       kind.LeadHours,
	}

	switch kind.Tag {
	case model.KindConfirmation:
		if ch == model.ChannelSMS {
			return Message{Body: fmt.Sprintf("Hi %s! Your %s appointment is confirmed for %s at %s. See you soon!",
				data.ClientName, data.ServiceName, data.Date, data.Time)}
		}
		return Message{
			Subject: "Appointment Confirmation - " + data.ServiceName,
			Body:    execute("confirmation", data),
		}
	case model.KindReminder:
		if ch == model.ChannelSMS {
			return Message{Body: fmt.Sprintf("Reminder: Your %s appointment is in %d hours on %s at %s. Please arrive 10 mins early!",
				data.ServiceName, data.Hours, data.Date, data.Time)}
		}
		return Message{
			Subject: "Reminder: Upcoming Appointment - " + data.ServiceName,
			Body:    execute("reminder", data),
		}
	}
	panic(fmt.Sprintf("notify: render called with unknown kind %+v", kind))
}

func execute(name string, data templateData) string {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		// The templates are static and the data is plain strings.
		panic(err)
	}
	return buf.String()
}
