package notify

import (
    "bytes"
    "context"
    "fmt"
    "html"

    "go.uber.org/zap"
    "gopkg.in/gomail.v2"

    "github.com/iliyamo/hotel-reservation/internal/queue"
)

// ContactLookup resolves the recipient of a booking email.
type ContactLookup interface {
    Contact(ctx context.Context, userID uint64) (name, email string, err error)
}

type MailerConfig struct {
    Host     string
    Port     int
    User     string
    Password string
    From     string
}

// Mailer renders booking events as emails and sends them over SMTP.  It is
// both a Sender for the Dispatcher and a queue.Handler for the consumer.
// With no SMTP host configured it logs the message instead of sending.
type Mailer struct {
    cfg      MailerConfig
    contacts ContactLookup
    log      *zap.Logger
    send     func(*gomail.Message) error
}

func NewMailer(cfg MailerConfig, contacts ContactLookup, log *zap.Logger) *Mailer {
    m := &Mailer{cfg: cfg, contacts: contacts, log: log}
    if cfg.Host != "" {
        dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
        m.send = func(msg *gomail.Message) error { return dialer.DialAndSend(msg) }
    }
    return m
}

// Handle lets the Mailer consume events from the broker.
func (m *Mailer) Handle(ctx context.Context, ev queue.BookingEvent) error {
    return m.Send(ctx, ev)
}

func (m *Mailer) Send(ctx context.Context, ev queue.BookingEvent) error {
    name, email, err := m.contacts.Contact(ctx, ev.UserID)
    if err != nil {
        return fmt.Errorf("lookup recipient %d: %w", ev.UserID, err)
    }
    subject, text, htmlBody := render(ev, name)

    if m.send == nil {
        m.log.Info("email not sent: smtp disabled",
            zap.String("to", email),
            zap.String("subject", subject),
            zap.String("booking_id", ev.BookingID),
        )
        return nil
    }

    msg := gomail.NewMessage()
    msg.SetHeader("From", m.cfg.From)
    msg.SetAddressHeader("To", email, name)
    msg.SetHeader("Subject", subject)
    msg.SetBody("text/plain", text)
    msg.AddAlternative("text/html", htmlBody)

    if err := m.send(msg); err != nil {
        return fmt.Errorf("send email: %w", err)
    }
    return nil
}

func subjectFor(t queue.EventType, hotel string) string {
    switch t {
    case queue.BookingReceived:
        return "Booking received - " + hotel
    case queue.BookingCancelled:
        return "Booking cancelled - " + hotel
    default:
        return "Booking confirmed - " + hotel
    }
}

func leadFor(t queue.EventType) string {
    switch t {
    case queue.BookingReceived:
        return "we have received your booking. It will be held until payment is confirmed."
    case queue.BookingCancelled:
        return "your booking has been cancelled."
    default:
        return "your booking is confirmed."
    }
}

// render returns the subject and the plain-text and HTML bodies.
func render(ev queue.BookingEvent, name string) (subject, text, htmlBody string) {
    subject = subjectFor(ev.Type, ev.HotelName)
    if name == "" {
        name = "guest"
    }
    total := fmt.Sprintf("%d.%02d", ev.TotalPriceCents/100, ev.TotalPriceCents%100)

    rows := [][2]string{
        {"Booking", ev.BookingID},
        {"Hotel", ev.HotelName + ", " + ev.HotelLocation},
        {"Check-in", ev.CheckIn},
        {"Check-out", ev.CheckOut},
        {"Nights", fmt.Sprint(ev.Nights)},
        {"Guests", fmt.Sprint(ev.Guests)},
        {"Rooms", fmt.Sprint(ev.Rooms)},
        {"Total", total},
    }

    var tb bytes.Buffer
    fmt.Fprintf(&tb, "Hi %s,\n%s\n\n", name, leadFor(ev.Type))
    for _, r := range rows {
        fmt.Fprintf(&tb, "%-10s %s\n", r[0]+":", r[1])
    }

    var hb bytes.Buffer
    fmt.Fprintf(&hb, "<p>Hi %s,<br>%s</p><table>", html.EscapeString(name), html.EscapeString(leadFor(ev.Type)))
    for _, r := range rows {
        fmt.Fprintf(&hb, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", r[0], html.EscapeString(r[1]))
    }
    hb.WriteString("</table>")
    return subject, tb.String(), hb.String()
}
