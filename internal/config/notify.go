package config

import "time"

// NotifyConfig configures booking notifications.  With AMQPURL set,
// events are published to RabbitMQ and a consumer sends the emails;
// otherwise the dispatcher mails directly.  An empty SMTPHost disables
// email delivery and messages are only logged.
type NotifyConfig struct {
    AMQPURL      string
    Queue        string
    Buffer       int
    Workers      int
    MaxAttempts  int
    SMTPHost     string
    SMTPPort     int
    SMTPUser     string
    SMTPPassword string
    MailFrom     string
    SendTimeout  time.Duration
}

func LoadNotifyConfig() NotifyConfig {
    c := NotifyConfig{
        AMQPURL:      envStr("RABBITMQ_URL", ""),
        Queue:        envStr("BOOKING_EVENTS_QUEUE", "booking.events"),
        Buffer:       envInt("NOTIFY_BUFFER", 256),
        Workers:      envInt("NOTIFY_WORKERS", 2),
        MaxAttempts:  envInt("NOTIFY_MAX_ATTEMPTS", 5),
        SMTPHost:     envStr("SMTP_HOST", ""),
        SMTPPort:     envInt("SMTP_PORT", 587),
        SMTPUser:     envStr("SMTP_USER", ""),
        SMTPPassword: envStr("SMTP_PASSWORD", ""),
        MailFrom:     envStr("MAIL_FROM", "bookings@hotel-reservation.local"),
        SendTimeout:  envDur("NOTIFY_SEND_TIMEOUT", 10*time.Second),
    }
    if c.Buffer < 1 { c.Buffer = 1 }
    if c.Workers < 1 { c.Workers = 1 }
    if c.MaxAttempts < 1 { c.MaxAttempts = 1 }
    return c
}
