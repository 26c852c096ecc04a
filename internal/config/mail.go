package config

// MailConfig holds SMTP settings for the notification consumer.  With no
// host configured, messages are logged instead of sent.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LoadMailConfig reads SMTP_* variables.
func LoadMailConfig() MailConfig {
	return MailConfig{
		Host:     getenv("SMTP_HOST", ""),
		Port:     envInt("SMTP_PORT", 587),
		Username: getenv("SMTP_USERNAME", ""),
		Password: getenv("SMTP_PASSWORD", ""),
		From:     getenv("SMTP_FROM", "no-reply@cinema.local"),
	}
}
