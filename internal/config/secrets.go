package config

// Redacted returns a copy of c with secrets replaced by "***". Use it when
// printing or logging the active configuration.
func (c *Config) Redacted() Config {
	out := *c

	redact(&out.Nado.PrivateKey)
	redact(&out.Nado.KeyPassword)
	redact(&out.Lighter.PrivateKey)
	redact(&out.Lighter.KeyPassword)
	redact(&out.Postgres.DSN)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if c.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), c.Notify.Events...)
	}
	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
