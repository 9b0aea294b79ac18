package email

// Config configures outgoing mail. Postmark is used when both tokens are set;
// otherwise mail is written to DevDir.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"EMAIL_SENDER" envDefault:"no-reply@inspectauth.local"`
	SupportEmail         string `env:"EMAIL_SUPPORT" envDefault:"support@inspectauth.local"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:".emails"`

	// BaseURL prefixes the links in verification and reset emails.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	AppName string `env:"APP_NAME" envDefault:"Inspect"`
}

// UsePostmark reports whether Postmark credentials are configured.
func (c Config) UsePostmark() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}
