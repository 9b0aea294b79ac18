// Package email delivers transactional auth emails.
//
// EmailSender has two implementations: PostmarkSender for production and
// DevSender, which writes each message to disk as HTML plus JSON metadata.
// AuthNotifier renders the verification and password reset emails with templ
// and satisfies auth.Notifier:
//
//	sender := email.NewDevSender(cfg.DevDir, nil)
//	notifier, err := email.NewAuthNotifier(sender, cfg)
//	svc, err := auth.NewService(repo, pw, tokens, limiters, auth.WithNotifier(notifier))
//
// All senders validate SendEmailParams first and return ErrInvalidParams
// joined with the validator errors on bad input.
package email
