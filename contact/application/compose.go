package application

import (
	"fmt"

	"contact-gateway/contact/domain"
)

const senderName = "Portfolio Contact"

// ComposeEmail monta o e-mail a partir de uma Submission já sanitizada.
// Os campos entram verbatim; nada é escapado aqui.
func ComposeEmail(sub domain.Submission, sender, receiver string) domain.Email {
	return domain.Email{
		From:    fmt.Sprintf("%s <%s>", senderName, sender),
		To:      receiver,
		ReplyTo: sub.Email,
		Subject: "New message from " + sub.Name,
		Text:    fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s", sub.Name, sub.Email, sub.Message),
		HTML: fmt.Sprintf(`
<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Message:</strong></p>
<p>%s</p>
`, sub.Name, sub.Email, sub.Message),
	}
}
