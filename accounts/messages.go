package accounts

import (
	"fmt"

	"github.com/jrsteele09/go-forum-accounts/mail"
)

func confirmationMessage(appName, to, link string) mail.Message {
	return mail.Message{
		To:      to,
		Subject: appName + " - Confirmacao e-mail",
		Body:    fmt.Sprintf("Bem vindo ao %s, use o codigo %s, para confirmar o seu endereço de e-mail", appName, link),
	}
}

func resetPasswordMessage(appName, to, link string) mail.Message {
	return mail.Message{
		To:      to,
		Subject: appName + " - Alteracao de senha",
		Body:    fmt.Sprintf("Clique no link %s para alterar a sua senha do %s. Se voce nao pediu a alteracao ignore este e-mail.", link, appName),
	}
}
