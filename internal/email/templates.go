package email

import (
	"bytes"
	"text/template"
)

// Templates de los correos transaccionales. Los links llevan el token como
// query param y apuntan al cliente web.

var invitationText = template.Must(template.New("invitation.txt").Parse(`Hello{{if .FirstName}} {{.FirstName}}{{end}},

You have been invited to join BioSentiers as {{.Role}}.

Follow this link to create your account:

{{.Link}}

The link expires in {{.Validity}}.
`))

var invitationHTML = template.Must(template.New("invitation.html").Parse(`<p>Hello{{if .FirstName}} {{.FirstName}}{{end}},</p>
<p>You have been invited to join BioSentiers as <strong>{{.Role}}</strong>.</p>
<p><a href="{{.Link}}">Create your account</a></p>
<p>The link expires in {{.Validity}}.</p>
`))

var passwordResetText = template.Must(template.New("reset.txt").Parse(`Hello{{if .FirstName}} {{.FirstName}}{{end}},

Someone requested a password reset for your BioSentiers account.
If it was not you, you can safely ignore this message.

Follow this link to choose a new password:

{{.Link}}

The link expires in {{.Validity}}.
`))

var passwordResetHTML = template.Must(template.New("reset.html").Parse(`<p>Hello{{if .FirstName}} {{.FirstName}}{{end}},</p>
<p>Someone requested a password reset for your BioSentiers account.
If it was not you, you can safely ignore this message.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>The link expires in {{.Validity}}.</p>
`))

type templateVars struct {
	FirstName string
	Role      string
	Link      string
	Validity  string
}

func render(t *template.Template, vars templateVars) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
