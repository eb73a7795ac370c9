package templates

import (
	"bytes"
	"html/template"
	"time"
)

type PasswordResetEmailData struct {
	Name      string
	ResetLink string
	ExpiresIn time.Duration
}

const passwordResetHTML = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8"/>
  <title>Reset your Aristo password</title>
  <style>
    body {
      margin: 0;
      padding: 0;
      font-family: Arial, sans-serif;
      background-color: #0b1020;
      color: #1f2937;
    }
    .email-container {
      width: 100%;
      max-width: 560px;
      margin: 0 auto;
      background-color: #ffffff;
      border-radius: 12px;
      overflow: hidden;
    }
    .header {
      background: linear-gradient(135deg, #4f46e5, #7c3aed);
      padding: 24px;
      text-align: center;
      color: #fff;
    }
    .content {
      padding: 24px 32px;
      line-height: 1.6;
    }
    .cta-button {
      display: inline-block;
      padding: 12px 28px;
      background-color: #4f46e5;
      color: #ffffff !important;
      text-decoration: none;
      border-radius: 999px;
      font-weight: bold;
    }
    .button-container {
      text-align: center;
      margin: 24px 0;
    }
    .footer {
      padding: 16px;
      text-align: center;
      font-size: 12px;
      color: #9ca3af;
    }
  </style>
</head>
<body>
  <table class="email-container" role="presentation" cellspacing="0" cellpadding="0">
    <tr>
      <td>
        <div class="header">
          <h1>ARISTO</h1>
        </div>
        <div class="content">
          {{if .Name}}
            <p>Hi {{.Name}},</p>
          {{else}}
            <p>Hello Scholar,</p>
          {{end}}
          <p>We received a request to reset the password for your Aristo account.</p>
          <div class="button-container">
            <a class="cta-button" href="{{.ResetLink}}">Reset Password</a>
          </div>
          <p>This link expires in {{minutes .ExpiresIn}} minutes. If you did not ask for a reset you can ignore this email.</p>
        </div>
        <div class="footer">
          <p>Aristo Academic Companion</p>
        </div>
      </td>
    </tr>
  </table>
</body>
</html>
`

var passwordResetTmpl = template.Must(template.New("password_reset").Funcs(template.FuncMap{
	"minutes": func(d time.Duration) int { return int(d.Minutes()) },
}).Parse(passwordResetHTML))

func RenderPasswordResetHTML(data PasswordResetEmailData) (string, error) {
	var buf bytes.Buffer
	if err := passwordResetTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PasswordResetText is the plain text alternative of the reset email.
func PasswordResetText(data PasswordResetEmailData) string {
	return "Reset your Aristo password: " + data.ResetLink
}
