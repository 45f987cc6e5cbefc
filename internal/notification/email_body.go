package notification

import (
	"bytes"
	"html/template"
	"strings"
)

var emailTemplate = template.Must(template.New("email").Parse(`<html>
  <body style="font-family: Arial, sans-serif;">
    <div style="max-width: 600px; margin: 0 auto;">
      <h2 style="color: #333;">PIM Academic System</h2>
      <div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
        {{range $i, $line := .}}{{if $i}}<br>{{end}}{{$line}}{{end}}
      </div>
      <p style="color: #666; font-size: 12px; margin-top: 20px;">
        This is an automated message from the PIM Academic System.
      </p>
    </div>
  </body>
</html>
`))

// renderEmailBody frames a plain-text message in the HTML email layout.
// Line breaks become <br>; everything else is escaped.
func renderEmailBody(message string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, lines); err != nil {
		return "", err
	}
	return buf.String(), nil
}
