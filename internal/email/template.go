// Package email renders outreach templates and dispatches bulk
// campaigns over SMTP.
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Template is one outreach email template. Placeholders use the
// {variable_name} form in the subject and both bodies.
type Template struct {
	Name     string `yaml:"name"`
	Subject  string `yaml:"subject"`
	HTMLBody string `yaml:"html_body"`
	TextBody string `yaml:"text_body"`
}

// Rendered is a template with all placeholders substituted.
type Rendered struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// MissingVariableError reports a placeholder with no value. Rendering
// fails rather than sending outreach with a literal "{name}" in it.
type MissingVariableError struct {
	Template string
	Variable string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("email: template %q references undefined variable %q", e.Template, e.Variable)
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Render substitutes variables into the template. Every placeholder
// must have a value; the first missing one aborts with
// MissingVariableError.
func Render(tpl Template, vars map[string]string) (Rendered, error) {
	subject, err := substitute(tpl.Name, tpl.Subject, vars)
	if err != nil {
		return Rendered{}, err
	}
	htmlBody, err := substitute(tpl.Name, tpl.HTMLBody, vars)
	if err != nil {
		return Rendered{}, err
	}
	textBody, err := substitute(tpl.Name, tpl.TextBody, vars)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Subject: subject, HTMLBody: htmlBody, TextBody: textBody}, nil
}

func substitute(tplName, s string, vars map[string]string) (string, error) {
	var missing *MissingVariableError
	out := placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.Trim(m, "{}")
		v, ok := vars[name]
		if !ok {
			if missing == nil {
				missing = &MissingVariableError{Template: tplName, Variable: name}
			}
			return m
		}
		return v
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}

// LoadTemplates reads every *.yaml/*.yml file in dir as one Template.
// A file's base name is used when the template declares no name.
func LoadTemplates(dir string) (map[string]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "email: read template dir %q", dir)
	}

	templates := make(map[string]Template)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, eris.Wrapf(err, "email: read template %q", entry.Name())
		}

		var tpl Template
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return nil, eris.Wrapf(err, "email: parse template %q", entry.Name())
		}
		if tpl.Name == "" {
			tpl.Name = strings.TrimSuffix(entry.Name(), ext)
		}
		if tpl.Subject == "" {
			return nil, eris.Errorf("email: template %q has no subject", tpl.Name)
		}
		templates[tpl.Name] = tpl
	}

	return templates, nil
}

// DefaultTemplates returns the built-in template set, used when no
// template directory is configured.
func DefaultTemplates() map[string]Template {
	return map[string]Template{
		"business_intro": {
			Name:    "business_intro",
			Subject: "Business Partnership Opportunity - {your_company_name}",
			HTMLBody: `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<h2 style="color: #2c5aa0;">Hello from {your_company_name}!</h2>
<p>Dear {business_name} Team,</p>
<p>I hope this message finds you well. My name is {sender_name}, and I represent {your_company_name}.</p>
<p>We are interested in exploring potential business opportunities with your organization. Our company specializes in {product_requirements} and we believe there may be synergies between our businesses.</p>
<p>Would you be interested in discussing potential collaboration opportunities? I would be happy to schedule a call at your convenience.</p>
<p>Best regards,<br>
{sender_name}<br>
{your_company_name}<br>
Email: {your_email}<br>
Phone: {your_phone}</p>
</div>
</body>
</html>`,
			TextBody: "Hello from {your_company_name}! We are interested in exploring business opportunities with {business_name}.",
		},
	}
}

// DefaultVariables returns placeholder campaign variables for templates
// rendered without caller-supplied values.
func DefaultVariables() map[string]string {
	return map[string]string{
		"your_company_name":    "Your Company Name",
		"sender_name":          "Your Name",
		"your_phone":           "Your Phone Number",
		"your_email":           "your.email@example.com",
		"product_requirements": "High-quality timber and wood products",
	}
}
