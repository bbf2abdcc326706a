package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/bissquit/barber-queue/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders queue messages from templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":      titleCase,
		"formatWait": formatWait,
		"ordinal":    ordinal,
	}

	r := &Renderer{
		templates: make(map[string]*template.Template),
	}

	channels := []domain.ChannelType{domain.ChannelTypeWhatsApp, domain.ChannelTypeSMS}
	for _, channel := range channels {
		for _, kind := range messageKinds {
			name := templateName(channel, kind)
			filename := fmt.Sprintf("templates/%s.tmpl", name)

			content, err := templatesFS.ReadFile(filename)
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", filename, err)
			}

			tmpl, err := template.New(name).Funcs(funcMap).Parse(string(content))
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}

			r.templates[name] = tmpl
		}
	}

	return r, nil
}

// Render renders msg for the specified channel type.
func (r *Renderer) Render(channelType domain.ChannelType, msg Message) (string, error) {
	name := templateName(channelType, msg.Kind)
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}

	data := msg.Data
	if data.SalonName == "" {
		data.SalonName = data.BarberName
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

func templateName(channelType domain.ChannelType, kind MessageKind) string {
	return fmt.Sprintf("%s_%s", channelType, kind)
}

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

func formatWait(minutes int) string {
	if minutes <= 0 {
		return "a few minutes"
	}

	hours := minutes / 60
	rest := minutes % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%d min", rest)
	case rest == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dmin", hours, rest)
	}
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
