package oracle

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/cbroglie/mustache"
)

//go:embed prompts/*.mustache
var promptFS embed.FS

var (
	templatesOnce sync.Once
	templates     map[string]*mustache.Template
	templatesErr  error
)

func loadTemplates() (map[string]*mustache.Template, error) {
	templatesOnce.Do(func() {
		entries, err := promptFS.ReadDir("prompts")
		if err != nil {
			templatesErr = err
			return
		}
		out := make(map[string]*mustache.Template, len(entries))
		for _, e := range entries {
			src, err := promptFS.ReadFile(path.Join("prompts", e.Name()))
			if err != nil {
				templatesErr = err
				return
			}
			// Prompts are plain text; HTML escaping would mangle code.
			tmpl, err := mustache.ParseStringRaw(string(src), true)
			if err != nil {
				templatesErr = fmt.Errorf("parse prompt %s: %w", e.Name(), err)
				return
			}
			out[strings.TrimSuffix(e.Name(), ".mustache")] = tmpl
		}
		templates = out
	})
	return templates, templatesErr
}

func render(name string, data map[string]any) (string, error) {
	tmpls, err := loadTemplates()
	if err != nil {
		return "", err
	}
	tmpl, ok := tmpls[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	out, err := tmpl.Render(data)
	if err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

// prompt renders a system and a user template with the same data.
func prompt(system, user string, data map[string]any) (Prompt, error) {
	sys, err := render(system, data)
	if err != nil {
		return Prompt{}, err
	}
	usr, err := render(user, data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: sys, User: usr}, nil
}
