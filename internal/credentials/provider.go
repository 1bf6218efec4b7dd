// Package credentials abstracts where API tokens come from. The sync
// core never talks to a specific storage backend; it asks a Provider.
package credentials

import "os"

// Environment variable names for token overrides.
const (
	EnvCanvasToken = "CNSYNC_CANVAS_TOKEN"
	EnvNotionToken = "CNSYNC_NOTION_TOKEN"
)

// Provider supplies API tokens. An empty token with a nil error means
// "not configured here"; chains use that to fall through.
type Provider interface {
	CanvasToken() (string, error)
	NotionToken() (string, error)
}

// Static holds fixed tokens, used by tests and one-shot CLI flags.
type Static struct {
	Canvas string
	Notion string
}

func (s Static) CanvasToken() (string, error) { return s.Canvas, nil }
func (s Static) NotionToken() (string, error) { return s.Notion, nil }

// Env reads tokens from environment variables.
type Env struct{}

func (Env) CanvasToken() (string, error) { return os.Getenv(EnvCanvasToken), nil }
func (Env) NotionToken() (string, error) { return os.Getenv(EnvNotionToken), nil }

// PreferencesSource is the subset of the store the preference-backed
// provider needs.
type PreferencesSource interface {
	CredentialTokens() (canvasToken, notionToken string, err error)
}

// FromPreferences reads tokens from the persisted preferences.
type FromPreferences struct {
	Source PreferencesSource
}

func (p FromPreferences) CanvasToken() (string, error) {
	canvasToken, _, err := p.Source.CredentialTokens()
	return canvasToken, err
}

func (p FromPreferences) NotionToken() (string, error) {
	_, notionToken, err := p.Source.CredentialTokens()
	return notionToken, err
}

// Chain tries providers in order and returns the first non-empty token.
type Chain []Provider

func (c Chain) CanvasToken() (string, error) {
	for _, p := range c {
		tok, err := p.CanvasToken()
		if err != nil {
			return "", err
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", nil
}

func (c Chain) NotionToken() (string, error) {
	for _, p := range c {
		tok, err := p.NotionToken()
		if err != nil {
			return "", err
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", nil
}
