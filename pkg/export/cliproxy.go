package export

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"ccproxy-hq/ccproxy/pkg/config"
)

const cliproxyHeader = "# CLIProxyAPI openai-compatibility providers, exported by ccproxy\n\n"

// CLIProxyDocument is the top-level CLIProxyAPI document.
type CLIProxyDocument struct {
	OpenAICompatibility []CLIProxyProvider `yaml:"openai-compatibility"`
}

// CLIProxyProvider is one openai-compatibility entry.
type CLIProxyProvider struct {
	Name          string           `yaml:"name"`
	BaseURL       string           `yaml:"base-url"`
	APIKeyEntries []CLIProxyAPIKey `yaml:"api-key-entries"`
	Models        []CLIProxyModel  `yaml:"models,omitempty"`
}

// CLIProxyAPIKey is one api-key-entries item.
type CLIProxyAPIKey struct {
	APIKey string `yaml:"api-key"`
}

// CLIProxyModel is one models item. Alias is always written, empty.
type CLIProxyModel struct {
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"`
}

// CLIProxy builds the CLIProxyAPI document for providers.
func CLIProxy(providers []config.Provider) CLIProxyDocument {
	doc := CLIProxyDocument{OpenAICompatibility: []CLIProxyProvider{}}
	for _, p := range exportable(providers) {
		entry := CLIProxyProvider{
			Name:          p.Name,
			BaseURL:       StripEndpoint(p.BaseURL, openAISuffixes),
			APIKeyEntries: []CLIProxyAPIKey{{APIKey: p.Credential()}},
		}
		for _, m := range p.Models {
			entry.Models = append(entry.Models, CLIProxyModel{Name: m})
		}
		doc.OpenAICompatibility = append(doc.OpenAICompatibility, entry)
	}
	return doc
}

// WriteCLIProxy writes the CLIProxyAPI YAML for providers to w and returns
// the number of providers written.
func WriteCLIProxy(w io.Writer, providers []config.Provider) (int, error) {
	doc := CLIProxy(providers)

	var buf bytes.Buffer
	buf.WriteString(cliproxyHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("encode cliproxy yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("encode cliproxy yaml: %w", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("write cliproxy yaml: %w", err)
	}
	return len(doc.OpenAICompatibility), nil
}
