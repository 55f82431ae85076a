package export

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"ccproxy-hq/ccproxy/pkg/config"
)

func sampleProviders() []config.Provider {
	return []config.Provider{
		{Name: config.NoteProviderName, Comment: "free text"},
		{
			Name:    "kimi.moonshot",
			BaseURL: "https://api.kimi.com/coding/v1/messages",
			Token:   "sk-1",
			Models:  []string{"kimi-k2", "kimi-k2-turbo"},
			Comment: "coding plan",
		},
		{
			Name:       "zai",
			BaseURL:    "https://open.bigmodel.cn/api/anthropic/v1/messages",
			APIKey:     "k2",
			WebsiteURL: "https://z.ai",
		},
		{Name: "raw", BaseURL: "https://x.example/v1", Token: "t"},
	}
}

func TestStripEndpoint(t *testing.T) {
	tests := []struct {
		in       string
		suffixes []string
		want     string
	}{
		{"https://a.example/v1/messages", claudeSuffixes, "https://a.example"},
		{"https://a.example/anthropic/v1/messages", claudeSuffixes, "https://a.example"},
		{"https://a.example/v1/chat/completions", claudeSuffixes, "https://a.example"},
		{"https://a.example/v1", claudeSuffixes, "https://a.example/v1"},
		{"https://a.example/v1", openAISuffixes, "https://a.example"},
		{"https://a.example/api/v1/messages", openAISuffixes, "https://a.example/api"},
		{"https://a.example", openAISuffixes, "https://a.example"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := StripEndpoint(tt.in, tt.suffixes); got != tt.want {
				t.Errorf("StripEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeID(t *testing.T) {
	tests := map[string]string{
		"runanytime.hxi.me": "runanytime_hxi_me",
		"01-Kimi K2":        "01-kimi_k2",
		"..a..b..":          "a_b",
		"智谱 GLM":            "glm",
		"ok_id-1":           "ok_id-1",
	}
	for in, want := range tests {
		if got := SanitizeID(in); got != want {
			t.Errorf("SanitizeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCLIProxy(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCLIProxy(&buf, sampleProviders())
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("wrote %d providers, want 3", n)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "# CLIProxyAPI") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, `alias: ""`) {
		t.Errorf("empty alias not written: %s", out)
	}
	if strings.Contains(out, config.NoteProviderName) {
		t.Error("Note provider exported")
	}

	var doc CLIProxyDocument
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid yaml: %v", err)
	}
	want := CLIProxyDocument{OpenAICompatibility: []CLIProxyProvider{
		{
			Name:          "kimi.moonshot",
			BaseURL:       "https://api.kimi.com/coding",
			APIKeyEntries: []CLIProxyAPIKey{{APIKey: "sk-1"}},
			Models:        []CLIProxyModel{{Name: "kimi-k2"}, {Name: "kimi-k2-turbo"}},
		},
		{
			Name:          "zai",
			BaseURL:       "https://open.bigmodel.cn/api",
			APIKeyEntries: []CLIProxyAPIKey{{APIKey: "k2"}},
		},
		{
			Name:          "raw",
			BaseURL:       "https://x.example",
			APIKeyEntries: []CLIProxyAPIKey{{APIKey: "t"}},
		},
	}}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("document = %+v\nwant %+v", doc, want)
	}
}

func TestCLIProxyEmpty(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCLIProxy(&buf, nil)
	if err != nil || n != 0 {
		t.Fatalf("WriteCLIProxy() = %d, %v", n, err)
	}
	if !strings.Contains(buf.String(), "openai-compatibility: []") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCCSwitchRows(t *testing.T) {
	rows, err := CCSwitchRows(sampleProviders(), CCSwitchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	kimi := rows[0]
	if kimi.ID != "kimi_moonshot" || kimi.Name != "kimi.moonshot" {
		t.Errorf("kimi id/name = %q/%q", kimi.ID, kimi.Name)
	}
	if want := `{"env":{"ANTHROPIC_AUTH_TOKEN":"sk-1","ANTHROPIC_BASE_URL":"https://api.kimi.com/coding"}}`; kimi.SettingsConfig != want {
		t.Errorf("settings_config = %s, want %s", kimi.SettingsConfig, want)
	}
	if kimi.Meta != `{"models":["kimi-k2","kimi-k2-turbo"]}` {
		t.Errorf("meta = %s", kimi.Meta)
	}
	if kimi.WebsiteURL != "https://api.kimi.com" || kimi.Notes != "coding plan" {
		t.Errorf("website/notes = %q/%q", kimi.WebsiteURL, kimi.Notes)
	}
	if !kimi.IsCurrent {
		t.Error("first exported provider should be current by default")
	}

	zai := rows[1]
	if zai.WebsiteURL != "https://z.ai" || zai.Meta != "{}" || zai.IsCurrent {
		t.Errorf("zai row = %+v", zai)
	}
	if !strings.Contains(zai.SettingsConfig, `"ANTHROPIC_BASE_URL":"https://open.bigmodel.cn/api"`) {
		t.Errorf("zai settings = %s", zai.SettingsConfig)
	}

	// /v1 alone is kept for cc-switch, which targets the Anthropic API.
	if !strings.Contains(rows[2].SettingsConfig, `"ANTHROPIC_BASE_URL":"https://x.example/v1"`) {
		t.Errorf("raw settings = %s", rows[2].SettingsConfig)
	}
}

func TestCCSwitchRowsOptions(t *testing.T) {
	providers := []config.Provider{
		{Name: "a.b", BaseURL: "https://a.example"},
		{Name: "a b", BaseURL: "https://b.example"},
	}

	rows, err := CCSwitchRows(providers, CCSwitchOptions{Current: "a b"})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].ID != "a_b" || rows[1].ID != "a_b_2" {
		t.Errorf("ids = %q, %q", rows[0].ID, rows[1].ID)
	}
	if rows[0].IsCurrent || !rows[1].IsCurrent {
		t.Error("current flag not applied to the named provider")
	}

	rows, err = CCSwitchRows(providers, CCSwitchOptions{Prefix: true})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Name != "01-a.b" || rows[1].Name != "02-a b" || rows[1].ID != "02-a_b" {
		t.Errorf("prefixed rows = %+v", rows)
	}
}

func TestWriteCCSwitch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cc-switch.db")
	ctx := context.Background()

	n, err := WriteCCSwitch(ctx, path, sampleProviders(), CCSwitchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("wrote %d rows, want 3", n)
	}

	// A second export replaces the rows rather than conflicting.
	if _, err := WriteCCSwitch(ctx, path, sampleProviders()[:2], CCSwitchOptions{}); err != nil {
		t.Fatalf("second export: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM providers`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("rows after second export = %d, want 1", count)
	}

	var (
		id, appType, name, category, meta string
		current                           bool
	)
	err = db.QueryRow(`SELECT id, app_type, name, category, meta, is_current FROM providers`).
		Scan(&id, &appType, &name, &category, &meta, &current)
	if err != nil {
		t.Fatal(err)
	}
	if id != "kimi_moonshot" || appType != "claude" || name != "kimi.moonshot" || category != "custom" || !current {
		t.Errorf("row = %s %s %s %s current=%v", id, appType, name, category, current)
	}
	if meta != `{"models":["kimi-k2","kimi-k2-turbo"]}` {
		t.Errorf("meta = %s", meta)
	}
}
