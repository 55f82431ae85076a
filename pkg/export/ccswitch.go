package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tidwall/sjson"
	_ "modernc.org/sqlite" // SQLite driver

	"ccproxy-hq/ccproxy/pkg/config"
)

// ccswitchSchema is the cc-switch providers table.
const ccswitchSchema = `
CREATE TABLE IF NOT EXISTS providers (
    id TEXT NOT NULL,
    app_type TEXT NOT NULL,
    name TEXT NOT NULL,
    settings_config TEXT NOT NULL,
    website_url TEXT,
    category TEXT,
    created_at INTEGER,
    sort_index INTEGER,
    notes TEXT,
    icon TEXT,
    icon_color TEXT,
    meta TEXT NOT NULL DEFAULT '{}',
    is_current BOOLEAN NOT NULL DEFAULT 0,
    PRIMARY KEY (id, app_type)
);`

const (
	ccswitchAppType  = "claude"
	ccswitchCategory = "custom"
)

const insertProvider = `
INSERT INTO providers (id, app_type, name, settings_config, website_url, category, notes, meta, is_current)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CCSwitchOptions controls a cc-switch export.
type CCSwitchOptions struct {
	// Current names the provider marked is_current. Empty means the first
	// exported provider.
	Current string

	// Prefix prepends a two-digit position ("01-") to names so cc-switch
	// lists providers in configuration order.
	Prefix bool

	Logger *slog.Logger
}

// CCSwitchRow is one providers row.
type CCSwitchRow struct {
	ID             string
	Name           string
	SettingsConfig string
	WebsiteURL     string
	Notes          string
	Meta           string
	IsCurrent      bool
}

// CCSwitchRows converts providers into cc-switch rows. Ids that collide
// after sanitizing get a numeric suffix.
func CCSwitchRows(providers []config.Provider, opts CCSwitchOptions) ([]CCSwitchRow, error) {
	list := exportable(providers)
	current := opts.Current
	if current == "" && len(list) > 0 {
		current = list[0].Name
	}

	rows := make([]CCSwitchRow, 0, len(list))
	seen := make(map[string]int, len(list))
	for i, p := range list {
		name := p.Name
		if opts.Prefix {
			name = fmt.Sprintf("%02d-%s", i+1, name)
		}

		id := SanitizeID(name)
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id += "_" + strconv.Itoa(n+1)
		} else {
			seen[id] = 1
		}

		baseURL := StripEndpoint(p.BaseURL, claudeSuffixes)
		settings, err := sjson.Set(`{"env":{}}`, "env.ANTHROPIC_AUTH_TOKEN", p.Credential())
		if err == nil {
			settings, err = sjson.Set(settings, "env.ANTHROPIC_BASE_URL", baseURL)
		}
		if err != nil {
			return nil, fmt.Errorf("provider %q settings: %w", p.Name, err)
		}

		meta := "{}"
		if len(p.Models) > 0 {
			if meta, err = sjson.Set(meta, "models", p.Models); err != nil {
				return nil, fmt.Errorf("provider %q meta: %w", p.Name, err)
			}
		}

		website := p.WebsiteURL
		if website == "" {
			website = siteURL(baseURL)
		}

		rows = append(rows, CCSwitchRow{
			ID:             id,
			Name:           name,
			SettingsConfig: settings,
			WebsiteURL:     website,
			Notes:          p.Comment,
			Meta:           meta,
			IsCurrent:      p.Name == current,
		})
	}
	return rows, nil
}

// WriteCCSwitch writes providers into the cc-switch database at path,
// creating it if needed. Existing claude rows are replaced in one
// transaction. It returns the number of rows written.
func WriteCCSwitch(ctx context.Context, path string, providers []config.Provider, opts CCSwitchOptions) (int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "export.ccswitch")

	rows, err := CCSwitchRows(providers, opts)
	if err != nil {
		return 0, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, ccswitchSchema); err != nil {
		return 0, fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM providers WHERE app_type = ?`, ccswitchAppType); err != nil {
		return 0, fmt.Errorf("failed to clear providers: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertProvider)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.ID, ccswitchAppType, r.Name, r.SettingsConfig, r.WebsiteURL,
			ccswitchCategory, r.Notes, r.Meta, r.IsCurrent,
		); err != nil {
			return 0, fmt.Errorf("failed to insert provider %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	logger.Info("cc-switch export written", "path", path, "providers", len(rows))
	return len(rows), nil
}
