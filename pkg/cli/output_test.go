package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

type testTable struct {
	rows [][]string
}

func (t testTable) Header() []string { return []string{"provider", "models"} }
func (t testTable) Rows() [][]string { return t.rows }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"junit", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	t.Run("plain value", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := (&TextFormatter{}).FormatTo(buf, "test message"); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "test message\n" {
			t.Errorf("FormatTo() = %q", buf.String())
		}
	})

	t.Run("table", func(t *testing.T) {
		buf := &bytes.Buffer{}
		data := testTable{rows: [][]string{{"alpha", "2"}, {"a-much-longer-name", "10"}}}
		if err := (&TextFormatter{}).FormatTo(buf, data); err != nil {
			t.Fatal(err)
		}

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("got %d lines: %q", len(lines), buf.String())
		}
		col := strings.Index(lines[0], "models")
		if col < 0 || strings.Index(lines[2], "10") != col {
			t.Errorf("columns not aligned:\n%s", buf.String())
		}
	})
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	data := map[string]string{"test": "value"}

	if err := (&JSONFormatter{Indent: true}).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("FormatTo() produced invalid JSON: %v", err)
	}
	if result["test"] != "value" {
		t.Errorf("FormatTo() = %v, want %v", result, data)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("indented output expected")
	}
}

func TestCSVFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	data := testTable{rows: [][]string{{"alpha", "a,b"}}}
	if err := (&CSVFormatter{}).FormatTo(buf, data); err != nil {
		t.Fatal(err)
	}
	if want := "provider,models\nalpha,\"a,b\"\n"; buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	if err := (&CSVFormatter{}).FormatTo(buf, 42); err == nil {
		t.Error("non-tabular data should fail")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "*cli.TextFormatter"},
		{FormatJSON, "*cli.JSONFormatter"},
		{FormatCSV, "*cli.CSVFormatter"},
		{"unknown", "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got := fmt.Sprintf("%T", NewFormatter(tt.format))
			if got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}
