package chat

import (
	"strings"
	"testing"

	"github.com/Ethan225300/mbspro/vars"
)

func TestSliceJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", `Sure, here you go: {"a": 1} hope that helps`, `{"a": 1}`},
		{"nested", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"no braces", "no json at all", "no json at all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SliceJSONObject(tt.raw); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSliceJSONArray(t *testing.T) {
	raw := "```json\n[\"36\", \"44\"]\n```"
	if got := SliceJSONArray(raw); got != `["36", "44"]` {
		t.Errorf("got %q", got)
	}
}

func TestRenderPrompt(t *testing.T) {
	out, err := RenderPrompt("note: {{.Note}} on {{.CurrentDate}}", map[string]string{
		"Note":        "chest pain",
		"CurrentDate": "2025-07-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "chest pain") || !strings.Contains(out, "2025-07-01") {
		t.Errorf("rendered = %q", out)
	}
}

// Every registered prompt must render with the standard template data
// and demand JSON-only output.
func TestPromptRegistry(t *testing.T) {
	data := map[string]any{
		"CurrentDate": "2025-07-01",
		"Note":        "gp review",
		"Query":       "gp review",
		"Constraints": "+duration:20-40",
		"Candidates":  "36 | A1 | ~30min | 0.9 | attendance",
		"TopK":        5,
		"Banned":      "3, 44",
		"Context":     "Item 36: attendance",
	}
	for name, tmpl := range vars.Prompts {
		out, err := RenderPrompt(tmpl, data)
		if err != nil {
			t.Errorf("prompt %s does not render: %v", name, err)
			continue
		}
		if !strings.Contains(out, "JSON") {
			t.Errorf("prompt %s does not demand JSON output", name)
		}
	}
}
