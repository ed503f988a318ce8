package expr

import (
	"strings"
	"testing"
)

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string // substring of the error
	}{
		{"empty", "   ", "empty expression"},
		{"dangling operator", "status == ", "expected operand"},
		{"missing operator", "status 200", "expected comparison operator"},
		{"unbalanced paren", "(status == 200", "expected )"},
		{"trailing garbage", "status == 200 extra", "after expression"},
		{"unterminated string", `name == "ok`, "unterminated string"},
		{"bad character", "status @ 200", "unexpected character"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error containing %q", tc.src, tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Parse(%q) error = %q, want substring %q", tc.src, err, tc.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	inputs := map[string]any{
		"fetch": map[string]any{
			"status":  float64(200),
			"body":    "hello world",
			"ok":      true,
			"attempt": 3,
		},
		"score": 0.75,
		"name":  "ORD-2024-001",
	}

	cases := []struct {
		name string
		src  string
		want bool
	}{
		{"numeric equality", "fetch.status == 200", true},
		{"numeric inequality", "fetch.status != 500", true},
		{"greater than", "score > 0.5", true},
		{"greater or equal boundary", "score >= 0.75", true},
		{"less than false", "fetch.attempt < 2", false},
		{"string equality", `fetch.body == "hello world"`, true},
		{"bool literal", "fetch.ok == true", true},
		{"contains", `fetch.body contains "world"`, true},
		{"contains miss", `fetch.body contains "goodbye"`, false},
		{"matches", `name matches "^ORD-\d{4}"`, true},
		{"and both true", "fetch.status == 200 AND score > 0.5", true},
		{"and short-circuits", "fetch.status == 500 AND missing.field == 1", false},
		{"or short-circuits", "fetch.status == 200 OR missing.field == 1", true},
		{"not", "NOT fetch.status == 500", true},
		{"parens change grouping", "fetch.status == 500 OR (fetch.ok == true AND score > 0.5)", true},
		{"lowercase keywords", "fetch.status == 200 and not fetch.ok == false", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := Parse(tc.src)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.src, err)
			}
			got, err := Evaluate(e, inputs)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tc.src, err)
			}
			if got != tc.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.src, got, tc.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	inputs := map[string]any{"status": float64(200)}

	cases := []struct {
		name string
		src  string
		want string
	}{
		{"missing field", "nope == 1", `field "nope" not found`},
		{"missing nested field", "status.inner == 1", `field "status.inner" not found`},
		{"ordering needs numbers", `status > "abc"`, "requires numeric operands"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := Parse(tc.src)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.src, err)
			}
			if _, err := Evaluate(e, inputs); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Evaluate(%q) error = %v, want substring %q", tc.src, err, tc.want)
			}
		})
	}
}

func TestEvaluateBadPattern(t *testing.T) {
	e, err := Parse(`name matches "["`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	inputs := map[string]any{"name": "x"}
	if _, err := Evaluate(e, inputs); err == nil || !strings.Contains(err.Error(), "invalid pattern") {
		t.Errorf("want invalid pattern error, got %v", err)
	}
}
