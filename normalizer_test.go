// normalizer_test.go
package corpusnormalizer

import (
	"context"
	"testing"

	"github.com/baditaflorin/l"
)

func testLogger(t *testing.T) l.Logger {
	t.Helper()
	lg, err := createDefaultLogger()
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}
	t.Cleanup(func() { lg.Close() })
	return lg
}

func TestNormalizeWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Greek gamma", "aγrum", "aɣrum"},
		{"double t cedilla", "yeţţa", "yetta"},
		{"capital sigma", "Σli", "Ɛli"},
		{"standard text", "Azul fell-awen!", "Azul fell-awen!"},
		{"empty line", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeWithDefaults(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNewWithRules(t *testing.T) {
	n, err := New(
		WithRules([]Rule{
			{Pattern: "ε", Replacement: "e"},
			{Pattern: "ḍ", Replacement: "d"},
			{Pattern: "ṛ", Replacement: "r"},
		}, ""),
		WithLogger(testLogger(t)),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	line := n.NormalizeLine("amεḍqaṛ")
	if line.Text != "amedqar" || line.Substitutions != 3 {
		t.Errorf("expected amedqar with 3 substitutions, got %q with %d", line.Text, line.Substitutions)
	}
	if got := n.Normalize(line.Text); got != line.Text {
		t.Errorf("second pass changed %q to %q", line.Text, got)
	}
	if len(n.Rules()) != 3 {
		t.Errorf("expected 3 rules, got %d", len(n.Rules()))
	}
}

func TestNewRejectsCycles(t *testing.T) {
	_, err := New(WithRules([]Rule{
		{Pattern: "a", Replacement: "b"},
		{Pattern: "b", Replacement: "a"},
	}, ""), WithLogger(testLogger(t)))
	if err == nil {
		t.Fatal("expected an error for a cyclic table")
	}
}

func TestNormalizeAll(t *testing.T) {
	n, err := New(WithWorkers(2), WithLogger(testLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	lines := []string{"Yeţţa aγrum.", "", "Azul ö"}
	out, diag, err := n.NormalizeAll(context.Background(), lines)
	if err != nil {
		t.Fatalf("NormalizeAll: %v", err)
	}
	want := []string{"Yetta aɣrum.", "", "Azul ö"}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], out[i])
		}
	}
	if diag.ChangedLines != 1 {
		t.Errorf("expected 1 changed line, got %d", diag.ChangedLines)
	}

	warnings := Warnings(diag)
	if len(warnings) != 1 || warnings[0].Rune != 'ö' || warnings[0].Suggestion != "o" {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestNewUnknownLanguage(t *testing.T) {
	if _, err := New(WithLanguage("zz"), WithLogger(testLogger(t))); err == nil {
		t.Fatal("expected an error for a language without a table")
	}
}
