package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"github.com/shineum/mailticket/internal/ticket"
)

func TestDefaultDictionary(t *testing.T) {
	t.Parallel()

	d := DefaultDictionary()
	if len(d.Projects) != 21 {
		t.Errorf("Projects: got %d entries, want 21", len(d.Projects))
	}
	listed := make(map[string]bool)
	for _, e := range d.Projects {
		listed[e.Category] = true
	}
	for _, p := range ticket.Projects() {
		if p != ticket.ProjectGeneral && !listed[string(p)] {
			t.Errorf("project %s has no dictionary entry", p)
		}
	}
	if len(d.Priorities) == 0 || len(d.BugTypes) == 0 {
		t.Fatalf("expected priority and bug type entries")
	}
	if conflicts := d.Conflicts(); len(conflicts) != 0 {
		for _, c := range conflicts {
			t.Errorf("conflict: %s", c)
		}
	}
}

func TestDefaultDictionary_ASCII(t *testing.T) {
	t.Parallel()

	d := DefaultDictionary()
	for _, section := range [][]Entry{d.ProjectTerms(), d.Priorities, d.BugTypes} {
		for _, e := range section {
			for _, v := range e.Variants {
				for _, r := range v {
					if r > unicode.MaxASCII {
						t.Errorf("%s variant %q is not ASCII", e.Category, v)
						break
					}
				}
			}
		}
	}
}

func TestParseDictionary_NormalizesVariants(t *testing.T) {
	t.Parallel()

	d, err := ParseDictionary([]byte("projects:\n  - category: livewire\n    variants: ['  Live   WIRE ']\n"))
	if err != nil {
		t.Fatalf("ParseDictionary: %v", err)
	}
	if d.Projects[0].Category != "LIVEWIRE" {
		t.Errorf("Category: got %q, want LIVEWIRE", d.Projects[0].Category)
	}
	if d.Projects[0].Variants[0] != "live wire" {
		t.Errorf("Variant: got %q, want %q", d.Projects[0].Variants[0], "live wire")
	}

	terms := d.ProjectTerms()
	if terms[0].Variants[0] != "livewire" {
		t.Errorf("ProjectTerms: display name not first, got %v", terms[0].Variants)
	}
}

func TestParseDictionary_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown category", "projects:\n  - category: NOPE\n    variants: [x]\n", "unknown category"},
		{"duplicate", "bug_types:\n  - category: TASK\n    variants: [a]\n  - category: TASK\n    variants: [b]\n", "duplicate"},
		{"no variants", "bug_types:\n  - category: TASK\n", "no variants"},
		{"empty variant", "bug_types:\n  - category: TASK\n    variants: ['  ']\n", "empty variant"},
		{"bad yaml", "projects: [", "failed to parse dictionary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseDictionary([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseDictionary_DefaultCategoryWording(t *testing.T) {
	t.Parallel()

	d, err := ParseDictionary([]byte("priorities:\n  - category: MODERATE\n    variants: [medium]\n"))
	if err != nil {
		t.Fatalf("ParseDictionary: %v", err)
	}
	if len(d.Priorities) != 1 || d.Priorities[0].Category != "MODERATE" {
		t.Errorf("Priorities: got %+v", d.Priorities)
	}
}

func TestDictionary_Conflicts(t *testing.T) {
	t.Parallel()

	d, err := ParseDictionary([]byte(strings.Join([]string{
		"priorities:",
		"  - category: HIGH",
		"    variants: [urgent]",
		"  - category: LOW",
		"    variants: [not urgent, minor]",
	}, "\n")))
	if err != nil {
		t.Fatalf("ParseDictionary: %v", err)
	}

	conflicts := d.Conflicts()
	if len(conflicts) != 1 {
		t.Fatalf("Conflicts: got %d, want 1: %v", len(conflicts), conflicts)
	}
	c := conflicts[0]
	if c.Category != "LOW" || c.Variant != "not urgent" || c.Shadowed != "HIGH" || c.By != "urgent" {
		t.Errorf("Conflict: got %+v", c)
	}
}

func TestLoadDictionary(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dict.yaml")
	if err := os.WriteFile(path, []byte("bug_types:\n  - category: TASK\n    variants: [chore]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDictionary(path)
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}
	if len(d.BugTypes) != 1 || d.BugTypes[0].Variants[0] != "chore" {
		t.Errorf("BugTypes: got %+v", d.BugTypes)
	}

	if _, err := LoadDictionary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
