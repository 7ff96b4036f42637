package extract

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shineum/mailticket/internal/ticket"
)

//go:embed dictionary.yaml
var embeddedDictionary []byte

// Dictionary maps each classifier's categories to their known spellings.
// Entry order is significant: it is the tie-break order of the classifier.
type Dictionary struct {
	Projects   []Entry `yaml:"projects"`
	Priorities []Entry `yaml:"priorities"`
	BugTypes   []Entry `yaml:"bug_types"`
}

// Entry lists the variants that resolve to one category.
type Entry struct {
	Category string   `yaml:"category"`
	Variants []string `yaml:"variants"`
}

// Conflict describes a variant that would be claimed by an earlier entry
// because it contains one of that entry's variants.
type Conflict struct {
	Section  string
	Category string
	Variant  string
	Shadowed string // category that claims the variant
	By       string // the contained variant
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s: %s variant %q contains %s variant %q", c.Section, c.Category, c.Variant, c.Shadowed, c.By)
}

// DefaultDictionary returns the dictionary compiled into the binary.
func DefaultDictionary() *Dictionary {
	d, err := ParseDictionary(embeddedDictionary)
	if err != nil {
		panic(fmt.Sprintf("embedded dictionary: %v", err))
	}
	return d
}

// LoadDictionary reads a dictionary from a YAML file.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	return ParseDictionary(data)
}

// ParseDictionary decodes and validates YAML dictionary data. Variants are
// lower-cased and whitespace-collapsed.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	for _, section := range [][]Entry{d.Projects, d.Priorities, d.BugTypes} {
		for i := range section {
			section[i].Category = strings.ToUpper(strings.TrimSpace(section[i].Category))
			for j, v := range section[i].Variants {
				section[i].Variants[j] = strings.Join(strings.Fields(strings.ToLower(v)), " ")
			}
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks that every category is known, appears once and has at
// least one non-empty variant. A default category may list explicit
// wording for itself.
func (d *Dictionary) Validate() error {
	var errs []error
	check := func(section string, entries []Entry, valid func(string) bool) {
		seen := make(map[string]bool)
		for _, e := range entries {
			switch {
			case !valid(e.Category):
				errs = append(errs, fmt.Errorf("%s: unknown category %q", section, e.Category))
			case seen[e.Category]:
				errs = append(errs, fmt.Errorf("%s: duplicate category %s", section, e.Category))
			}
			seen[e.Category] = true
			if len(e.Variants) == 0 {
				errs = append(errs, fmt.Errorf("%s: category %s has no variants", section, e.Category))
			}
			for _, v := range e.Variants {
				if v == "" {
					errs = append(errs, fmt.Errorf("%s: category %s has an empty variant", section, e.Category))
				}
			}
		}
	}
	check("projects", d.Projects, func(s string) bool { return ticket.Project(s).Valid() })
	check("priorities", d.Priorities, func(s string) bool { return ticket.Priority(s).Valid() })
	check("bug_types", d.BugTypes, func(s string) bool { return ticket.BugType(s).Valid() })
	return errors.Join(errs...)
}

// ProjectTerms returns the project entries with each project's display name
// prepended to its variants.
func (d *Dictionary) ProjectTerms() []Entry {
	out := make([]Entry, 0, len(d.Projects))
	for _, e := range d.Projects {
		name := strings.ToLower(ticket.Project(e.Category).DisplayName())
		variants := []string{name}
		for _, v := range e.Variants {
			if v != name {
				variants = append(variants, v)
			}
		}
		out = append(out, Entry{Category: e.Category, Variants: variants})
	}
	return out
}

// Conflicts reports variants that classify to an earlier category because
// they contain one of its variants. A dictionary without conflicts maps
// every variant back to its own category.
func (d *Dictionary) Conflicts() []Conflict {
	var out []Conflict
	scan := func(section string, entries []Entry) {
		for i, e := range entries {
			for _, v := range e.Variants {
				for _, earlier := range entries[:i] {
					for _, w := range earlier.Variants {
						if strings.Contains(v, w) {
							out = append(out, Conflict{Section: section, Category: e.Category, Variant: v, Shadowed: earlier.Category, By: w})
						}
					}
				}
			}
		}
	}
	scan("projects", d.ProjectTerms())
	scan("priorities", d.Priorities)
	scan("bug_types", d.BugTypes)
	return out
}
