package intake

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shineum/mailticket/internal/ticket"
)

// ProjectGate admits only messages that concern one of a fixed set of
// projects. A nil *ProjectGate admits everything.
type ProjectGate struct {
	projects map[ticket.Project]bool
	// names are lower-cased spellings searched for in the message text.
	names []string
}

// NewProjectGate builds a gate from project codes or display names such as
// "LIVEWIRE", "Outlet_Approval" or "MMW Module(Ticket tool)". An empty list
// returns a nil gate.
func NewProjectGate(names []string) (*ProjectGate, error) {
	if len(names) == 0 {
		return nil, nil
	}
	g := &ProjectGate{projects: make(map[ticket.Project]bool, len(names))}
	for _, name := range names {
		p := ticket.ParseProject(name)
		if p == ticket.ProjectGeneral {
			return nil, fmt.Errorf("unknown project %q", name)
		}
		g.projects[p] = true
		g.addName(name)
		g.addName(p.DisplayName())
	}
	return g, nil
}

func (g *ProjectGate) addName(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(g.names, name) {
		g.names = append(g.names, name)
	}
}

// Allows reports whether t was classified into an allowed project or text
// names one, as in "Project/Product: RA_Tool". Names match ignoring case.
func (g *ProjectGate) Allows(t *ticket.Ticket, text string) bool {
	if g == nil {
		return true
	}
	if t != nil && g.projects[t.Project] {
		return true
	}
	text = strings.ToLower(text)
	for _, n := range g.names {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// Projects returns the allowed projects in enum order.
func (g *ProjectGate) Projects() []ticket.Project {
	if g == nil {
		return nil
	}
	var out []ticket.Project
	for _, p := range ticket.Projects() {
		if g.projects[p] {
			out = append(out, p)
		}
	}
	return out
}
