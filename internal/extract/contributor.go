package extract

import (
	"slices"
	"strings"

	"github.com/shineum/mailticket/internal/ticket"
)

// ResolveContributor picks the contributor a ticket addressed by the raw To
// value should go to. Active contributors whose email appears in To match
// first; only when none do, a contributor matches if an address contains
// their name with spaces removed or replaced by dots. Zero or several
// matches return nil: an ambiguous ticket is left for manual assignment.
func ResolveContributor(to string, contributors []ticket.Contributor) *ticket.Contributor {
	return resolveContributor(to, contributors, newDiag(nil, false))
}

func resolveContributor(to string, contributors []ticket.Contributor, d diag) *ticket.Contributor {
	addresses := Addresses(to)
	if len(addresses) == 0 {
		d.log("no addresses in To", "to", to)
		return nil
	}

	var found []int
	for i, c := range contributors {
		if !c.Active || c.Email == "" {
			continue
		}
		if slices.Contains(addresses, strings.ToLower(strings.TrimSpace(c.Email))) {
			found = append(found, i)
		}
	}
	pass := "email"

	if len(found) == 0 {
		pass = "name"
		for i, c := range contributors {
			if !c.Active {
				continue
			}
			name := strings.Join(strings.Fields(strings.ToLower(c.Name)), " ")
			if name == "" {
				continue
			}
			dotted := strings.ReplaceAll(name, " ", ".")
			joined := strings.ReplaceAll(name, " ", "")
			for _, addr := range addresses {
				if strings.Contains(addr, dotted) || strings.Contains(addr, joined) {
					found = append(found, i)
					break
				}
			}
		}
	}

	switch len(found) {
	case 0:
		d.log("no contributor matched", "addresses", addresses)
		return nil
	case 1:
		c := contributors[found[0]]
		d.log("contributor matched", "pass", pass, "contributor", c.Name)
		return &c
	default:
		names := make([]string, 0, len(found))
		for _, i := range found {
			names = append(names, contributors[i].Name)
		}
		d.warn("multiple contributors matched, leaving ticket unassigned", "pass", pass, "contributors", names)
		return nil
	}
}
