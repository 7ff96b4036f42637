package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shineum/mailticket/internal/extract"
	"github.com/shineum/mailticket/internal/ticket"
)

func runDict(_ context.Context, args []string) error {
	fs := newFlagSet("dict", "dict [--file dictionary.yaml] [--check]")
	file := fs.String("file", "", "dictionary to inspect instead of the built-in one")
	check := fs.Bool("check", false, "only check the dictionary; print conflicts and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dict := extract.DefaultDictionary()
	if *file != "" {
		loaded, err := extract.LoadDictionary(*file)
		if err != nil {
			return err
		}
		dict = loaded
	}

	if !*check {
		printDictionary(os.Stdout, dict)
	}

	conflicts := dict.Conflicts()
	for _, c := range conflicts {
		fmt.Fprintln(os.Stderr, "conflict:", c)
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("dictionary has %d conflicting variants", len(conflicts))
	}
	if *check {
		fmt.Fprintln(os.Stdout, "dictionary OK")
	}
	return nil
}

// printDictionary lists every category with its display name and
// variants, in tie-break order.
func printDictionary(w io.Writer, dict *extract.Dictionary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tCATEGORY\tDISPLAY\tVARIANTS")
	for _, e := range dict.ProjectTerms() {
		fmt.Fprintf(tw, "project\t%s\t%s\t%s\n", e.Category, ticket.Project(e.Category).DisplayName(), strings.Join(e.Variants, ", "))
	}
	for _, e := range dict.Priorities {
		fmt.Fprintf(tw, "priority\t%s\t%s\t%s\n", e.Category, ticket.Priority(e.Category).DisplayName(), strings.Join(e.Variants, ", "))
	}
	for _, e := range dict.BugTypes {
		fmt.Fprintf(tw, "bug type\t%s\t%s\t%s\n", e.Category, ticket.BugType(e.Category).DisplayName(), strings.Join(e.Variants, ", "))
	}
	tw.Flush()
}
