package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/shineum/mailticket/internal/app"
	"github.com/shineum/mailticket/internal/extract"
)

func runMatch(_ context.Context, args []string) error {
	var flags commonFlags
	fs := newFlagSet("match", "match --content TEXT [--term TERM]")
	flags.register(fs)
	content := fs.StringP("content", "t", "", "text to search (subject and body)")
	term := fs.String("term", "", "variant to score; without it the text is classified")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *content == "" {
		return fmt.Errorf("match: --content is required")
	}

	if *term != "" {
		printTermScores(os.Stdout, *content, *term)
		return nil
	}

	cfg, err := flags.load(nil)
	if err != nil {
		return err
	}
	ex, err := app.NewExtractor(cfg)
	if err != nil {
		return err
	}
	printClassification(os.Stdout, ex, *content)
	return nil
}

// printTermScores shows how term scores against each word of content, the
// best phrase of the same length and the overall score classifiers use.
func printTermScores(w io.Writer, content, term string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tJARO-WINKLER\tEDIT DISTANCE")

	var words []string
	for _, f := range strings.Fields(content) {
		if word := strings.TrimFunc(f, unicode.IsPunct); word != "" {
			words = append(words, word)
			fmt.Fprintf(tw, "%s\t%.4f\t%d\n", word, extract.Similarity(word, term), extract.EditDistance(word, term))
		}
	}

	if n := len(strings.Fields(term)); n > 1 {
		for i := 0; i+n <= len(words); i++ {
			phrase := strings.Join(words[i:i+n], " ")
			fmt.Fprintf(tw, "%q\t%.4f\t%d\n", phrase, extract.Similarity(phrase, term), extract.EditDistance(phrase, term))
		}
	}
	tw.Flush()

	fmt.Fprintf(w, "\nbest similarity of %q in content: %.4f\n", term, extract.BestSimilarityInContent(content, term))
}

// printClassification reports what each classifier makes of content.
func printClassification(w io.Writer, ex *extract.Extractor, content string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASSIFIER\tCATEGORY\tBEST\tVARIANT\tSCORE\tMATCHED")

	project := ex.ExplainProject(content, "")
	fmt.Fprintf(tw, "project\t%s\t%s\t%q\t%.4f\t%t\n", project.Category, project.Best, project.Variant, project.Score, project.Matched)
	priority := ex.ExplainPriority(content, "")
	fmt.Fprintf(tw, "priority\t%s\t%s\t%q\t%.4f\t%t\n", priority.Category, priority.Best, priority.Variant, priority.Score, priority.Matched)
	bugType := ex.ExplainBugType(content, "")
	fmt.Fprintf(tw, "bug type\t%s\t%s\t%q\t%.4f\t%t\n", bugType.Category, bugType.Best, bugType.Variant, bugType.Score, bugType.Matched)
	tw.Flush()
}
