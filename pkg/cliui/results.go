package cliui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/papercomputeco/ragchat/pkg/utils"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

// PreviewLen bounds the chunk text shown per result.
const PreviewLen = 280

// NoResults is printed when a search matched nothing.
const NoResults = "No results found."

// ResultsMarkdown renders ranked chunks as a markdown document: one section
// per chunk, in rank order, with its provenance and a whitespace-collapsed
// preview of its text.
func ResultsMarkdown(question string, chunks []vector.Chunk) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Results for %q\n\n", question)
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "## %d. `%s`\n\n", i+1, chunk.ID)

		fmt.Fprintf(&b, "document `%s`", chunk.DocumentID)
		if chunk.URL != "" {
			fmt.Fprintf(&b, " · <%s>", chunk.URL)
		}
		b.WriteString("\n\n")

		preview := strings.Join(strings.Fields(chunk.Text), " ")
		fmt.Fprintf(&b, "> %s\n\n", utils.Truncate(preview, PreviewLen))
	}

	return b.String()
}

// WriteResults writes chunks to w. With raw set the markdown is written as
// is; otherwise it goes through RenderMarkdown, falling back to the raw text
// when rendering fails.
func WriteResults(w io.Writer, question string, chunks []vector.Chunk, raw bool) error {
	if len(chunks) == 0 {
		_, err := fmt.Fprintln(w, NoResults)
		return err
	}

	md := ResultsMarkdown(question, chunks)
	if !raw {
		md, _ = RenderMarkdown(md)
	}

	_, err := io.WriteString(w, md)
	return err
}

// RenderMarkdown renders markdown for the terminal. On failure the input is
// returned along with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
		glamour.WithEmoji(),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}
