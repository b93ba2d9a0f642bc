package story

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/ui"
)

const labelWidth = len("Description") + 2

// PrettyPrint writes the story title, description and notes in a labelled
// column, wrapped to width.
func PrettyPrint(w io.Writer, st *pivotal.Story, width int) {
	content := width - labelWidth
	if content < 20 {
		content = 20
	}
	pad := strings.Repeat(" ", labelWidth)

	field := func(label, value string) {
		_, _ = fmt.Fprint(w, ui.RenderLabel(label, labelWidth))
		_, _ = fmt.Fprintln(w, ui.Indent(ui.WrapText(value, content), pad))
	}

	field("Title", st.Name)
	if st.Description != "" {
		field("Description", ui.RenderMarkdown(st.Description, content))
	}

	comments := append([]pivotal.Comment(nil), st.Comments...)
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].UpdatedAt.Before(comments[j].UpdatedAt)
	})
	for i, c := range comments {
		field(fmt.Sprintf("Note %d", i+1), c.Text)
	}
	_, _ = fmt.Fprintln(w)
}
