package lsp

import (
	"fmt"

	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/logger"
)

// formattingAdapter translates editor formatting invocations into
// textDocument/formatting requests. Failures degrade to no edits.
type formattingAdapter struct {
	client *Client
}

func (a *formattingAdapter) ProvideFormatting(buf editor.Buffer, opts editor.FormattingOptions) []editor.TextEdit {
	edits, err := a.client.Formatting(buf.URI(), opts)
	if err != nil {
		logger.Debug(fmt.Sprintf("lsp[%s]: formatting failed: %v", a.client.cfg.LanguageID, err))
		return nil
	}

	out := make([]editor.TextEdit, 0, len(edits))
	for _, e := range edits {
		out = append(out, editor.TextEdit{
			Range: editor.Range{
				Start: editor.Position{Line: e.Range.Start.Line, Character: e.Range.Start.Character},
				End:   editor.Position{Line: e.Range.End.Line, Character: e.Range.End.Character},
			},
			NewText: e.NewText,
		})
	}
	return out
}
