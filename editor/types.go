// Package editor defines the editor-facing types and interfaces the LSP
// bridge translates to and from. The bridge never talks to a concrete
// editor widget directly; the embedding editor implements Host and Buffer
// and receives back completion lists, hover text, formatting edits and
// marker annotations in these types.
package editor

// Position is a zero-based cursor position, matching what editors hand to
// completion/hover providers.
type Position struct {
	Line      uint32
	Character uint32
}

// Range is a half-open [Start, End) text range.
type Range struct {
	Start Position
	End   Position
}

// MarkerSeverity mirrors the editor's marker severity scale.
type MarkerSeverity int

const (
	MarkerHint MarkerSeverity = iota + 1
	MarkerInfo
	MarkerWarning
	MarkerError
)

func (s MarkerSeverity) String() string {
	switch s {
	case MarkerError:
		return "error"
	case MarkerWarning:
		return "warning"
	case MarkerInfo:
		return "info"
	case MarkerHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Marker is an editor-native diagnostic annotation. Lines and columns are
// 1-based, unlike protocol positions.
type Marker struct {
	StartLine   uint32
	StartColumn uint32
	EndLine     uint32
	EndColumn   uint32
	Severity    MarkerSeverity
	Message     string
	Code        string
	Source      string
}

// CompletionKind is the editor's completion item kind enum.
type CompletionKind int

const (
	KindText CompletionKind = iota
	KindMethod
	KindFunction
	KindConstructor
	KindField
	KindVariable
	KindClass
	KindInterface
	KindModule
	KindProperty
	KindUnit
	KindValue
	KindEnum
	KindKeyword
	KindSnippet
	KindColor
	KindFile
	KindReference
	KindFolder
	KindEnumMember
	KindConstant
	KindStruct
	KindEvent
	KindOperator
	KindTypeParameter
)

var completionKindNames = [...]string{
	"text", "method", "function", "constructor", "field", "variable",
	"class", "interface", "module", "property", "unit", "value", "enum",
	"keyword", "snippet", "color", "file", "reference", "folder",
	"enum-member", "constant", "struct", "event", "operator",
	"type-parameter",
}

func (k CompletionKind) String() string {
	if k < 0 || int(k) >= len(completionKindNames) {
		return "text"
	}
	return completionKindNames[k]
}

// CompletionItem is one suggestion in editor-native form.
type CompletionItem struct {
	Label         string
	Kind          CompletionKind
	Detail        string
	Documentation string
	InsertText    string
	// IsSnippet marks InsertText as a snippet template requiring
	// placeholder expansion by the editor.
	IsSnippet bool
	// Range is the text range the insert replaces. Server-supplied edit
	// ranges win over the client-computed word range.
	Range Range
}

// CompletionList is the editor-native completion response.
type CompletionList struct {
	Incomplete bool
	Items      []CompletionItem
}

// Hover is flattened hover content; Contents is markdown.
type Hover struct {
	Contents string
	Range    *Range
}

// TextEdit is a single formatting edit in editor-native form.
type TextEdit struct {
	Range   Range
	NewText string
}

// FormattingOptions carries tab settings plus the side-channel formatter
// configuration forwarded verbatim to the server.
type FormattingOptions struct {
	TabSize      uint32
	InsertSpaces bool
	// Extra holds formatter-specific settings (dialect, keyword casing and
	// the like). Nil values are dropped before they reach the wire.
	Extra map[string]any
}

// Provider interfaces implemented by the bridge and registered with the
// editor Host, one set per language id.

type CompletionProvider interface {
	ProvideCompletion(buf Buffer, pos Position, triggerCharacter string) CompletionList
}

type HoverProvider interface {
	ProvideHover(buf Buffer, pos Position) *Hover
}

type FormattingProvider interface {
	ProvideFormatting(buf Buffer, opts FormattingOptions) []TextEdit
}

// Host is the embedding editor's extension surface. Each Register call
// returns a dispose func that removes the registration.
type Host interface {
	RegisterCompletionProvider(languageID string, p CompletionProvider) func()
	RegisterHoverProvider(languageID string, p HoverProvider) func()
	RegisterFormattingProvider(languageID string, p FormattingProvider) func()
}
