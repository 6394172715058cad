package editor

import (
	"strings"
	"unicode"
)

// WordRangeAt computes the word-boundary range around pos in text. The
// completion adapter uses it as the replace range when the server does not
// supply a text edit. Word characters are letters, digits and underscore,
// which covers SQL identifiers and FHIRPath path segments alike.
func WordRangeAt(text string, pos Position) Range {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return Range{Start: pos, End: pos}
	}

	line := []rune(lines[pos.Line])
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordRune(line[end]) {
		end++
	}

	return Range{
		Start: Position{Line: pos.Line, Character: uint32(start)},
		End:   Position{Line: pos.Line, Character: uint32(end)},
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
