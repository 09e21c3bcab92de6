package syntax

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Edit replaces Source[Start:End] with Text. Expect, when set, must equal
// the replaced text or the edit is rejected.
type Edit struct {
	Start  uint32
	End    uint32
	Text   string
	Expect string
}

// Replace builds an edit replacing the text of n.
func Replace(n *sitter.Node, src []byte, text string) Edit {
	return Edit{Start: n.StartByte(), End: n.EndByte(), Text: text, Expect: n.Content(src)}
}

// Delete builds an edit removing the given range.
func Delete(src []byte, r Range) Edit {
	return Edit{Start: r.Start, End: r.End, Expect: string(src[r.Start:r.End])}
}

// Insert builds an edit inserting text at offset.
func Insert(at uint32, text string) Edit {
	return Edit{Start: at, End: at, Text: text}
}

// ApplyEdits applies non-overlapping edits to src and returns the new source.
func ApplyEdits(src []byte, edits []Edit) ([]byte, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	var b strings.Builder
	b.Grow(len(src))
	cursor := uint32(0)
	for _, e := range sorted {
		if e.Start > e.End || int(e.End) > len(src) {
			return nil, fmt.Errorf("edit %d-%d out of bounds", e.Start, e.End)
		}
		if e.Start < cursor {
			return nil, fmt.Errorf("edit at %d overlaps a previous edit ending at %d", e.Start, cursor)
		}
		if e.Expect != "" && string(src[e.Start:e.End]) != e.Expect {
			return nil, fmt.Errorf("edit at %d: source text changed", e.Start)
		}
		b.Write(src[cursor:e.Start])
		b.WriteString(e.Text)
		cursor = e.End
	}
	b.Write(src[cursor:])
	return []byte(b.String()), nil
}

// LineStart returns the offset of the first byte of the line containing at.
func LineStart(src []byte, at uint32) uint32 {
	i := int(at)
	for i > 0 && src[i-1] != '\n' {
		i--
	}
	return uint32(i)
}

// LineEnd returns the offset of the newline ending the line containing at,
// or len(src) on the last line.
func LineEnd(src []byte, at uint32) uint32 {
	i := int(at)
	for i < len(src) && src[i] != '\n' {
		i++
	}
	return uint32(i)
}

// Indentation returns the leading whitespace of the line containing at.
func Indentation(src []byte, at uint32) string {
	start := LineStart(src, at)
	end := start
	for int(end) < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

// IndentUnit guesses one level of indentation from an existing indent.
func IndentUnit(indent string) string {
	if strings.Contains(indent, "\t") {
		return "\t"
	}
	return "    "
}

// LineSpan widens r to whole lines when nothing but whitespace shares those
// lines with it, so deleting a declaration does not leave a blank line.
func LineSpan(src []byte, r Range) Range {
	start := LineStart(src, r.Start)
	if strings.TrimSpace(string(src[start:r.Start])) != "" {
		return r
	}
	end := LineEnd(src, r.End)
	if strings.TrimSpace(string(src[r.End:end])) != "" {
		return r
	}
	if int(end) < len(src) {
		end++
	}
	return Range{Start: start, End: end}
}

// DeleteLines builds an edit removing n together with its line when the
// line holds nothing else.
func DeleteLines(n *sitter.Node, src []byte) Edit {
	return Delete(src, LineSpan(src, RangeOf(n)))
}
