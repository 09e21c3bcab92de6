package syntax

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Range is a half-open byte range into a document's source.
type Range struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// RangeOf returns the byte range covered by n.
func RangeOf(n *sitter.Node) Range {
	return Range{Start: n.StartByte(), End: n.EndByte()}
}

// Len returns the width of the range in bytes.
func (r Range) Len() uint32 { return r.End - r.Start }

// Contains reports whether o lies entirely within r.
func (r Range) Contains(o Range) bool {
	return r.Start <= o.Start && o.End <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Anchor records where a finding was observed: a byte range plus the node
// kind, so the node can be found again in the same generation.
type Anchor struct {
	Range Range  `json:"range"`
	Kind  string `json:"kind"`
	Line  uint32 `json:"line"`
}

// AnchorOf captures an anchor for n.
func AnchorOf(n *sitter.Node) Anchor {
	return Anchor{Range: RangeOf(n), Kind: n.Type(), Line: n.StartPoint().Row + 1}
}
