package diff

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andreyvit/diff"
)

// bytesForBinaryFileCheck caps how much of the content is scanned for a
// null byte before giving up and calling it text.
const bytesForBinaryFileCheck = 1 << 16

// Unified renders a unified diff of a and b as a string.
func Unified(a, b Node, contextLines int) (string, error) {
	var buf bytes.Buffer
	if err := UnifiedTo(&buf, a, b, contextLines); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// UnifiedTo writes a unified diff of a and b to w. diffutil uses this to
// render the changed-blob hunks in a tree diff: the line-level diff
// itself comes from github.com/andreyvit/diff, this package's own job
// is turning that raw line list into hunks with the right amount of
// context, the way GNU diff -U does.
func UnifiedTo(w io.Writer, a, b Node, contextLines int) error {
	if a.SameAs(b) {
		return nil
	}
	aContent, err := a.Content()
	if err != nil {
		return err
	}
	bContent, err := b.Content()
	if err != nil {
		return err
	}
	lines := diff.LineDiffAsLines(aContent, bContent)
	if len(lines) == 0 {
		return nil
	}
	return renderHunks(w, lines, contextLines)
}

func renderHunks(w io.Writer, lines []string, contextLines int) error {
	if isLikelyBinary(lines) {
		_, err := fmt.Fprintln(w, "Binary files differ")
		return err
	}

	// While walking lines, we're either inside a hunk or in a common
	// run between hunks (h == nil). The context window holds the most
	// recent common lines seen outside a hunk, ready to backfill as
	// leading context the moment a new hunk opens.
	var h *hunk
	window := newContextWindow(contextLines)

	var leftOffset, rightOffset int
	for _, line := range lines {
		switch line[0] {
		case ' ':
			if h != nil {
				h.appendCommon(line)
				if h.isComplete() {
					for _, trimmed := range h.trim() {
						window.enqueue(trimmed)
					}
					if err := h.printTo(w); err != nil {
						return err
					}
					h = nil
				}
			} else {
				window.enqueue(line)
			}
			leftOffset++
			rightOffset++
		case '-':
			if h == nil {
				h = newHunk(leftOffset, rightOffset, window.drain(), contextLines)
			}
			h.appendLeft(line)
			leftOffset++
		case '+':
			if h == nil {
				h = newHunk(leftOffset, rightOffset, window.drain(), contextLines)
			}
			h.appendRight(line)
			rightOffset++
		}
	}
	if h != nil {
		h.trim()
		return h.printTo(w)
	}
	return nil
}

// isLikelyBinary follows the same heuristic GNU diff documents: look at
// the first chunk of content and call it binary if a null byte turns up.
func isLikelyBinary(lines []string) bool {
	scanned := 0
	for _, line := range lines {
		if strings.Contains(line, "\x00") {
			return true
		}
		scanned += len(line)
		if scanned >= bytesForBinaryFileCheck {
			break
		}
	}
	return false
}
