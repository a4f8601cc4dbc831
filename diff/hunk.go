package diff

import (
	"fmt"
	"io"
)

// hunk accumulates one contiguous block of changed (and surrounding
// context) lines for unified-diff rendering. See
// https://www.gnu.org/software/diffutils/manual/html_node/Hunks.html —
// rendered as e.g. "@@ -15,3 +17,5 @@".
type hunk struct {
	lo int // left-side start offset
	lc int // left-side line count
	ro int // right-side start offset
	rc int // right-side line count

	lines []string

	// sinceLastDiff counts common lines seen since the last left/right
	// line. A hunk closes once this exceeds 2*contextLines, since at
	// that point the tail contextLines of common lines can never touch
	// a future change within the same hunk.
	sinceLastDiff int
	contextLines  int

	printErr error
}

func newHunk(lo, ro int, backfill []string, contextLines int) *hunk {
	n := len(backfill)
	return &hunk{
		lo:           lo - n,
		ro:           ro - n,
		lc:           n,
		rc:           n,
		lines:        backfill,
		contextLines: contextLines,
	}
}

func (h *hunk) appendLeft(line string) {
	h.lines = append(h.lines, line)
	h.sinceLastDiff = 0
	h.lc++
}

func (h *hunk) appendRight(line string) {
	h.lines = append(h.lines, line)
	h.sinceLastDiff = 0
	h.rc++
}

func (h *hunk) appendCommon(line string) {
	h.lines = append(h.lines, line)
	h.sinceLastDiff++
	h.lc++
	h.rc++
}

func (h *hunk) isComplete() bool {
	return h.sinceLastDiff >= 2*h.contextLines+1
}

// trim drops trailing common lines beyond contextLines, returning them
// so the caller can feed them back into the next contextWindow.
func (h *hunk) trim() []string {
	if h.sinceLastDiff <= h.contextLines {
		return nil
	}
	excess := h.sinceLastDiff - h.contextLines
	tail := h.lines[len(h.lines)-excess:]
	h.lines = h.lines[:len(h.lines)-excess]
	h.lc -= excess
	h.rc -= excess
	return tail
}

func (h hunk) printLocationTo(w io.Writer) {
	h.print(w, "@@ -%d", h.lo+1)
	if h.lc > 1 {
		h.print(w, ",%d +%d", h.lc, h.ro+1)
	} else {
		h.print(w, " +%d", h.ro+1)
	}
	if h.rc > 1 {
		h.print(w, ",%d @@\n", h.rc)
	} else {
		h.print(w, " @@\n")
	}
}

func (h hunk) printTo(w io.Writer) error {
	h.printLocationTo(w)
	for _, line := range h.lines {
		h.print(w, "%s\n", line)
	}
	return h.printErr
}

func (h *hunk) print(w io.Writer, format string, a ...interface{}) {
	if h.printErr != nil {
		return
	}
	_, h.printErr = fmt.Fprintf(w, format, a...)
}

// contextWindow holds the last few common lines seen between hunks, so
// that when a new hunk opens, up to contextLines of leading context can
// be backfilled into it. It overwrites silently once full; callers only
// ever want the most recent contextLines lines.
type contextWindow struct {
	lines []string
	read  int
	write int
	count int
	size  int
}

func newContextWindow(size int) *contextWindow {
	if size < 0 {
		size = 0
	}
	return &contextWindow{lines: make([]string, size), size: size}
}

func (w *contextWindow) advance(i int) int {
	return (i + 1) % w.size
}

func (w *contextWindow) enqueue(line string) {
	if w.size == 0 {
		return
	}
	if w.count == w.size {
		w.read = w.advance(w.read)
	} else {
		w.count++
	}
	w.lines[w.write] = line
	w.write = w.advance(w.write)
}

func (w *contextWindow) drain() []string {
	var out []string
	for w.count > 0 {
		out = append(out, w.lines[w.read])
		w.read = w.advance(w.read)
		w.count--
	}
	return out
}
