package asm

// Window is a logically contiguous sequence of executable Instruction
// values drawn from a Buffer, with directives and comments elided but their
// original positions remembered so the rewriter can reinsert them.
type Window struct {
	// Start and End are indices into the owning Buffer's Lines, delimiting
	// the full span (including any interspersed non-executable lines)
	// that the matched executable instructions were drawn from.
	Start, End int
	Instr      []*Instruction
}

// Buffer owns the full Line sequence for one compilation unit and provides
// the skip-trivia traversal the driver and matcher use to build candidate
// windows without tripping over comments, directives, or bare labels.
type Buffer struct {
	Lines []*Line
}

// NewBuffer tokenizes source into a Buffer.
func NewBuffer(source string) *Buffer {
	return &Buffer{Lines: ParseSource(source)}
}

// NextInstr returns the index of the first LineInstruction at or after from,
// or -1 if none remains before a label boundary or end of buffer. Per
// invariant I4, the scan stops (returns -1) the moment it crosses a label so
// that no window the caller builds can span across it.
func (b *Buffer) NextInstr(from int) int {
	for i := from; i < len(b.Lines); i++ {
		switch b.Lines[i].Kind {
		case LineInstruction:
			return i
		case LineLabel:
			return -1
		}
	}
	return -1
}

// WindowAt builds a Window of exactly n executable instructions starting at
// line index start, or returns ok=false if fewer than n remain before a
// label boundary or the end of the buffer. A label boundary is a bare label
// line or a label prefixing any instruction after the window's first.
func (b *Buffer) WindowAt(start, n int) (Window, bool) {
	w := Window{Start: start}
	i := start
	for len(w.Instr) < n {
		if i >= len(b.Lines) {
			return Window{}, false
		}
		switch b.Lines[i].Kind {
		case LineInstruction:
			if len(w.Instr) > 0 && b.Lines[i].Instr.Label != "" {
				return Window{}, false
			}
			w.Instr = append(w.Instr, b.Lines[i].Instr)
			i++
		case LineLabel:
			return Window{}, false
		default:
			i++
		}
	}
	w.End = i
	return w, true
}

// Splice replaces the line span [w.Start, w.End) with newInstrText (already
// rendered assembly text, one line per element), re-inserting any
// directive/comment lines that were interspersed in the original span
// immediately after the replacement and in their original relative order —
// satisfying directive preservation even when the rewrite changes the
// instruction count. A label prefixing the window's first instruction is
// kept as its own label line ahead of the replacement.
func (b *Buffer) Splice(w Window, newInstrText []string) {
	var trivia []*Line
	for i := w.Start; i < w.End; i++ {
		if b.Lines[i].Kind != LineInstruction {
			trivia = append(trivia, b.Lines[i])
		}
	}

	replacement := make([]*Line, 0, len(newInstrText)+len(trivia)+1)
	if len(w.Instr) > 0 && w.Instr[0].Label != "" {
		label := w.Instr[0].Label
		replacement = append(replacement, &Line{Kind: LineLabel, Raw: label + ":", Label: label})
	}
	for _, text := range newInstrText {
		replacement = append(replacement, ParseLine(text))
	}
	replacement = append(replacement, trivia...)

	head := append([]*Line{}, b.Lines[:w.Start]...)
	tail := append([]*Line{}, b.Lines[w.End:]...)
	head = append(head, replacement...)
	b.Lines = append(head, tail...)
}

// Render reconstitutes the full source text from the Line sequence.
func (b *Buffer) Render() string {
	var out []byte
	for i, l := range b.Lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, []byte(l.Raw)...)
	}
	return string(out)
}
