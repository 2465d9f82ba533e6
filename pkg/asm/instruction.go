// Package asm models a parsed Z80 assembly source line: the line classifier,
// the Instruction value the matcher and evaluator operate on, and the
// rendering used when splicing a rewrite back into the output stream.
package asm

import (
	"fmt"
	"strings"
)

// LineKind classifies a raw source line for the window builder. Only
// LineInstruction participates in pattern matching; the rest pass through
// untouched at their original relative position.
type LineKind uint8

const (
	LineBlank LineKind = iota
	LineComment
	LineDirective
	LineLabel
	LineInstruction
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineDirective:
		return "directive"
	case LineLabel:
		return "label"
	case LineInstruction:
		return "instruction"
	default:
		return "unknown"
	}
}

var directiveNames = map[string]bool{
	"ORG": true, "DEFB": true, "DB": true, "DEFW": true, "DW": true,
	"DEFS": true, "DS": true, "EQU": true, "PROC": true, "LOCAL": true,
	"END": true, "ENDP": true, "#LINE": true,
}

// Instruction is a parsed assembly mnemonic line: an optional label, the
// upper-cased mnemonic, its operand list, and the original source text
// retained verbatim for re-emission when no rule matches.
type Instruction struct {
	Label    string
	Mnemonic string
	Operands []Operand
	Source   string
}

// Line is one source line after classification. Kind selects the payload:
// Label for label lines, Directive/DirArgs for directives, Instr for
// instructions. Directive and instruction lines also carry Label when a
// label prefixes them on the same line.
type Line struct {
	Kind      LineKind
	Raw       string
	Label     string
	Directive string
	DirArgs   string
	Instr     *Instruction
}

// conditionMnemonics take a condition code as their first operand, so a bare
// `c` there resolves to OperandCondition rather than OperandRegister.
var conditionMnemonics = map[string]bool{
	"JP": true, "JR": true, "CALL": true, "RET": true,
}

// ParseLine classifies and, for instruction lines, tokenizes a single raw
// assembly source line.
func ParseLine(raw string) *Line {
	stripped := raw
	if idx := strings.Index(stripped, ";"); idx >= 0 {
		stripped = stripped[:idx]
	}
	stripped = strings.TrimSpace(stripped)

	if stripped == "" {
		if strings.TrimSpace(raw) != "" {
			return &Line{Kind: LineComment, Raw: raw}
		}
		return &Line{Kind: LineBlank, Raw: raw}
	}

	if strings.HasSuffix(stripped, ":") && !strings.ContainsAny(stripped, " \t") {
		return &Line{Kind: LineLabel, Raw: raw, Label: strings.TrimSuffix(stripped, ":")}
	}

	label := ""
	rest := stripped
	if idx := strings.Index(stripped, ":"); idx > 0 {
		candidate := stripped[:idx]
		if !strings.ContainsAny(candidate, " \t(),") {
			label = candidate
			rest = strings.TrimSpace(stripped[idx+1:])
		}
	}
	if rest == "" {
		return &Line{Kind: LineLabel, Raw: raw, Label: label}
	}

	fields := strings.SplitN(rest, " ", 2)
	head := fields[0]
	upperHead := strings.ToUpper(head)

	if directiveNames[upperHead] {
		args := ""
		if len(fields) > 1 {
			args = strings.TrimSpace(fields[1])
		}
		return &Line{Kind: LineDirective, Raw: raw, Label: label, Directive: upperHead, DirArgs: args}
	}

	mnemonic := upperHead
	var operands []Operand
	if len(fields) > 1 {
		for i, raw := range splitOperands(fields[1]) {
			preferCondition := conditionMnemonics[mnemonic] && i == 0
			operands = append(operands, ParseOperandAs(raw, preferCondition))
		}
	}

	return &Line{
		Kind:  LineInstruction,
		Raw:   raw,
		Label: label,
		Instr: &Instruction{
			Label:    label,
			Mnemonic: mnemonic,
			Operands: operands,
			Source:   raw,
		},
	}
}

// ParseSource tokenizes a complete assembly listing into a Line sequence.
func ParseSource(source string) []*Line {
	lines := strings.Split(source, "\n")
	result := make([]*Line, 0, len(lines))
	for _, l := range lines {
		result = append(result, ParseLine(l))
	}
	return result
}

// splitOperands splits a comma-separated operand list, treating parentheses
// as nesting so indirect expressions containing commas (none in this ISA,
// but kept for robustness against IX/IY-offset-style notations) stay intact.
func splitOperands(s string) []string {
	var out []string
	var cur strings.Builder
	depth := 0
	for _, ch := range s {
		switch ch {
		case '(':
			depth++
			cur.WriteRune(ch)
		case ')':
			depth--
			cur.WriteRune(ch)
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
			cur.WriteRune(ch)
		default:
			cur.WriteRune(ch)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, strings.TrimSpace(cur.String()))
	}
	return out
}

// Render rebuilds assembly text for an instruction from its parsed parts:
// the label, the lower-cased mnemonic, and each operand's original spelling.
func (i *Instruction) Render() string {
	var b strings.Builder
	if i.Label != "" {
		fmt.Fprintf(&b, "%s: ", i.Label)
	}
	b.WriteString(strings.ToLower(i.Mnemonic))
	for n, op := range i.Operands {
		if n == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(op.Raw)
	}
	return b.String()
}
