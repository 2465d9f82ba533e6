package asm

import "testing"

func TestParseOperandKinds(t *testing.T) {
	tests := []struct {
		raw  string
		kind OperandKind
	}{
		{"a", OperandRegister},
		{"hl", OperandRegisterPair},
		{"(hl)", OperandIndirect},
		{"1", OperandImmediate},
		{"$10", OperandImmediate},
		{"0x10", OperandImmediate},
		{"nz", OperandCondition},
		{"L1", OperandSymbol},
	}
	for _, tt := range tests {
		op := ParseOperand(tt.raw)
		if op.Kind != tt.kind {
			t.Errorf("ParseOperand(%q).Kind = %v, want %v", tt.raw, op.Kind, tt.kind)
		}
	}
}

func TestParseOperandAsResolvesConditionAmbiguity(t *testing.T) {
	reg := ParseOperandAs("c", false)
	if reg.Kind != OperandRegister {
		t.Fatalf("bare c without hint should be a register, got %v", reg.Kind)
	}
	cond := ParseOperandAs("c", true)
	if cond.Kind != OperandCondition {
		t.Fatalf("bare c with condition hint should be a condition, got %v", cond.Kind)
	}
}

func TestOperandEqualNumericByValue(t *testing.T) {
	a := ParseOperand("0x10")
	b := ParseOperand("16")
	if !a.Equal(b) {
		t.Fatalf("0x10 and 16 should compare equal by value")
	}
}

func TestOperandEqualDifferingKind(t *testing.T) {
	reg := ParseOperand("a")
	sym := ParseOperand("label_a")
	if reg.Equal(sym) {
		t.Fatalf("register and symbol must never compare equal")
	}
}

func TestParseLineClassifiesInstruction(t *testing.T) {
	l := ParseLine("  jp nz, L1")
	if l.Kind != LineInstruction {
		t.Fatalf("expected instruction, got %v", l.Kind)
	}
	if l.Instr.Mnemonic != "JP" {
		t.Fatalf("expected mnemonic JP, got %q", l.Instr.Mnemonic)
	}
	if len(l.Instr.Operands) != 2 {
		t.Fatalf("expected 2 operands, got %d", len(l.Instr.Operands))
	}
	if l.Instr.Operands[0].Kind != OperandCondition {
		t.Fatalf("jp's first operand must resolve to a condition, got %v", l.Instr.Operands[0].Kind)
	}
}

func TestParseLineClassifiesDirectiveLabelBlankComment(t *testing.T) {
	cases := []struct {
		raw  string
		kind LineKind
	}{
		{"ORG $8000", LineDirective},
		{"L1:", LineLabel},
		{"", LineBlank},
		{"   ; a full-line comment", LineComment},
	}
	for _, c := range cases {
		l := ParseLine(c.raw)
		if l.Kind != c.kind {
			t.Errorf("ParseLine(%q).Kind = %v, want %v", c.raw, l.Kind, c.kind)
		}
	}
}

func TestParseLineLabelPrefixingInstruction(t *testing.T) {
	l := ParseLine("loop: inc b")
	if l.Kind != LineInstruction {
		t.Fatalf("expected instruction, got %v", l.Kind)
	}
	if l.Label != "loop" {
		t.Fatalf("expected label 'loop', got %q", l.Label)
	}
}

func TestWindowAtStopsAtLabelBoundary(t *testing.T) {
	buf := NewBuffer("sub 1\nL1:\njp nc, L2\n")
	_, ok := buf.WindowAt(0, 2)
	if ok {
		t.Fatalf("window must not cross a label boundary")
	}
}

func TestWindowAtSkipsTriviaBetweenInstructions(t *testing.T) {
	buf := NewBuffer("call __EQ16\n; a comment\nor a\njp nz, L1\n")
	w, ok := buf.WindowAt(0, 3)
	if !ok {
		t.Fatalf("expected a window of 3 instructions, trivia should be skipped")
	}
	if len(w.Instr) != 3 {
		t.Fatalf("expected 3 instructions in window, got %d", len(w.Instr))
	}
	if w.Instr[1].Mnemonic != "OR" {
		t.Fatalf("expected second instruction to be OR, got %q", w.Instr[1].Mnemonic)
	}
}

func TestSplicePreservesDirectivesAtOriginalRelativeOrder(t *testing.T) {
	buf := NewBuffer("call __EQ16\nor a\n; probe\njp nz, L1\n")
	w, ok := buf.WindowAt(0, 3)
	if !ok {
		t.Fatalf("expected window to build")
	}
	buf.Splice(w, []string{"or a", "sbc hl, de", "jp z, L1"})
	out := buf.Render()
	want := "or a\nsbc hl, de\njp z, L1\n; probe\n"
	if out != want {
		t.Fatalf("Splice output mismatch:\ngot:  %q\nwant: %q", out, want)
	}
}

func TestSplicePreservesTrailingLines(t *testing.T) {
	buf := NewBuffer("sub 1\njp nc, L1\nret\n")
	w, ok := buf.WindowAt(0, 2)
	if !ok {
		t.Fatalf("expected window to build")
	}
	buf.Splice(w, []string{"or a", "jp z, L1"})
	out := buf.Render()
	want := "or a\njp z, L1\nret\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}
