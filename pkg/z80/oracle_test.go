package z80

import (
	"testing"

	"github.com/boriel/boriel-basic/pkg/asm"
)

func instr(t *testing.T, src string) *asm.Instruction {
	t.Helper()
	l := asm.ParseLine(src)
	if l.Kind != asm.LineInstruction {
		t.Fatalf("test fixture %q did not parse as an instruction", src)
	}
	return l.Instr
}

func TestDefinesFlags(t *testing.T) {
	o := New()
	sub := instr(t, "sub 1")
	if o.DefinesFlags(sub) != AllFlags {
		t.Fatalf("sub should define all flags")
	}
	ld := instr(t, "ld a, b")
	if o.DefinesFlags(ld) != 0 {
		t.Fatalf("ld should define no flags")
	}
}

func TestDefinesFlagsIncOperandWidth(t *testing.T) {
	o := New()
	incA := instr(t, "inc a")
	if !o.DefinesFlags(incA).Has(FlagZ) {
		t.Fatalf("inc a should define Z")
	}
	incHL := instr(t, "inc hl")
	if o.DefinesFlags(incHL) != 0 {
		t.Fatalf("inc hl (16-bit) should define no flags")
	}
}

func TestUsesRegisterAndChangesRegister(t *testing.T) {
	o := New()
	ld := instr(t, "ld a, b")
	if !o.UsesRegister(ld, "b") {
		t.Fatalf("ld a, b should read b")
	}
	if o.UsesRegister(ld, "a") {
		t.Fatalf("ld a, b should not read a")
	}
	if !o.ChangesRegister(ld, "a") {
		t.Fatalf("ld a, b should write a")
	}
}

func TestChangesRegisterIndirectDestinationIsNotAWrite(t *testing.T) {
	o := New()
	ld := instr(t, "ld (hl), a")
	if o.ChangesRegister(ld, "hl") {
		t.Fatalf("ld (hl), a must not report hl as changed: it is dereferenced, not written")
	}
}

func TestConditionClassification(t *testing.T) {
	o := New()
	uncond := instr(t, "jp L1")
	if !o.IsUnconditionalJump(uncond) {
		t.Fatalf("jp L1 should be unconditional")
	}
	cond := instr(t, "jp nz, L1")
	if !o.IsConditionalJump(cond) {
		t.Fatalf("jp nz, L1 should be conditional")
	}
	if o.ConditionOf(cond) != "nz" {
		t.Fatalf("expected condition nz, got %q", o.ConditionOf(cond))
	}
}

func TestInvertCondition(t *testing.T) {
	tests := map[string]string{"nz": "z", "z": "nz", "nc": "c", "c": "nc", "po": "pe", "p": "m"}
	for in, want := range tests {
		got, ok := InvertCondition(in)
		if !ok || got != want {
			t.Errorf("InvertCondition(%q) = %q, %v; want %q, true", in, got, ok, want)
		}
	}
	if _, ok := InvertCondition("bogus"); ok {
		t.Fatalf("InvertCondition should reject an unknown condition")
	}
}

func TestConsumesFlags(t *testing.T) {
	o := New()
	if !o.ConsumesFlags(instr(t, "jp nz, L1")) {
		t.Fatalf("conditional jump consumes flags")
	}
	if o.ConsumesFlags(instr(t, "jp L1")) {
		t.Fatalf("unconditional jump does not consume flags")
	}
	if !o.ConsumesFlags(instr(t, "adc a, b")) {
		t.Fatalf("adc reads the carry flag")
	}
	if o.ConsumesFlags(instr(t, "add a, b")) {
		t.Fatalf("add does not read the carry flag")
	}
}
