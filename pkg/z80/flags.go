// Package z80 is the semantic oracle: a pure classification layer over
// individual Z80 instructions. It never executes an instruction, only
// inspects its mnemonic and operands, answering the flag/register/control-
// flow questions the rule DSL's builtins and predicates depend on.
package z80

// Flag bit positions in the F register, following the conventional Z80
// flag-register layout.
type Flag uint8

const (
	FlagC Flag = 0x01 // Carry
	FlagN Flag = 0x02 // Subtract
	FlagP Flag = 0x04 // Parity/Overflow
	FlagH Flag = 0x10 // Half-carry
	FlagZ Flag = 0x40 // Zero
	FlagS Flag = 0x80 // Sign
)

// FlagV is the overflow flag; it shares bit 2 with FlagP (Z80 opcodes use
// one or the other depending on whether the preceding operation is
// arithmetic or logical/rotate).
const FlagV = FlagP

func (f Flag) String() string {
	switch f {
	case FlagC:
		return "C"
	case FlagN:
		return "N"
	case FlagP:
		return "P/V"
	case FlagH:
		return "H"
	case FlagZ:
		return "Z"
	case FlagS:
		return "S"
	default:
		return "?"
	}
}

// FlagSet is a small bitset over the six Z80 flags.
type FlagSet uint8

func (s FlagSet) Has(f Flag) bool { return s&FlagSet(f) != 0 }
func (s FlagSet) With(f Flag) FlagSet { return s | FlagSet(f) }

// AllFlags is the full {S,Z,H,P/V,N,C} set, e.g. what `sub` defines.
const AllFlags = FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagN | FlagC)
