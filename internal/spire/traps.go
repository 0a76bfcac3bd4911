package spire

import "spiretool/internal/num"

// FloorWidth is the number of cells on one spire floor.
const FloorWidth = 5

// Trap is the content of one path cell. The numeric order is the unlock
// order used to gate mutations.
type Trap uint8

const (
	Empty Trap = iota
	Fire
	Frost
	Poison
	Lightning
	Strength
	Condenser
	Knowledge
)

// Alphabet is the placement string alphabet, indexed by Trap.
const Alphabet = "_FZPLSCK"

// MaxVariant is the highest Trap index.
const MaxVariant = int(Knowledge)

type trapInfo struct {
	name     string
	baseCost num.Number
	// percent growth of each further copy of this trap
	growth uint64
}

var trapTable = [...]trapInfo{
	Empty:     {name: "empty"},
	Fire:      {name: "fire", baseCost: num.FromInt(100), growth: 115},
	Frost:     {name: "frost", baseCost: num.FromInt(100), growth: 115},
	Poison:    {name: "poison", baseCost: num.FromInt(500), growth: 115},
	Lightning: {name: "lightning", baseCost: num.FromInt(1000), growth: 115},
	Strength:  {name: "strength", baseCost: num.FromInt(3000), growth: 150},
	Condenser: {name: "condenser", baseCost: num.FromInt(6000), growth: 150},
	Knowledge: {name: "knowledge", baseCost: num.FromInt(9000), growth: 150},
}

var trapByChar = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		idx[Alphabet[i]] = int8(i)
	}
	return idx
}()

// TrapFromChar maps a placement character to its Trap.
func TrapFromChar(c byte) (Trap, bool) {
	i := trapByChar[c]
	if i < 0 {
		return Empty, false
	}
	return Trap(i), true
}

func (t Trap) Char() byte {
	if int(t) >= len(Alphabet) {
		return '?'
	}
	return Alphabet[t]
}

func (t Trap) String() string {
	if int(t) >= len(trapTable) {
		return "invalid"
	}
	return trapTable[t].name
}

func (t Trap) Valid() bool { return int(t) < len(Alphabet) }

// Tower reports whether the trap is a tower (no damage of its own).
func (t Trap) Tower() bool { return t == Strength || t == Condenser || t == Knowledge }
