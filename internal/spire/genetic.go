package spire

import "fmt"

// Random is the stochastic source consumed by the genetic operators.
// *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
	Float64() float64
}

func chance(rng Random, p float64) bool { return rng.Float64() < p }

// MutateMode selects which mutation operations Mutate may apply.
type MutateMode int

const (
	ReplaceOnly MutateMode = iota
	PermuteOnly
	AllMutations
)

var mutateModeNames = [...]string{"replace", "permute", "all"}

func (m MutateMode) String() string {
	if m < 0 || int(m) >= len(mutateModeNames) {
		return fmt.Sprintf("MutateMode(%d)", int(m))
	}
	return mutateModeNames[m]
}

func ParseMutateMode(s string) (MutateMode, error) {
	for i, name := range mutateModeNames {
		if s == name {
			return MutateMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mutate mode %q", s)
}

// CrossFrom splices a random cell range of other into the receiver's
// placement (two-point crossover). Upgrades, core and cycle are kept.
func (l *Layout) CrossFrom(other *Layout, rng Random) {
	n := len(l.data)
	if len(other.data) < n {
		n = len(other.data)
	}
	if n == 0 {
		return
	}
	a := rng.Intn(n + 1)
	b := rng.Intn(n + 1)
	if a > b {
		a, b = b, a
	}
	copy(l.data[a:b], other.data[a:b])
}

// Mutate applies count mutation operations to the placement. Replacement
// draws only traps whose index is at most maxVariant.
func (l *Layout) Mutate(mode MutateMode, count int, rng Random, maxVariant int) {
	if maxVariant > MaxVariant {
		maxVariant = MaxVariant
	}
	if maxVariant < 0 {
		maxVariant = 0
	}
	for i := 0; i < count; i++ {
		op := mode
		if op == AllMutations {
			op = ReplaceOnly
			if chance(rng, 0.5) {
				op = PermuteOnly
			}
		}
		if op == PermuteOnly {
			l.permute(rng)
		} else {
			l.replace(rng, maxVariant)
		}
	}
}

func (l *Layout) replace(rng Random, maxVariant int) {
	if len(l.data) == 0 {
		return
	}
	cell := rng.Intn(len(l.data))
	cur := int(l.data[cell])
	if cur > maxVariant {
		l.data[cell] = Trap(rng.Intn(maxVariant + 1))
		return
	}
	if maxVariant == 0 {
		return
	}
	v := rng.Intn(maxVariant)
	if v >= cur {
		v++
	}
	l.data[cell] = Trap(v)
}

func (l *Layout) permute(rng Random) {
	n := len(l.data)
	if n < 2 {
		return
	}
	a := rng.Intn(n)
	b := rng.Intn(n - 1)
	if b >= a {
		b++
	}
	l.data[a], l.data[b] = l.data[b], l.data[a]
}
