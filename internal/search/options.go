package search

import (
	"fmt"

	"spiretool/internal/num"
	"spiretool/internal/spire"
)

// Objective is the metric a search maximises once candidates are fully scored.
type Objective int

const (
	ObjectiveDamage Objective = iota
	ObjectiveThreat
	ObjectiveRunestones
)

var objectiveNames = [...]string{"damage", "threat", "runestones"}

func (o Objective) String() string {
	if o < 0 || int(o) >= len(objectiveNames) {
		return fmt.Sprintf("Objective(%d)", int(o))
	}
	return objectiveNames[o]
}

func ParseObjective(s string) (Objective, error) {
	for i, name := range objectiveNames {
		if s == name {
			return Objective(i), nil
		}
	}
	return 0, fmt.Errorf("unknown objective %q", s)
}

type Options struct {
	Population     int
	Generations    int
	Elites         int
	TournamentSize int
	CrossoverRate  float64
	MutationCount  int
	MutateMode     spire.MutateMode
	// MaxVariant gates which traps mutation may place, see spire.Layout.Mutate.
	MaxVariant int
	// FastGenerations are scored with spire.Fast before switching to spire.Compatible.
	FastGenerations int
	// Budget caps layout cost; zero means unlimited.
	Budget    num.Number
	Objective Objective
	Workers   int
	Seed      int64
}

func DefaultOptions() Options {
	return Options{
		Population:      64,
		Generations:     200,
		Elites:          4,
		TournamentSize:  3,
		CrossoverRate:   0.5,
		MutationCount:   2,
		MutateMode:      spire.AllMutations,
		MaxVariant:      spire.MaxVariant,
		FastGenerations: 20,
		Objective:       ObjectiveThreat,
		Workers:         4,
		Seed:            1,
	}
}

func (o Options) validate() error {
	if o.Population < 2 {
		return fmt.Errorf("population must be at least 2, got %d", o.Population)
	}
	if o.Generations < 1 {
		return fmt.Errorf("generations must be positive, got %d", o.Generations)
	}
	if o.Elites < 1 || o.Elites > o.Population {
		return fmt.Errorf("invalid elite count: %d", o.Elites)
	}
	if o.CrossoverRate < 0 || o.CrossoverRate > 1 {
		return fmt.Errorf("crossover rate %v outside [0,1]", o.CrossoverRate)
	}
	if o.MutationCount < 0 {
		return fmt.Errorf("negative mutation count %d", o.MutationCount)
	}
	if o.Objective < ObjectiveDamage || o.Objective > ObjectiveRunestones {
		return fmt.Errorf("invalid objective %d", int(o.Objective))
	}
	return nil
}
