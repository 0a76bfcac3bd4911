// Package search runs the population loop that breeds spire layouts.
package search

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"

	"spiretool/internal/num"
	"spiretool/internal/spire"
	"spiretool/internal/util"
)

type Candidate struct {
	Layout  *spire.Layout
	Fitness num.Number
	// Feasible is false for invalid or over-budget layouts.
	Feasible bool
}

// Generation summarises the best fully scored layout of one generation.
type Generation struct {
	RunID   string     `json:"run_id"`
	Index   int        `json:"generation"`
	Mode    string     `json:"mode"`
	Traps   string     `json:"traps"`
	Fitness num.Number `json:"fitness"`
	Damage  num.Number `json:"damage"`
	Cost    num.Number `json:"cost"`
	Threat  uint64     `json:"threat"`
	RS      num.Number `json:"rs_per_sec"`
	Cycle   int        `json:"cycle"`
}

type Result struct {
	RunID       string
	Best        *spire.Layout
	Fitness     num.Number
	Generations []Generation
}

// Run evolves a population seeded from seed. onGeneration, when non-nil, is
// called after every generation from the calling goroutine.
func Run(ctx context.Context, seed *spire.Layout, opts Options, onGeneration func(Generation)) (Result, error) {
	if seed == nil || seed.Len() == 0 {
		return Result{}, fmt.Errorf("seed layout is required")
	}
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	rng := util.New(opts.Seed)
	runID := uuid.NewString()

	population := make([]*spire.Layout, opts.Population)
	population[0] = seed.Clone()
	for i := 1; i < len(population); i++ {
		c := seed.Clone()
		c.Mutate(opts.MutateMode, opts.MutationCount+1, rng, opts.MaxVariant)
		population[i] = c
	}

	cycle := seed.Cycle()
	var best Candidate
	history := make([]Generation, 0, opts.Generations)
	for gen := 0; gen < opts.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		mode := spire.Compatible
		if gen < opts.FastGenerations {
			mode = spire.Fast
		}
		for _, l := range population {
			l.SetCycle(cycle)
		}
		ranked, err := opts.evaluate(ctx, population, mode)
		if err != nil {
			return Result{}, err
		}
		rank(ranked)

		top := make([]*spire.Layout, opts.Elites)
		for i := range top {
			top[i] = ranked[i].Layout
		}
		elites, err := opts.evaluate(ctx, top, spire.Full)
		if err != nil {
			return Result{}, err
		}
		rank(elites)

		lead := elites[0]
		if best.Layout != nil && best.Layout.Cycle() != cycle {
			best = opts.rescore(best.Layout, cycle)
		}
		if best.Layout == nil || better(lead, best) {
			best = lead
			best.Layout = lead.Layout.Clone()
		}
		g := Generation{
			RunID:   runID,
			Index:   gen + 1,
			Mode:    mode.String(),
			Traps:   lead.Layout.Traps(),
			Fitness: lead.Fitness,
			Damage:  lead.Layout.Damage(),
			Cost:    lead.Layout.Cost(),
			Threat:  lead.Layout.Threat(),
			RS:      lead.Layout.RunestonesPerSecond(),
			Cycle:   cycle,
		}
		history = append(history, g)
		if onGeneration != nil {
			onGeneration(g)
		}

		cycle = spire.CycleForThreat(lead.Layout.Threat())
		population = opts.breed(rng, elites, ranked)
	}

	return Result{RunID: runID, Best: best.Layout, Fitness: best.Fitness, Generations: history}, nil
}

// score rates a layout updated with mode. Invalid or over-budget layouts are
// infeasible and score zero. Only fully scored layouts are ranked by the
// objective; cheaper modes rank by damage.
func (o Options) score(l *spire.Layout, mode spire.UpdateMode) Candidate {
	c := Candidate{Layout: l}
	if !l.IsValid() || (!o.Budget.IsZero() && o.Budget.Less(l.Cost())) {
		return c
	}
	c.Feasible = true
	switch {
	case mode < spire.Full:
		c.Fitness = l.Damage()
	case o.Objective == ObjectiveThreat:
		c.Fitness = num.FromInt(l.Threat())
	case o.Objective == ObjectiveRunestones:
		c.Fitness = l.RunestonesPerSecond()
	default:
		c.Fitness = l.Damage()
	}
	return c
}

// rescore fully evaluates l in the scenario window of cycle, so it compares
// fairly with layouts scored there.
func (o Options) rescore(l *spire.Layout, cycle int) Candidate {
	l.SetCycle(cycle)
	l.Update(spire.Full)
	return o.score(l, spire.Full)
}

func better(a, b Candidate) bool {
	if a.Feasible != b.Feasible {
		return a.Feasible
	}
	if c := a.Fitness.Cmp(b.Fitness); c != 0 {
		return c > 0
	}
	return b.Layout.Damage().Less(a.Layout.Damage())
}

func rank(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool { return better(c[i], c[j]) })
}

func (o Options) evaluate(ctx context.Context, layouts []*spire.Layout, mode spire.UpdateMode) ([]Candidate, error) {
	type job struct {
		idx    int
		layout *spire.Layout
	}
	type result struct {
		idx       int
		candidate Candidate
		err       error
	}

	jobs := make(chan job)
	results := make(chan result, len(layouts))

	workerCount := o.Workers
	if workerCount > len(layouts) {
		workerCount = len(layouts)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				j.layout.Update(mode)
				results <- result{idx: j.idx, candidate: o.score(j.layout, mode)}
			}
		}()
	}

	for i, l := range layouts {
		jobs <- job{idx: i, layout: l}
	}
	close(jobs)

	wg.Wait()
	close(results)

	scored := make([]Candidate, len(layouts))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		scored[res.idx] = res.candidate
	}
	return scored, nil
}

// breed carries the elites over unchanged and fills the rest of the next
// population with tournament offspring.
func (o Options) breed(rng *rand.Rand, elites, ranked []Candidate) []*spire.Layout {
	next := make([]*spire.Layout, 0, o.Population)
	for _, e := range elites {
		next = append(next, e.Layout.Clone())
	}
	for len(next) < o.Population {
		child := tournament(rng, ranked, o.TournamentSize).Clone()
		if rng.Float64() < o.CrossoverRate {
			child.CrossFrom(tournament(rng, ranked, o.TournamentSize), rng)
		}
		child.Mutate(o.MutateMode, o.MutationCount, rng, o.MaxVariant)
		next = append(next, child)
	}
	return next
}

// tournament samples size candidates from ranked and returns the best one.
func tournament(rng *rand.Rand, ranked []Candidate, size int) *spire.Layout {
	if size < 1 {
		size = 1
	}
	best := rng.Intn(len(ranked))
	for i := 1; i < size; i++ {
		if c := rng.Intn(len(ranked)); c < best {
			best = c
		}
	}
	return ranked[best].Layout
}
