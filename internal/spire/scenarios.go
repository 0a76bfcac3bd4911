package spire

import "spiretool/internal/num"

const (
	// ScenarioCount is the number of enemy tiers simulated per cycle.
	ScenarioCount = 16
	// CycleStride is the tier offset between consecutive cycles; windows overlap by half.
	CycleStride = 8
	// MaxTier is the last tier of the enemy hit-point ladder. Tier 345 would
	// overflow a Number.
	MaxTier = 343
	// MaxCycle is the last cycle whose whole window lies on the ladder.
	MaxCycle = (MaxTier - ScenarioCount + 1) / CycleStride

	enemyBaseHP      = 100
	enemyGrowthPct   = 110
	runestoneDivisor = 20
)

var enemyHP = func() [MaxTier + 1]num.Number {
	var tbl [MaxTier + 1]num.Number
	hp := num.FromInt(enemyBaseHP)
	for t := range tbl {
		tbl[t] = hp
		hp = hp.MulFrac(enemyGrowthPct, 100)
	}
	return tbl
}()

func clampTier(tier int) int {
	if tier < 0 {
		return 0
	}
	if tier > MaxTier {
		return MaxTier
	}
	return tier
}

// EnemyHP returns the hit points of an enemy of the given threat tier.
func EnemyHP(tier int) num.Number { return enemyHP[clampTier(tier)] }

// Runestones returns the runestones dropped by a killed enemy of a tier.
func Runestones(tier int) num.Number { return EnemyHP(tier).Div(runestoneDivisor) }

// FirstTier is the lowest tier of a cycle's scenario window.
func FirstTier(cycle int) int {
	return clampTier(clampCycle(cycle) * CycleStride)
}

// CycleForThreat picks the cycle whose window is centred on a threat tier.
func CycleForThreat(threat uint64) int {
	if threat > MaxTier {
		threat = MaxTier
	}
	return clampCycle((int(threat) - ScenarioCount/2) / CycleStride)
}

func clampCycle(c int) int {
	if c < 0 {
		return 0
	}
	if c > MaxCycle {
		return MaxCycle
	}
	return c
}

func scenarioTier(cycle, s int) int { return clampTier(FirstTier(cycle) + s) }

// buildResults simulates one attacker per tier of the cycle's window.
func (l *Layout) buildResults(steps []Step) []SimResult {
	results := make([]SimResult, ScenarioCount)
	for s := range results {
		results[s] = simulate(steps, EnemyHP(scenarioTier(l.cycle, s)), nil)
	}
	return results
}

// Combine selects how integrateResults folds extracted values.
type Combine int

const (
	CombineMean Combine = iota
	CombineSum
	CombineMin
	CombineMax
)

// Reduction is a policy turning a set of results into one scalar.
type Reduction struct {
	// Extract projects the i-th result onto the quantity being reduced.
	Extract func(i int, r SimResult) num.Number
	// Weights applies to CombineMean; nil weighs every result equally.
	Weights []uint64
	Combine Combine
}

func integrateResults(results []SimResult, red Reduction) num.Number {
	if len(results) == 0 {
		return num.Zero
	}
	switch red.Combine {
	case CombineMin, CombineMax:
		acc := red.Extract(0, results[0])
		for i := 1; i < len(results); i++ {
			v := red.Extract(i, results[i])
			if (red.Combine == CombineMin) == v.Less(acc) {
				acc = v
			}
		}
		return acc
	case CombineSum:
		acc := num.Zero
		for i, r := range results {
			acc = acc.Add(red.Extract(i, r))
		}
		return acc
	}

	acc := num.Zero
	var total uint64
	for i, r := range results {
		w := uint64(1)
		if red.Weights != nil {
			if i >= len(red.Weights) {
				break
			}
			w = red.Weights[i]
		}
		acc = acc.Add(red.Extract(i, r).Mul(w))
		total += w
	}
	return acc.Div(total)
}
