// Package spire evaluates and breeds spire trap layouts.
//
// A Layout is compiled into Steps (one per path cell), the Steps are replayed
// against attackers of the cycle's enemy tiers and the outcomes are reduced
// into the cached metrics read by a search.
package spire

import (
	"fmt"

	"spiretool/internal/num"
)

// UpdateMode selects how much work Update does. Each mode does everything the
// previous one does.
type UpdateMode int

const (
	CostOnly UpdateMode = iota
	Fast
	Compatible
	ExactDamage
	Full
)

var updateModeNames = [...]string{"cost_only", "fast", "compatible", "exact_damage", "full"}

func (m UpdateMode) String() string {
	if m < 0 || int(m) >= len(updateModeNames) {
		return fmt.Sprintf("UpdateMode(%d)", int(m))
	}
	return updateModeNames[m]
}

// ParseUpdateMode maps a mode name such as "fast" to its UpdateMode.
func ParseUpdateMode(s string) (UpdateMode, error) {
	for i, name := range updateModeNames {
		if s == name {
			return UpdateMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown update mode %q", s)
}

// Layout is a trap placement plus upgrade configuration together with the
// metrics computed by the last Update.
type Layout struct {
	upgrades TrapUpgrades
	core     Core
	effects  TrapEffects
	data     []Trap

	damage   num.Number
	cost     num.Number
	rsPerSec num.Number
	// threat is kept in sixteenths of a tier
	threat uint64
	cycle  int
}

func NewLayout() *Layout {
	l := &Layout{}
	l.effects = NewTrapEffects(l.upgrades, l.core)
	return l
}

// New builds a layout from upgrades and a placement string.
func New(upgrades TrapUpgrades, traps string, cycle int) (*Layout, error) {
	l := NewLayout()
	l.SetUpgrades(upgrades)
	if err := l.SetTraps(traps, cycle); err != nil {
		return nil, err
	}
	return l, nil
}

// EmptyTraps returns an all-empty placement string for a spire of floors floors.
func EmptyTraps(floors int) string {
	if floors <= 0 {
		return ""
	}
	b := make([]byte, floors*FloorWidth)
	for i := range b {
		b[i] = Alphabet[Empty]
	}
	return string(b)
}

func (l *Layout) SetUpgrades(u TrapUpgrades) {
	l.upgrades = u
	l.effects = NewTrapEffects(l.upgrades, l.core)
}

func (l *Layout) SetCore(c Core) {
	l.core = c
	l.effects = NewTrapEffects(l.upgrades, l.core)
}

// SetTraps replaces the placement. Characters outside Alphabet are rejected;
// length and floor rules are left to IsValid.
func (l *Layout) SetTraps(traps string, cycle int) error {
	data := make([]Trap, len(traps))
	for i := 0; i < len(traps); i++ {
		t, ok := TrapFromChar(traps[i])
		if !ok {
			return fmt.Errorf("cell %d: unknown trap %q", i, traps[i])
		}
		data[i] = t
	}
	l.data = data
	l.SetCycle(cycle)
	return nil
}

// SetCycle selects the scenario window, clamped to 0..MaxCycle.
func (l *Layout) SetCycle(cycle int) {
	l.cycle = clampCycle(cycle)
}

// Clone returns an independent copy, metrics included.
func (l *Layout) Clone() *Layout {
	c := *l
	c.data = append([]Trap(nil), l.data...)
	return &c
}

func (l *Layout) Upgrades() TrapUpgrades { return l.upgrades }
func (l *Layout) Core() Core             { return l.core }
func (l *Layout) Effects() TrapEffects   { return l.effects }

func (l *Layout) Traps() string {
	b := make([]byte, len(l.data))
	for i, t := range l.data {
		b[i] = t.Char()
	}
	return string(b)
}

func (l *Layout) Len() int                        { return len(l.data) }
func (l *Layout) Floors() int                     { return len(l.data) / FloorWidth }
func (l *Layout) Damage() num.Number              { return l.damage }
func (l *Layout) Cost() num.Number                { return l.cost }
func (l *Layout) RunestonesPerSecond() num.Number { return l.rsPerSec }
func (l *Layout) Cycle() int                      { return l.cycle }

// Threat returns the threat rating rounded to the nearest tier,
// (threat+8)/16 without overflowing for any stored value.
func (l *Layout) Threat() uint64 { return roundThreat(l.threat) }

func roundThreat(x16 uint64) uint64 {
	return x16/16 + (x16%16+8)/16
}

// Update recomputes the metrics covered by mode. Metrics outside the mode
// keep their previous, possibly stale, values.
func (l *Layout) Update(mode UpdateMode) {
	l.updateCost()
	if mode == CostOnly {
		return
	}
	steps := l.buildSteps()
	if mode == Fast || mode == Compatible {
		l.updateDamageFromSteps(steps, mode)
		return
	}
	results := l.buildResults(steps)
	l.updateDamage(results)
	if mode == Full {
		l.updateThreat(results)
		l.updateRunestones(results)
	}
}

// updateDamageFromSteps covers the two cheap modes: Fast caps the potential
// damage of the steps by each tier's hit points, Compatible simulates the
// middle tier of the window only.
func (l *Layout) updateDamageFromSteps(steps []Step, mode UpdateMode) {
	if mode == Compatible {
		res := simulate(steps, EnemyHP(scenarioTier(l.cycle, ScenarioCount/2)), nil)
		l.damage = res.Dealt()
		return
	}
	potential := potentialDamage(steps)
	acc := num.Zero
	for s := 0; s < ScenarioCount; s++ {
		acc = acc.Add(num.Min(potential, EnemyHP(scenarioTier(l.cycle, s))))
	}
	l.damage = acc.Div(ScenarioCount)
}

func (l *Layout) updateDamage(results []SimResult) {
	l.damage = integrateResults(results, Reduction{
		Extract: func(_ int, r SimResult) num.Number { return r.Dealt() },
		Combine: CombineMean,
	})
}

func (l *Layout) updateCost() {
	var price [len(Alphabet)]num.Number
	total := num.Zero
	for _, t := range l.data {
		info := trapTable[t]
		if info.baseCost.IsZero() {
			continue
		}
		if price[t].IsZero() {
			price[t] = info.baseCost
		}
		total = total.Add(price[t])
		price[t] = price[t].MulFrac(info.growth, 100)
	}
	l.cost = total
}

// updateThreat credits a full tier for every killed scenario and a fraction
// of one, by damage dealt, for every escape.
func (l *Layout) updateThreat(results []SimResult) {
	credit := integrateResults(results, Reduction{
		Extract: func(_ int, r SimResult) num.Number {
			if r.Killed() {
				return num.FromInt(16)
			}
			return num.FromInt(r.Dealt().Ratio(r.MaxHP, 16))
		},
		Combine: CombineSum,
	})
	l.threat = uint64(FirstTier(l.cycle))*16 + credit.Int()
}

func (l *Layout) updateRunestones(results []SimResult) {
	earned := integrateResults(results, Reduction{
		Extract: func(i int, r SimResult) num.Number {
			if !r.Killed() {
				return num.Zero
			}
			return Runestones(scenarioTier(l.cycle, i)).MulFrac(100+uint64(r.RunestonePct), 100)
		},
		Combine: CombineSum,
	})
	seconds := integrateResults(results, Reduction{
		Extract: func(_ int, r SimResult) num.Number { return num.FromInt(r.Ticks) },
		Combine: CombineSum,
	})
	l.rsPerSec = earned.Quo(seconds)
}
