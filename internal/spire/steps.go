package spire

import "spiretool/internal/num"

// Step is one compiled traversal event: what happens to the attacker on one cell.
type Step struct {
	Cell int
	Trap Trap
	// Slow is 0 when moving freely, 1 when chilled and 2 when frozen. The cell's
	// traps fire once per activation, 1+Slow times.
	Slow  uint8
	Shock bool
	// RSBonus is the runestone bonus in percent if the attacker dies here.
	RSBonus uint16
	// KillPml kills the attacker outright once its remaining hit points are at
	// or below this many thousandths of its maximum.
	KillPml uint32
	// ToxicPml scales the accumulated toxicity on entry (1000 leaves it unchanged).
	ToxicPml     uint32
	DirectDamage num.Number
	Toxicity     num.Number
}

func (s Step) activations() uint64 { return 1 + uint64(s.Slow) }

// trail is the state carried from cell to cell while compiling.
type trail struct {
	chill   int
	frozen  int
	shock   int
	rsBonus uint64
}

func (t trail) slow() uint8 {
	switch {
	case t.frozen > 0:
		return 2
	case t.chill > 0:
		return 1
	}
	return 0
}

func countDown(v int) int {
	if v > 0 {
		return v - 1
	}
	return 0
}

// advance returns the state after the attacker leaves a cell holding trap.
func (t trail) advance(trap Trap, fx *TrapEffects) trail {
	slowed := t.slow() > 0
	t.chill = countDown(t.chill)
	t.frozen = countDown(t.frozen)
	t.shock = countDown(t.shock)

	switch trap {
	case Frost:
		t.chill += fx.ChillDuration
	case Lightning:
		if t.shock < fx.ShockDuration {
			t.shock = fx.ShockDuration
		}
	case Knowledge:
		if slowed {
			t.rsBonus += knowledgeRunestonePct
		}
		if t.chill > 0 {
			if t.frozen < t.chill {
				t.frozen = t.chill
			}
			t.chill = 0
		}
	}
	return t
}

// buildSteps compiles the placement into one Step per cell, in walking order.
func (l *Layout) buildSteps() []Step {
	fx := &l.effects
	n := len(l.data)

	strengthInFloor := make([]uint64, (n+FloorWidth-1)/FloorWidth)
	column := make([]num.Number, n)
	strike := fx.LightningDamage.MulFrac(fx.LightningColumnPml, 1000).MulFrac(fx.DamageMulti, 100)
	for i, t := range l.data {
		switch t {
		case Strength:
			strengthInFloor[i/FloorWidth]++
		case Lightning:
			if above := i + FloorWidth; above < n && !strike.IsZero() {
				column[above] = column[above].Add(strike)
			}
		}
	}

	steps := make([]Step, 0, n)
	var st trail
	for i, t := range l.data {
		step := Step{
			Cell:     i,
			Trap:     t,
			Slow:     st.slow(),
			Shock:    st.shock > 0,
			ToxicPml: 1000,
		}
		a := step.activations()
		dmg := column[i].Mul(a)

		switch t {
		case Fire:
			d := fx.FireDamage.Mul(a).MulFrac(fx.DamageMulti, 100)
			if step.Shock {
				d = d.MulFrac(fx.SpecialMulti, 100)
			}
			if s := strengthInFloor[i/FloorWidth]; s > 0 {
				d = d.MulFrac(1000+fx.StrengthPml*s, 1000)
			}
			dmg = dmg.Add(d)
			step.KillPml = uint32(fx.FireKillPml)
		case Frost:
			dmg = dmg.Add(fx.FrostDamage.Mul(a).MulFrac(fx.DamageMulti, 100))
		case Poison:
			tox := fx.PoisonDamage.Mul(a).MulFrac(fx.DamageMulti, 100)
			if step.Shock {
				tox = tox.MulFrac(fx.SpecialMulti, 100)
			}
			step.Toxicity = tox
		case Lightning:
			dmg = dmg.Add(fx.LightningDamage.Mul(a).MulFrac(fx.DamageMulti, 100))
		case Condenser:
			step.ToxicPml = uint32(1000 + fx.CondenserPml)
		}
		step.DirectDamage = dmg

		st = st.advance(t, fx)
		bonus := fx.RunestonePct + st.rsBonus
		if bonus > 255 {
			bonus = 255
		}
		step.RSBonus = uint16(bonus)
		steps = append(steps, step)
	}
	return steps
}

// potentialDamage is the damage the steps deal to an attacker that never dies.
func potentialDamage(steps []Step) num.Number {
	total := num.Zero
	tox := num.Zero
	for _, st := range steps {
		if st.ToxicPml != 1000 {
			tox = tox.MulFrac(uint64(st.ToxicPml), 1000)
		}
		tox = tox.Add(st.Toxicity)
		total = total.Add(st.DirectDamage).Add(tox.Mul(st.activations()))
	}
	return total
}
