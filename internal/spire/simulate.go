package spire

import "spiretool/internal/num"

// NoKill is the KillCell of an attacker that walked the whole path.
const NoKill = -1

// SimResult is the outcome of one traversal.
type SimResult struct {
	MaxHP    num.Number
	SimHP    num.Number
	Damage   num.Number
	Toxicity num.Number
	// RunestonePct is the runestone bonus earned by the kill; zero on escape.
	RunestonePct uint16
	StepsTaken   int
	// Ticks counts trap activations, the time the attacker spent in the spire.
	Ticks    uint64
	KillCell int
}

func (r SimResult) Killed() bool { return r.KillCell != NoKill }

// Dealt is the damage the attacker actually absorbed: its whole pool on a kill.
func (r SimResult) Dealt() num.Number {
	if r.Killed() {
		return r.MaxHP
	}
	return r.MaxHP.Sub(r.SimHP)
}

// SimDetail traces one processed step.
type SimDetail struct {
	DamageTaken num.Number
	Toxicity    num.Number
	HPLeft      num.Number
}

// simulate walks an attacker with hp hit points over steps. When detail is
// non-nil one SimDetail per processed step is appended to it.
func simulate(steps []Step, hp num.Number, detail *[]SimDetail) SimResult {
	res := SimResult{MaxHP: hp, SimHP: hp, KillCell: NoKill}
	tox := num.Zero
	for _, st := range steps {
		if st.ToxicPml != 1000 {
			tox = tox.MulFrac(uint64(st.ToxicPml), 1000)
		}
		tox = tox.Add(st.Toxicity)

		a := st.activations()
		tick := tox.Mul(a)
		taken := st.DirectDamage.Add(tick)
		res.Damage = res.Damage.Add(st.DirectDamage)
		res.Toxicity = res.Toxicity.Add(tick)
		res.SimHP = res.SimHP.Sub(taken)
		res.StepsTaken++
		res.Ticks += a

		killed := res.SimHP.IsZero()
		if !killed && st.KillPml > 0 {
			killed = res.SimHP.CmpScaled(1000, res.MaxHP, uint64(st.KillPml)) <= 0
		}
		if killed {
			res.SimHP = num.Zero
		}
		if detail != nil {
			*detail = append(*detail, SimDetail{DamageTaken: taken, Toxicity: tox, HPLeft: res.SimHP})
		}
		if killed {
			res.KillCell = st.Cell
			res.RunestonePct = st.RSBonus
			break
		}
	}
	return res
}
