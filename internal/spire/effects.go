package spire

import "spiretool/internal/num"

var (
	fireDamage      = [8]uint64{50, 500, 2500, 5000, 10000, 25000, 50000, 100000}
	fireKillPml     = [8]uint64{0, 0, 0, 0, 200, 200, 250, 300}
	frostDamage     = [6]uint64{10, 50, 500, 2500, 5000, 10000}
	chillDuration   = [6]int{3, 3, 4, 4, 5, 5}
	poisonDamage    = [8]uint64{5, 10, 50, 100, 500, 1000, 2500, 5000}
	lightningDamage = [6]uint64{50, 100, 1000, 5000, 10000, 50000}
	shockDuration   = [6]int{1, 2, 2, 3, 3, 4}
	specialMulti    = [6]uint64{200, 200, 300, 400, 500, 600}
	columnPml       = [6]uint64{0, 0, 0, 250, 500, 1000}
)

// knowledgeRunestonePct is added to the runestone bonus for every knowledge
// tower passed while slowed.
const knowledgeRunestonePct = 25

// TrapEffects is the numeric snapshot of upgrades (and core) used by the
// layout compiler. Percent fields are in %, Pml fields in thousandths.
type TrapEffects struct {
	FireDamage      num.Number
	FrostDamage     num.Number
	ChillDuration   int
	PoisonDamage    num.Number
	LightningDamage num.Number
	ShockDuration   int

	DamageMulti  uint64
	SpecialMulti uint64

	LightningColumnPml uint64
	StrengthPml        uint64
	CondenserPml       uint64
	FireKillPml        uint64

	RunestonePct uint64
}

func boost(base uint64, pct uint16) num.Number {
	return num.FromInt(base).MulFrac(100+uint64(pct), 100)
}

// NewTrapEffects derives trap parameters from upgrade levels and a core.
func NewTrapEffects(u TrapUpgrades, c Core) TrapEffects {
	u = clampUpgrades(u)
	fx := TrapEffects{
		FireDamage:      boost(fireDamage[u.Fire], c.Mod(ModFire)),
		FrostDamage:     num.FromInt(frostDamage[u.Frost]),
		ChillDuration:   chillDuration[u.Frost],
		PoisonDamage:    boost(poisonDamage[u.Poison], c.Mod(ModPoison)),
		LightningDamage: boost(lightningDamage[u.Lightning], c.Mod(ModLightning)),
		ShockDuration:   shockDuration[u.Lightning],

		DamageMulti:  100 + 2*uint64(u.Fire+u.Frost+u.Poison+u.Lightning),
		SpecialMulti: specialMulti[u.Lightning],

		LightningColumnPml: columnPml[u.Lightning],
		FireKillPml:        fireKillPml[u.Fire],

		RunestonePct: uint64(c.Mod(ModRunestones)),
	}
	fx.StrengthPml = 1000 + 250*levelsAbove(u.Fire, 3)
	fx.StrengthPml = fx.StrengthPml * (100 + uint64(c.Mod(ModStrength))) / 100
	fx.CondenserPml = 250 + 50*levelsAbove(u.Poison, 3)
	fx.CondenserPml = fx.CondenserPml * (100 + uint64(c.Mod(ModCondenser))) / 100
	return fx
}

func levelsAbove(level uint16, floor uint16) uint64 {
	if level <= floor {
		return 0
	}
	return uint64(level - floor)
}

func clampUpgrades(u TrapUpgrades) TrapUpgrades {
	for e := ElemFire; e <= ElemLightning; e++ {
		if u.Level(e) > maxLevel[e] {
			u = u.Set(e, maxLevel[e])
		}
	}
	return u
}
