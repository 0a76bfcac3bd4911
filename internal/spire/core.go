package spire

import (
	"fmt"
	"strings"
)

// CoreMod identifies one percentage modifier of a spire core.
type CoreMod int

const (
	ModFire CoreMod = iota
	ModPoison
	ModLightning
	ModStrength
	ModCondenser
	ModRunestones
	numCoreMods
)

// coreModKeys are the single letter keys of the core text form, indexed by CoreMod.
const coreModKeys = "FPLSCR"

// CoreTiers names the core rarity tiers; tier n is CoreTiers[n-1].
var CoreTiers = [...]string{"common", "uncommon", "rare", "epic", "legendary", "magnificent", "ethereal"}

// Core is an equipped spire core. Tier 0 means no core.
type Core struct {
	Tier int
	Mods [numCoreMods]uint16
}

// CoreModFromKey maps a text key ('F', 'P', ...) to its modifier.
func CoreModFromKey(k byte) (CoreMod, bool) {
	i := strings.IndexByte(coreModKeys, k)
	if i < 0 {
		return 0, false
	}
	return CoreMod(i), true
}

func (m CoreMod) Key() byte { return coreModKeys[m] }

func (c Core) Mod(m CoreMod) uint16 { return c.Mods[m] }

func (c Core) WithMod(m CoreMod, pct uint16) Core {
	c.Mods[m] = pct
	return c
}

func (c Core) Validate() error {
	if c.Tier < 0 || c.Tier > len(CoreTiers) {
		return fmt.Errorf("core tier %d out of range", c.Tier)
	}
	if c.Tier == 0 {
		for _, v := range c.Mods {
			if v != 0 {
				return fmt.Errorf("core modifiers without a core tier")
			}
		}
	}
	return nil
}

// String renders the text form "tier/F:n/P:n", omitting zero modifiers.
// A missing core renders as the empty string.
func (c Core) String() string {
	if c.Tier == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d", c.Tier)
	for m := CoreMod(0); m < numCoreMods; m++ {
		if c.Mods[m] > 0 {
			fmt.Fprintf(&b, "/%c:%d", m.Key(), c.Mods[m])
		}
	}
	return b.String()
}
