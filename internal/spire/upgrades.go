package spire

import (
	"fmt"
	"strconv"
	"strings"
)

// Element selects one of the four upgradable trap families.
type Element int

const (
	ElemFire Element = iota
	ElemFrost
	ElemPoison
	ElemLightning
)

var maxLevel = [4]uint16{
	ElemFire:      7,
	ElemFrost:     5,
	ElemPoison:    7,
	ElemLightning: 5,
}

// MaxLevel returns the highest upgrade level of an element.
func MaxLevel(e Element) uint16 { return maxLevel[e] }

// TrapUpgrades holds the upgrade level of every elemental trap family.
// It marshals to the four digit text form.
type TrapUpgrades struct {
	Fire      uint16
	Frost     uint16
	Poison    uint16
	Lightning uint16
}

// ParseUpgrades reads the four digit form "FZPL", e.g. "5444".
func ParseUpgrades(s string) (TrapUpgrades, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return TrapUpgrades{}, fmt.Errorf("upgrades %q: want 4 digits", s)
	}
	var levels [4]uint16
	for i := 0; i < 4; i++ {
		d, err := strconv.Atoi(s[i : i+1])
		if err != nil {
			return TrapUpgrades{}, fmt.Errorf("upgrades %q: %w", s, err)
		}
		if uint16(d) > maxLevel[i] {
			return TrapUpgrades{}, fmt.Errorf("upgrades %q: level %d above max %d", s, d, maxLevel[i])
		}
		levels[i] = uint16(d)
	}
	return TrapUpgrades{Fire: levels[0], Frost: levels[1], Poison: levels[2], Lightning: levels[3]}, nil
}

func (u TrapUpgrades) String() string {
	return fmt.Sprintf("%d%d%d%d", u.Fire, u.Frost, u.Poison, u.Lightning)
}

func (u TrapUpgrades) Level(e Element) uint16 {
	switch e {
	case ElemFire:
		return u.Fire
	case ElemFrost:
		return u.Frost
	case ElemPoison:
		return u.Poison
	case ElemLightning:
		return u.Lightning
	}
	return 0
}

// Set returns a copy with one level replaced, clamped to the element's max.
func (u TrapUpgrades) Set(e Element, level uint16) TrapUpgrades {
	if level > maxLevel[e] {
		level = maxLevel[e]
	}
	switch e {
	case ElemFire:
		u.Fire = level
	case ElemFrost:
		u.Frost = level
	case ElemPoison:
		u.Poison = level
	case ElemLightning:
		u.Lightning = level
	}
	return u
}

func (u TrapUpgrades) Valid() bool {
	for e := ElemFire; e <= ElemLightning; e++ {
		if u.Level(e) > maxLevel[e] {
			return false
		}
	}
	return true
}

func (u TrapUpgrades) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *TrapUpgrades) UnmarshalText(b []byte) error {
	v, err := ParseUpgrades(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
