package spire

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"spiretool/internal/num"
)

func mustLayout(t *testing.T, upgrades, traps string) *Layout {
	t.Helper()
	u, err := ParseUpgrades(upgrades)
	if err != nil {
		t.Fatalf("parse upgrades: %v", err)
	}
	l, err := New(u, traps, 0)
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	return l
}

func TestParseUpgrades(t *testing.T) {
	u, err := ParseUpgrades("5444")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Fire != 5 || u.Frost != 4 || u.Poison != 4 || u.Lightning != 4 {
		t.Fatalf("unexpected levels: %+v", u)
	}
	if u.String() != "5444" {
		t.Fatalf("round trip got %q", u.String())
	}
	for _, bad := range []string{"", "544", "54444", "x444", "0600", "0008"} {
		if _, err := ParseUpgrades(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if got := u.Set(ElemFrost, 99).Frost; got != MaxLevel(ElemFrost) {
		t.Fatalf("set should clamp, got %d", got)
	}
}

func TestSetTrapsRejectsUnknownCharacters(t *testing.T) {
	l := NewLayout()
	if err := l.SetTraps("F_X__", 0); err == nil {
		t.Fatal("expected error for unknown trap")
	}
	if err := l.SetTraps("FZPLS", 3); err != nil {
		t.Fatalf("set traps: %v", err)
	}
	if l.Traps() != "FZPLS" || l.Cycle() != 3 {
		t.Fatalf("got %q cycle %d", l.Traps(), l.Cycle())
	}
}

func TestThreatRounding(t *testing.T) {
	cases := []struct {
		x16  uint64
		want uint64
	}{
		{0, 0},
		{7, 0},
		{8, 1},
		{15, 1},
		{16, 1},
		{23, 1},
		{24, 2},
		{math.MaxUint64, math.MaxUint64/16 + 1},
		{math.MaxUint64 - 8, (math.MaxUint64-8)/16 + 1},
	}
	for _, tc := range cases {
		l := NewLayout()
		l.threat = tc.x16
		if got := l.Threat(); got != tc.want {
			t.Fatalf("threat x16=%d: got %d, want %d", tc.x16, got, tc.want)
		}
	}
}

func TestEmptyLayoutFullUpdate(t *testing.T) {
	l := mustLayout(t, "5555", EmptyTraps(4))
	l.Update(Full)
	if !l.Damage().IsZero() {
		t.Fatalf("expected zero damage, got %v", l.Damage())
	}
	if !l.Cost().IsZero() {
		t.Fatalf("expected zero cost, got %v", l.Cost())
	}
	if !l.IsValid() {
		t.Fatal("empty layout should be valid")
	}
	if l.Threat() != 0 || !l.RunestonesPerSecond().IsZero() {
		t.Fatalf("got threat %d rs %v", l.Threat(), l.RunestonesPerSecond())
	}
}

func TestUpdateModesOnlyTouchTheirMetrics(t *testing.T) {
	l := mustLayout(t, "2222", "FZPLK"+"SFCPF")
	l.Update(CostOnly)
	if l.Cost().IsZero() {
		t.Fatal("expected cost")
	}
	if !l.Damage().IsZero() {
		t.Fatal("cost only must not compute damage")
	}
	l.Update(ExactDamage)
	if l.Damage().IsZero() {
		t.Fatal("expected damage")
	}
	if l.Threat() != 0 {
		t.Fatal("exact damage must not compute threat")
	}
	l.Update(Full)
	if l.Threat() == 0 {
		t.Fatal("full must compute threat")
	}
}

func TestCheapModesEstimateDamage(t *testing.T) {
	l := mustLayout(t, "0000", "F____")
	for _, mode := range []UpdateMode{Fast, Compatible, ExactDamage, Full} {
		l.Update(mode)
		if l.Damage() != num.FromInt(50) {
			t.Fatalf("%s: got %v, want 50", mode, l.Damage())
		}
	}
}

func TestUpdateCostGrowsPerCopy(t *testing.T) {
	l := mustLayout(t, "0000", "FF_S_")
	l.Update(CostOnly)
	want := num.FromInt(100 + 115 + 3000)
	if l.Cost() != want {
		t.Fatalf("got %v, want %v", l.Cost(), want)
	}
}

func TestFullDamageMonotoneInUpgrades(t *testing.T) {
	traps := "FZPLK" + "SFCPF" + "LZFKP" + "FFLZP"
	for e := ElemFire; e <= ElemLightning; e++ {
		prev := num.Zero
		for level := uint16(0); level <= MaxLevel(e); level++ {
			l := mustLayout(t, "0000", traps)
			l.SetUpgrades(TrapUpgrades{}.Set(e, level))
			l.SetCycle(2)
			l.Update(Full)
			if l.Damage().Less(prev) {
				t.Fatalf("element %d level %d: damage %v below %v", e, level, l.Damage(), prev)
			}
			prev = l.Damage()
		}
	}
}

func TestFullUpdateIsDeterministic(t *testing.T) {
	a := mustLayout(t, "4343", "FZPLK"+"SFCPF"+"LZFKP")
	b := mustLayout(t, "4343", "FZPLK"+"SFCPF"+"LZFKP")
	a.Update(Full)
	b.Update(Full)
	if a.Damage() != b.Damage() || a.Threat() != b.Threat() || a.RunestonesPerSecond() != b.RunestonesPerSecond() {
		t.Fatalf("metrics differ: %v/%d/%v vs %v/%d/%v",
			a.Damage(), a.Threat(), a.RunestonesPerSecond(), b.Damage(), b.Threat(), b.RunestonesPerSecond())
	}
}

func TestStrongLayoutFillsThreatWindow(t *testing.T) {
	l := mustLayout(t, "7575", strings.Repeat("ZFFLF", 4))
	l.Update(Full)
	if l.Threat() != ScenarioCount {
		t.Fatalf("got threat %d, want %d", l.Threat(), ScenarioCount)
	}
	if l.RunestonesPerSecond().IsZero() {
		t.Fatal("expected runestone income")
	}
	l.SetCycle(CycleForThreat(l.Threat()))
	if l.Cycle() != 1 {
		t.Fatalf("got cycle %d", l.Cycle())
	}
}

func TestEnemyHPGrowsUpToMaxTier(t *testing.T) {
	for tier := 1; tier <= MaxTier; tier++ {
		if !EnemyHP(tier - 1).Less(EnemyHP(tier)) {
			t.Fatalf("tier %d: %v does not exceed %v", tier, EnemyHP(tier), EnemyHP(tier-1))
		}
	}
	if EnemyHP(MaxTier) == num.Max {
		t.Fatal("top tier saturated")
	}
	if FirstTier(MaxCycle)+ScenarioCount-1 > MaxTier {
		t.Fatalf("cycle %d window runs past tier %d", MaxCycle, MaxTier)
	}
}

func TestCyclesStayOnTheLadder(t *testing.T) {
	if got := CycleForThreat(1 << 40); got != MaxCycle {
		t.Fatalf("got cycle %d, want %d", got, MaxCycle)
	}
	l := mustLayout(t, "0000", "F____")
	l.SetCycle(MaxCycle + 10)
	if l.Cycle() != MaxCycle {
		t.Fatalf("got cycle %d", l.Cycle())
	}
	l.SetCycle(-3)
	if l.Cycle() != 0 {
		t.Fatalf("got cycle %d", l.Cycle())
	}
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		traps string
		want  bool
	}{
		{"", false},
		{"FZP", false},
		{"FZPLK", true},
		{"S_S__", false},
		{"S____S____", true},
	}
	for _, tc := range cases {
		l := mustLayout(t, "0000", tc.traps)
		if got := l.IsValid(); got != tc.want {
			t.Fatalf("%q: got %v, want %v", tc.traps, got, tc.want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l := mustLayout(t, "1111", "FZPLK")
	c := l.Clone()
	c.data[0] = Empty
	if l.Traps() != "FZPLK" {
		t.Fatalf("clone shares data: %q", l.Traps())
	}
	if !reflect.DeepEqual(l.Upgrades(), c.Upgrades()) {
		t.Fatal("clone lost upgrades")
	}
}
