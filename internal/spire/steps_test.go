package spire

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"spiretool/internal/num"
)

func runOnce(t *testing.T, upgrades, traps string, hp uint64) SimResult {
	t.Helper()
	l := mustLayout(t, upgrades, traps)
	return simulate(l.buildSteps(), num.FromInt(hp), nil)
}

func TestBuildStepsIsIdempotent(t *testing.T) {
	l := mustLayout(t, "3333", "FZPLK"+"SFCPF"+"LZFKP")
	a := l.buildSteps()
	b := l.buildSteps()
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two compilations of the same layout differ")
	}
	if len(a) != l.Len() {
		t.Fatalf("got %d steps for %d cells", len(a), l.Len())
	}
}

func TestSingleFireTrapKillsWeakAttacker(t *testing.T) {
	res := runOnce(t, "0000", "F____", 50)
	if !res.SimHP.IsZero() || res.KillCell != 0 || res.StepsTaken != 1 {
		t.Fatalf("got %+v", res)
	}
	if res.Dealt() != num.FromInt(50) {
		t.Fatalf("dealt %v", res.Dealt())
	}
}

func TestFrostBeforeFireDoublesFire(t *testing.T) {
	slowed := runOnce(t, "0000", "ZF___", 1_000_000)
	plain := runOnce(t, "0000", "FZ___", 1_000_000)
	if slowed.Dealt() != num.FromInt(110) {
		t.Fatalf("frost first: got %v, want 110", slowed.Dealt())
	}
	if plain.Dealt() != num.FromInt(60) {
		t.Fatalf("fire first: got %v, want 60", plain.Dealt())
	}
}

func TestShockAmplifiesNextFire(t *testing.T) {
	shocked := runOnce(t, "0000", "LF___", 1_000_000)
	plain := runOnce(t, "0000", "FL___", 1_000_000)
	if shocked.Dealt() != num.FromInt(150) {
		t.Fatalf("got %v, want 150", shocked.Dealt())
	}
	if plain.Dealt() != num.FromInt(100) {
		t.Fatalf("got %v, want 100", plain.Dealt())
	}
}

func TestPoisonTicksEveryCell(t *testing.T) {
	res := runOnce(t, "0000", "P____", 1_000_000)
	if res.Toxicity != num.FromInt(25) || !res.Damage.IsZero() {
		t.Fatalf("got toxicity %v damage %v", res.Toxicity, res.Damage)
	}
	res = runOnce(t, "0000", "PC___", 1_000_000)
	if res.Toxicity != num.FromInt(30) {
		t.Fatalf("condenser: got %v, want 30", res.Toxicity)
	}
}

func TestStrengthBoostsFireOnItsFloor(t *testing.T) {
	if got := runOnce(t, "0000", "SF___", 1_000_000).Dealt(); got != num.FromInt(100) {
		t.Fatalf("same floor: got %v, want 100", got)
	}
	if got := runOnce(t, "0000", "S____F____", 1_000_000).Dealt(); got != num.FromInt(50) {
		t.Fatalf("other floor: got %v, want 50", got)
	}
}

func TestLightningStrikesCellAbove(t *testing.T) {
	l := mustLayout(t, "0003", "L_________")
	steps := l.buildSteps()
	if got := steps[5].DirectDamage; got != num.FromInt(1325) {
		t.Fatalf("column strike: got %v, want 1325", got)
	}
	for _, i := range []int{1, 2, 3, 4, 6} {
		if !steps[i].DirectDamage.IsZero() {
			t.Fatalf("cell %d took %v", i, steps[i].DirectDamage)
		}
	}
}

func TestKnowledgeFreezesChilledAttacker(t *testing.T) {
	l := mustLayout(t, "0000", "ZK_F_")
	steps := l.buildSteps()
	if steps[1].Slow != 1 || steps[1].RSBonus != knowledgeRunestonePct {
		t.Fatalf("knowledge cell: %+v", steps[1])
	}
	if steps[3].Slow != 2 || steps[3].DirectDamage != num.FromInt(150) {
		t.Fatalf("frozen fire cell: %+v", steps[3])
	}
	if steps[4].Slow != 0 {
		t.Fatalf("freeze should have worn off: %+v", steps[4])
	}
}

func TestFireExecutesBelowThreshold(t *testing.T) {
	res := runOnce(t, "4000", "F____", 13000)
	if !res.Killed() || res.KillCell != 0 || !res.SimHP.IsZero() {
		t.Fatalf("expected execution, got %+v", res)
	}
	res = runOnce(t, "4000", "F____", 20000)
	if res.Killed() {
		t.Fatalf("expected escape, got %+v", res)
	}
	if res.SimHP != num.FromInt(20000-10800) {
		t.Fatalf("hp left %v", res.SimHP)
	}
}

func TestExecutionHoldsAtHighTiers(t *testing.T) {
	l := mustLayout(t, "4000", "F____")
	steps := l.buildSteps()
	for _, tier := range []int{250, 290, 300, 340, MaxTier} {
		res := simulate(steps, EnemyHP(tier), nil)
		if res.Killed() {
			t.Fatalf("tier %d: a single fire trap killed %v hp", tier, res.MaxHP)
		}
		if got := res.Dealt(); got != num.FromInt(10800) {
			t.Fatalf("tier %d: dealt %v, want 10800", tier, got)
		}
	}

	l.SetCycle(37)
	l.Update(Full)
	if got, want := l.Threat(), uint64(FirstTier(37)); got != want {
		t.Fatalf("threat %d, want %d", got, want)
	}
}

func TestSimulateEdgeCases(t *testing.T) {
	res := simulate(nil, num.FromInt(100), nil)
	if res.Killed() || res.StepsTaken != 0 || res.SimHP != num.FromInt(100) {
		t.Fatalf("no steps: %+v", res)
	}
	res = runOnce(t, "0000", "_____", 0)
	if !res.Killed() || res.KillCell != 0 {
		t.Fatalf("zero hp: %+v", res)
	}
}

func TestIntegrateResults(t *testing.T) {
	results := []SimResult{{MaxHP: num.FromInt(10)}, {MaxHP: num.FromInt(20)}, {MaxHP: num.FromInt(30)}}
	hp := func(_ int, r SimResult) num.Number { return r.MaxHP }
	cases := []struct {
		name string
		red  Reduction
		want num.Number
	}{
		{"mean", Reduction{Extract: hp, Combine: CombineMean}, num.FromInt(20)},
		{"weighted", Reduction{Extract: hp, Combine: CombineMean, Weights: []uint64{1, 1, 2}}, num.MustParse("22.5")},
		{"sum", Reduction{Extract: hp, Combine: CombineSum}, num.FromInt(60)},
		{"min", Reduction{Extract: hp, Combine: CombineMin}, num.FromInt(10)},
		{"max", Reduction{Extract: hp, Combine: CombineMax}, num.FromInt(30)},
	}
	for _, tc := range cases {
		if got := integrateResults(results, tc.red); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
	if got := integrateResults(nil, cases[0].red); !got.IsZero() {
		t.Fatalf("empty: got %v", got)
	}
}

func TestBuildCellInfoCarriesTotalsPastKill(t *testing.T) {
	l := mustLayout(t, "0000", "F____")
	info := l.BuildCellInfo(num.FromInt(50))
	if len(info) != 5 {
		t.Fatalf("got %d cells", len(info))
	}
	if info[0].Trap != 'F' || info[0].Steps != 1 || info[0].DamageTaken != num.FromInt(50) || !info[0].HPLeft.IsZero() {
		t.Fatalf("cell 0: %+v", info[0])
	}
	if info[4].Steps != 0 || info[4].DamageTaken != num.FromInt(50) {
		t.Fatalf("cell 4: %+v", info[4])
	}
}

func TestBuildCellInfoCountsShockedSteps(t *testing.T) {
	l := mustLayout(t, "0000", "LF___")
	info := l.BuildCellInfo(num.FromInt(1_000_000))
	want := []struct{ steps, shocked int }{{1, 0}, {1, 1}, {1, 0}, {1, 0}, {1, 0}}
	for i, w := range want {
		if info[i].Steps != w.steps || info[i].ShockedSteps != w.shocked {
			t.Fatalf("cell %d: got %d/%d steps, want %d/%d", i, info[i].Steps, info[i].ShockedSteps, w.steps, w.shocked)
		}
	}
	if info[4].DamageTaken != num.FromInt(150) {
		t.Fatalf("total damage %v", info[4].DamageTaken)
	}
}

func TestDebugTrace(t *testing.T) {
	l := mustLayout(t, "0000", "F____")
	var buf bytes.Buffer
	if err := l.Debug(&buf, num.FromInt(50)); err != nil {
		t.Fatalf("debug: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "killed at cell 0") {
		t.Fatalf("missing kill line:\n%s", out)
	}
	buf.Reset()
	if err := l.Debug(&buf, num.FromInt(5000)); err != nil {
		t.Fatalf("debug: %v", err)
	}
	if !strings.Contains(buf.String(), "escaped with 4,950 hp") {
		t.Fatalf("missing escape line:\n%s", buf.String())
	}
}

func TestCoreBoostsEffects(t *testing.T) {
	c := Core{Tier: 3}.WithMod(ModFire, 50).WithMod(ModRunestones, 10)
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.String() != "3/F:50/R:10" {
		t.Fatalf("got %q", c.String())
	}
	fx := NewTrapEffects(TrapUpgrades{}, c)
	if fx.FireDamage != num.FromInt(75) || fx.RunestonePct != 10 {
		t.Fatalf("got fire %v rs %d", fx.FireDamage, fx.RunestonePct)
	}
	if err := (Core{}).WithMod(ModPoison, 5).Validate(); err == nil {
		t.Fatal("expected error for modifiers without tier")
	}
}
