package spire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"spiretool/internal/num"
)

// CellInfo summarises what happened on one cell during a traversal.
type CellInfo struct {
	Trap byte `json:"trap"`
	// Steps counts activations on the cell; ShockedSteps those while shocked.
	Steps        int        `json:"steps"`
	ShockedSteps int        `json:"shocked_steps"`
	DamageTaken  num.Number `json:"damage_taken"`
	HPLeft       num.Number `json:"hp_left"`
}

// IsValid reports whether the placement is a whole number of floors of known
// traps with at most one strength tower per floor. An all-empty spire is valid.
func (l *Layout) IsValid() bool {
	n := len(l.data)
	if n == 0 || n%FloorWidth != 0 {
		return false
	}
	for floor := 0; floor < n/FloorWidth; floor++ {
		strength := 0
		for _, t := range l.data[floor*FloorWidth : (floor+1)*FloorWidth] {
			if !t.Valid() {
				return false
			}
			if t == Strength {
				strength++
			}
		}
		if strength > 1 {
			return false
		}
	}
	return l.upgrades.Valid()
}

// BuildCellInfo simulates an attacker with hp hit points and returns one
// CellInfo per cell. Cells past the kill repeat the final totals.
func (l *Layout) BuildCellInfo(hp num.Number) []CellInfo {
	steps := l.buildSteps()
	detail := make([]SimDetail, 0, len(steps))
	simulate(steps, hp, &detail)

	info := make([]CellInfo, len(l.data))
	dealt := num.Zero
	left := hp
	for i := range info {
		info[i].Trap = l.data[i].Char()
		if i < len(detail) {
			st := steps[i]
			a := int(st.activations())
			info[i].Steps = a
			if st.Shock {
				info[i].ShockedSteps = a
			}
			dealt = dealt.Add(detail[i].DamageTaken)
			left = detail[i].HPLeft
		}
		info[i].DamageTaken = dealt
		info[i].HPLeft = left
	}
	return info
}

func group(n num.Number) string {
	whole := n.Int()
	if whole > 1<<62 {
		return n.String()
	}
	return humanize.Comma(int64(whole))
}

// Debug writes a per-step trace of an attacker with hp hit points.
func (l *Layout) Debug(w io.Writer, hp num.Number) error {
	steps := l.buildSteps()
	detail := make([]SimDetail, 0, len(steps))
	res := simulate(steps, hp, &detail)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "layout %s upgrades %s core %q cycle %d\n", l.Traps(), l.upgrades, l.core.String(), l.cycle)
	for i, d := range detail {
		st := steps[i]
		shock := ""
		if st.Shock {
			shock = " shocked"
		}
		fmt.Fprintf(bw, "cell %3d %c slow=%d%s direct=%s tox=%s taken=%s hp=%s\n",
			st.Cell, st.Trap.Char(), st.Slow, shock,
			group(st.DirectDamage), group(d.Toxicity), group(d.DamageTaken), group(d.HPLeft))
	}
	if res.Killed() {
		fmt.Fprintf(bw, "killed at cell %d after %d steps (%d ticks), runestones +%d%%\n",
			res.KillCell, res.StepsTaken, res.Ticks, res.RunestonePct)
	} else {
		fmt.Fprintf(bw, "escaped with %s hp after %d steps (%d ticks)\n",
			group(res.SimHP), res.StepsTaken, res.Ticks)
	}
	return bw.Flush()
}
