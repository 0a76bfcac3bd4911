// Package query implements the line protocol spoken by the layout database
// client: "upg=5444 f=20 rs=1000000 core=3/F:10/P:5".
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"spiretool/internal/num"
	"spiretool/internal/spire"
)

// MaxFloors bounds the spire height a query may ask for.
const MaxFloors = 100

type request struct {
	Fields []*field `parser:"@@*"`
}

type field struct {
	Pos   lexer.Position
	Key   string `parser:"@Ident \"=\""`
	Value *value `parser:"@@"`
}

// value is a number optionally followed by core modifiers; only core
// accepts the modifiers.
type value struct {
	Number string `parser:"@Number"`
	Mods   []*mod `parser:"( \"/\" @@ )*"`
}

type mod struct {
	Key string `parser:"@Ident \":\""`
	Pct string `parser:"@Number"`
}

var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]+)?([eE][0-9]+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_]+`},
	{Name: "Punct", Pattern: `[=/:]`},
})

var (
	requestParser = participle.MustBuild[request](
		participle.Lexer(queryLexer),
		participle.Elide("Whitespace"),
	)
	coreParser = participle.MustBuild[value](
		participle.Lexer(queryLexer),
		participle.Elide("Whitespace"),
	)
)

// Query is a parsed database request.
type Query struct {
	Upgrades spire.TrapUpgrades
	Floors   int
	// Budget caps layout cost; zero means unlimited.
	Budget num.Number
	Core   spire.Core
}

// Key identifies the layout family a query selects: everything but the budget.
func (q Query) Key() string {
	return fmt.Sprintf("%s/%d/%s", q.Upgrades, q.Floors, q.Core)
}

func (q Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "upg=%s f=%d", q.Upgrades, q.Floors)
	if !q.Budget.IsZero() {
		fmt.Fprintf(&b, " rs=%s", q.Budget)
	}
	if q.Core.Tier > 0 {
		fmt.Fprintf(&b, " core=%s", q.Core)
	}
	return b.String()
}

// Parse reads a request line. upg and f are required.
func Parse(s string) (Query, error) {
	req, err := requestParser.ParseString("", s)
	if err != nil {
		return Query{}, err
	}
	var q Query
	seen := map[string]bool{}
	for _, f := range req.Fields {
		if seen[f.Key] {
			return Query{}, fmt.Errorf("%s: duplicate field %q", f.Pos, f.Key)
		}
		seen[f.Key] = true
		if f.Key != "core" && len(f.Value.Mods) > 0 {
			return Query{}, fmt.Errorf("%s: field %q takes a plain number", f.Pos, f.Key)
		}
		switch f.Key {
		case "upg":
			q.Upgrades, err = spire.ParseUpgrades(f.Value.Number)
		case "f":
			q.Floors, err = parseFloors(f.Value.Number)
		case "rs":
			q.Budget, err = num.Parse(f.Value.Number)
		case "core":
			q.Core, err = f.Value.core()
		default:
			err = fmt.Errorf("unknown field %q", f.Key)
		}
		if err != nil {
			return Query{}, fmt.Errorf("%s: %w", f.Pos, err)
		}
	}
	if !seen["upg"] || !seen["f"] {
		return Query{}, fmt.Errorf("upg and f are required")
	}
	return q, nil
}

func parseFloors(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("floors %q: %w", s, err)
	}
	if n < 1 || n > MaxFloors {
		return 0, fmt.Errorf("floors %d outside 1..%d", n, MaxFloors)
	}
	return n, nil
}

// ParseCore reads the core text form "tier/K:pct/...". "0" and "" mean no core.
func ParseCore(s string) (spire.Core, error) {
	if strings.TrimSpace(s) == "" {
		return spire.Core{}, nil
	}
	v, err := coreParser.ParseString("", s)
	if err != nil {
		return spire.Core{}, err
	}
	return v.core()
}

func (v *value) core() (spire.Core, error) {
	tier, err := strconv.Atoi(v.Number)
	if err != nil {
		return spire.Core{}, fmt.Errorf("core tier %q: %w", v.Number, err)
	}
	c := spire.Core{Tier: tier}
	set := map[spire.CoreMod]bool{}
	for _, m := range v.Mods {
		if len(m.Key) != 1 {
			return spire.Core{}, fmt.Errorf("core modifier %q", m.Key)
		}
		cm, ok := spire.CoreModFromKey(m.Key[0])
		if !ok {
			return spire.Core{}, fmt.Errorf("core modifier %q", m.Key)
		}
		if set[cm] {
			return spire.Core{}, fmt.Errorf("core modifier %q repeated", m.Key)
		}
		set[cm] = true
		pct, err := strconv.ParseUint(m.Pct, 10, 16)
		if err != nil {
			return spire.Core{}, fmt.Errorf("core modifier %s: %w", m.Key, err)
		}
		c = c.WithMod(cm, uint16(pct))
	}
	if err := c.Validate(); err != nil {
		return spire.Core{}, err
	}
	return c, nil
}

// Response is the decoded form of an "ok" line.
type Response struct {
	Traps  string
	Core   spire.Core
	Damage num.Number
	Cost   num.Number
	Threat uint64
	RS     num.Number
}

// ResponseFor captures the current metrics of a layout.
func ResponseFor(l *spire.Layout) Response {
	return Response{
		Traps:  l.Traps(),
		Core:   l.Core(),
		Damage: l.Damage(),
		Cost:   l.Cost(),
		Threat: l.Threat(),
		RS:     l.RunestonesPerSecond(),
	}
}

func (r Response) String() string {
	return fmt.Sprintf("ok t=%s core=%s damage=%s cost=%s threat=%d rs=%s",
		r.Traps, r.Core, r.Damage, r.Cost, r.Threat, r.RS)
}

// FormatResponse renders the answer line for a layout with current metrics.
func FormatResponse(l *spire.Layout) string {
	return ResponseFor(l).String()
}

func FormatError(err error) string {
	return "error " + err.Error()
}

// ParseResponse decodes a line produced by FormatResponse or FormatError.
func ParseResponse(line string) (Response, error) {
	status, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	if status == "error" {
		return Response{}, errors.New(rest)
	}
	if status != "ok" {
		return Response{}, fmt.Errorf("bad response status %q", status)
	}
	var r Response
	for _, kv := range strings.Fields(rest) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		var err error
		switch k {
		case "t":
			r.Traps = v
		case "core":
			r.Core, err = ParseCore(v)
		case "damage":
			r.Damage, err = num.Parse(v)
		case "cost":
			r.Cost, err = num.Parse(v)
		case "threat":
			r.Threat, err = strconv.ParseUint(v, 10, 64)
		case "rs":
			r.RS, err = num.Parse(v)
		}
		if err != nil {
			return Response{}, fmt.Errorf("field %s: %w", k, err)
		}
	}
	return r, nil
}
