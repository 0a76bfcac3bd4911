// Package store keeps the best known layout per query key.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spiretool/internal/num"
	"spiretool/internal/query"
	"spiretool/internal/spire"
)

// Record is one stored layout with the metrics it was saved with.
type Record struct {
	ID       string     `json:"id"`
	Key      string     `json:"key"`
	Upgrades string     `json:"upgrades"`
	Floors   int        `json:"floors"`
	Core     string     `json:"core"`
	Budget   num.Number `json:"budget"`
	Traps    string     `json:"traps"`
	Damage   num.Number `json:"damage"`
	Cost     num.Number `json:"cost"`
	RS       num.Number `json:"rs_per_sec"`
	Threat   uint64     `json:"threat"`
	Created  time.Time  `json:"created"`
}

// NewRecord snapshots a fully updated layout found for q.
func NewRecord(q query.Query, l *spire.Layout) Record {
	return Record{
		ID:       uuid.NewString(),
		Key:      q.Key(),
		Upgrades: l.Upgrades().String(),
		Floors:   l.Floors(),
		Core:     l.Core().String(),
		Budget:   q.Budget,
		Traps:    l.Traps(),
		Damage:   l.Damage(),
		Cost:     l.Cost(),
		RS:       l.RunestonesPerSecond(),
		Threat:   l.Threat(),
		Created:  time.Now().UTC(),
	}
}

// Layout rebuilds the stored layout. Metrics are restored from the record,
// not recomputed.
func (r Record) Layout() (*spire.Layout, error) {
	u, err := spire.ParseUpgrades(r.Upgrades)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	c, err := query.ParseCore(r.Core)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	l, err := spire.New(u, r.Traps, 0)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	l.SetCore(c)
	l.SetCycle(spire.CycleForThreat(r.Threat))
	return l, nil
}

// Response renders the record as a query answer with its stored metrics.
func (r Record) Response() (query.Response, error) {
	c, err := query.ParseCore(r.Core)
	if err != nil {
		return query.Response{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return query.Response{
		Traps:  r.Traps,
		Core:   c,
		Damage: r.Damage,
		Cost:   r.Cost,
		Threat: r.Threat,
		RS:     r.RS,
	}, nil
}

// Fits reports whether the record's cost is within budget; a zero budget is unlimited.
func (r Record) Fits(budget num.Number) bool {
	return budget.IsZero() || r.Cost.Cmp(budget) <= 0
}

// better orders records by threat, then damage, then lower cost.
func better(a, b Record) bool {
	if a.Threat != b.Threat {
		return a.Threat > b.Threat
	}
	if c := a.Damage.Cmp(b.Damage); c != 0 {
		return c > 0
	}
	return a.Cost.Less(b.Cost)
}

type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, r Record) error
	// Best returns the best record for key whose cost fits budget.
	Best(ctx context.Context, key string, budget num.Number) (Record, bool, error)
	All(ctx context.Context) ([]Record, error)
}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(s Store) error {
	closer, ok := s.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
