package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"spiretool/internal/num"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sqlx.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// row mirrors the layouts table. Numbers are kept exactly as text; the
// *_milli columns are saturated copies used for filtering and ordering.
type row struct {
	ID          string `db:"id"`
	Key         string `db:"key"`
	Upgrades    string `db:"upgrades"`
	Floors      int    `db:"floors"`
	Core        string `db:"core"`
	Budget      string `db:"budget"`
	Traps       string `db:"traps"`
	Damage      string `db:"damage"`
	DamageMilli int64  `db:"damage_milli"`
	Cost        string `db:"cost"`
	CostMilli   int64  `db:"cost_milli"`
	RS          string `db:"rs"`
	Threat      int64  `db:"threat"`
	Created     int64  `db:"created"`
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func toRow(r Record) row {
	return row{
		ID:          r.ID,
		Key:         r.Key,
		Upgrades:    r.Upgrades,
		Floors:      r.Floors,
		Core:        r.Core,
		Budget:      r.Budget.String(),
		Traps:       r.Traps,
		Damage:      r.Damage.String(),
		DamageMilli: clampInt64(r.Damage.Milli()),
		Cost:        r.Cost.String(),
		CostMilli:   clampInt64(r.Cost.Milli()),
		RS:          r.RS.String(),
		Threat:      clampInt64(r.Threat),
		Created:     r.Created.UnixNano(),
	}
}

func (w row) record() (Record, error) {
	r := Record{
		ID:       w.ID,
		Key:      w.Key,
		Upgrades: w.Upgrades,
		Floors:   w.Floors,
		Core:     w.Core,
		Traps:    w.Traps,
		Threat:   uint64(w.Threat),
		Created:  time.Unix(0, w.Created).UTC(),
	}
	var err error
	for _, f := range []struct {
		name string
		text string
		dst  *num.Number
	}{
		{"budget", w.Budget, &r.Budget},
		{"damage", w.Damage, &r.Damage},
		{"cost", w.Cost, &r.Cost},
		{"rs", w.RS, &r.RS},
	} {
		if *f.dst, err = num.Parse(f.text); err != nil {
			return Record{}, fmt.Errorf("record %s %s: %w", w.ID, f.name, err)
		}
	}
	return r, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sqlx.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	s.db = db
	return nil
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS layouts (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL,
		upgrades TEXT NOT NULL,
		floors INTEGER NOT NULL,
		core TEXT NOT NULL,
		budget TEXT NOT NULL,
		traps TEXT NOT NULL,
		damage TEXT NOT NULL,
		damage_milli INTEGER NOT NULL,
		cost TEXT NOT NULL,
		cost_milli INTEGER NOT NULL,
		rs TEXT NOT NULL,
		threat INTEGER NOT NULL,
		created INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_layouts_key ON layouts(key, threat);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) getDB() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

func (s *SQLiteStore) Save(ctx context.Context, r Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, `
		INSERT INTO layouts
			(id, key, upgrades, floors, core, budget, traps, damage, damage_milli,
			 cost, cost_milli, rs, threat, created)
		VALUES
			(:id, :key, :upgrades, :floors, :core, :budget, :traps, :damage, :damage_milli,
			 :cost, :cost_milli, :rs, :threat, :created)
		ON CONFLICT(id) DO UPDATE SET
			traps = excluded.traps,
			damage = excluded.damage,
			damage_milli = excluded.damage_milli,
			cost = excluded.cost,
			cost_milli = excluded.cost_milli,
			rs = excluded.rs,
			threat = excluded.threat
	`, toRow(r))
	return err
}

func (s *SQLiteStore) Best(ctx context.Context, key string, budget num.Number) (Record, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Record{}, false, err
	}

	limit := int64(math.MaxInt64)
	if !budget.IsZero() {
		limit = clampInt64(budget.Milli())
	}
	var w row
	err = db.GetContext(ctx, &w, `
		SELECT * FROM layouts
		WHERE key = ? AND cost_milli <= ?
		ORDER BY threat DESC, damage_milli DESC, cost_milli ASC
		LIMIT 1
	`, key, limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	r, err := w.record()
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := db.SelectContext(ctx, &rows, `SELECT * FROM layouts ORDER BY created, id`); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, w := range rows {
		r, err := w.record()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
