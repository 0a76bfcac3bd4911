package config

import (
	"fmt"
	"strings"

	"spiretool/internal/num"
	"spiretool/internal/query"
	"spiretool/internal/search"
	"spiretool/internal/spire"
)

type Config struct {
	Spire  SpireConfig  `yaml:"spire"`
	Search SearchConfig `yaml:"search"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
}

type SpireConfig struct {
	Upgrades string `yaml:"upgrades"`
	Floors   int    `yaml:"floors"`
	Core     string `yaml:"core"`
	Budget   string `yaml:"budget"`
	// Traps optionally seeds the search; empty means an all-empty spire.
	Traps string `yaml:"traps"`
	Cycle int    `yaml:"cycle"`
}

type SearchConfig struct {
	Population      int     `yaml:"population"`
	Generations     int     `yaml:"generations"`
	Elites          int     `yaml:"elites"`
	Tournament      int     `yaml:"tournament"`
	Crossover       float64 `yaml:"crossover"`
	Mutations       int     `yaml:"mutations"`
	MutateMode      string  `yaml:"mutate_mode"`
	MaxVariant      int     `yaml:"max_variant"`
	FastGenerations int     `yaml:"fast_generations"`
	Objective       string  `yaml:"objective"`
	Workers         int     `yaml:"workers"`
	Seed            int64   `yaml:"seed"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	SearchOnMiss    bool   `yaml:"search_on_miss"`
	MissGenerations int    `yaml:"miss_generations"`
}

func Default() Config {
	opts := search.DefaultOptions()
	return Config{
		Spire: SpireConfig{
			Upgrades: "0000",
			Floors:   5,
			Budget:   "0",
		},
		Search: SearchConfig{
			Population:      opts.Population,
			Generations:     opts.Generations,
			Elites:          opts.Elites,
			Tournament:      opts.TournamentSize,
			Crossover:       opts.CrossoverRate,
			Mutations:       opts.MutationCount,
			MutateMode:      opts.MutateMode.String(),
			MaxVariant:      opts.MaxVariant,
			FastGenerations: opts.FastGenerations,
			Objective:       opts.Objective.String(),
			Workers:         opts.Workers,
			Seed:            opts.Seed,
		},
		Store: StoreConfig{Kind: "memory", Path: "spire.db"},
		Server: ServerConfig{
			Addr:            ":8080",
			SearchOnMiss:    true,
			MissGenerations: 50,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if _, err := cfg.Query(); err != nil {
		return cfg, fmt.Errorf("spire: %w", err)
	}
	if _, err := cfg.SearchOptions(); err != nil {
		return cfg, fmt.Errorf("search: %w", err)
	}
	return cfg, nil
}

// Query is the database request matching the spire section.
func (c Config) Query() (query.Query, error) {
	u, err := spire.ParseUpgrades(c.Spire.Upgrades)
	if err != nil {
		return query.Query{}, err
	}
	core, err := query.ParseCore(c.Spire.Core)
	if err != nil {
		return query.Query{}, err
	}
	budget, err := num.Parse(c.Spire.Budget)
	if err != nil {
		return query.Query{}, fmt.Errorf("budget: %w", err)
	}
	if c.Spire.Floors < 1 || c.Spire.Floors > query.MaxFloors {
		return query.Query{}, fmt.Errorf("floors %d outside 1..%d", c.Spire.Floors, query.MaxFloors)
	}
	return query.Query{Upgrades: u, Floors: c.Spire.Floors, Budget: budget, Core: core}, nil
}

// SeedLayout builds the layout a search starts from.
func (c Config) SeedLayout() (*spire.Layout, error) {
	q, err := c.Query()
	if err != nil {
		return nil, err
	}
	traps := c.Spire.Traps
	if traps == "" {
		traps = spire.EmptyTraps(q.Floors)
	}
	l, err := spire.New(q.Upgrades, traps, c.Spire.Cycle)
	if err != nil {
		return nil, err
	}
	l.SetCore(q.Core)
	if !l.IsValid() {
		return nil, fmt.Errorf("seed traps %q are not a valid layout", traps)
	}
	return l, nil
}

func (c Config) SearchOptions() (search.Options, error) {
	mode, err := spire.ParseMutateMode(c.Search.MutateMode)
	if err != nil {
		return search.Options{}, err
	}
	obj, err := search.ParseObjective(c.Search.Objective)
	if err != nil {
		return search.Options{}, err
	}
	budget, err := num.Parse(c.Spire.Budget)
	if err != nil {
		return search.Options{}, fmt.Errorf("budget: %w", err)
	}
	return search.Options{
		Population:      c.Search.Population,
		Generations:     c.Search.Generations,
		Elites:          c.Search.Elites,
		TournamentSize:  c.Search.Tournament,
		CrossoverRate:   c.Search.Crossover,
		MutationCount:   c.Search.Mutations,
		MutateMode:      mode,
		MaxVariant:      c.Search.MaxVariant,
		FastGenerations: c.Search.FastGenerations,
		Budget:          budget,
		Objective:       obj,
		Workers:         c.Search.Workers,
		Seed:            c.Search.Seed,
	}, nil
}
