package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"spiretool/internal/config"
	"spiretool/internal/num"
	"spiretool/internal/query"
	"spiretool/internal/search"
	"spiretool/internal/server"
	"spiretool/internal/spire"
	"spiretool/internal/store"
	"spiretool/internal/util"
)

func main() {
	var cfgPath, mode, traps, hp, out, in string
	var seed int64
	var runs int
	var verbose bool
	flag.StringVar(&cfgPath, "config", "", "yaml config file (defaults when empty)")
	flag.StringVar(&mode, "mode", "search", "search | eval | debug | serve | export | import")
	flag.StringVar(&traps, "traps", "", "layout to evaluate; overrides spire.traps")
	flag.StringVar(&hp, "hp", "", "attacker hp for eval/debug (default: first tier of the cycle)")
	flag.Int64Var(&seed, "seed", 0, "search seed; overrides search.seed when non-zero")
	flag.IntVar(&runs, "runs", 1, "independent search runs")
	flag.StringVar(&out, "out", "", "output file (json for search/eval, archive for export)")
	flag.StringVar(&in, "in", "", "archive to import")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	if traps != "" {
		cfg.Spire.Traps = traps
	}
	if seed != 0 {
		cfg.Search.Seed = seed
	}

	app := &app{cfg: cfg, log: logger, hp: hp, out: out, in: in, runs: runs}
	if err := app.run(ctx, mode); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("spiresim failed", "mode", mode, "error", err)
		os.Exit(1)
	}
}

type app struct {
	cfg  config.Config
	log  *slog.Logger
	hp   string
	out  string
	in   string
	runs int
}

func (a *app) run(ctx context.Context, mode string) error {
	switch mode {
	case "eval", "debug":
		l, err := a.cfg.SeedLayout()
		if err != nil {
			return err
		}
		l.Update(spire.Full)
		hp, err := a.attackerHP(l)
		if err != nil {
			return err
		}
		if mode == "debug" {
			return l.Debug(os.Stdout, hp)
		}
		return a.eval(l, hp)
	case "search":
		return a.withStore(ctx, a.search)
	case "serve":
		return a.withStore(ctx, a.serve)
	case "export":
		if a.out == "" {
			return errors.New("export needs -out")
		}
		return a.withStore(ctx, func(ctx context.Context, st store.Store) error {
			n, err := store.ExportFile(ctx, st, a.out)
			if err != nil {
				return err
			}
			a.log.Info("exported", "records", n, "path", a.out)
			return nil
		})
	case "import":
		if a.in == "" {
			return errors.New("import needs -in")
		}
		return a.withStore(ctx, func(ctx context.Context, st store.Store) error {
			n, err := store.ImportFile(ctx, st, a.in)
			if err != nil {
				return err
			}
			a.log.Info("imported", "records", n, "path", a.in)
			return nil
		})
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func (a *app) attackerHP(l *spire.Layout) (num.Number, error) {
	if a.hp == "" {
		return spire.EnemyHP(spire.FirstTier(l.Cycle())), nil
	}
	hp, err := num.Parse(a.hp)
	if err != nil {
		return num.Zero, fmt.Errorf("hp: %w", err)
	}
	return hp, nil
}

func (a *app) withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	st, err := store.NewStore(a.cfg.Store.Kind, a.cfg.Store.Path)
	if err != nil {
		return err
	}
	if err := st.Init(ctx); err != nil {
		return fmt.Errorf("init %s store: %w", a.cfg.Store.Kind, err)
	}
	defer func() {
		if err := store.CloseIfSupported(st); err != nil {
			a.log.Warn("close store", "error", err)
		}
	}()
	return fn(ctx, st)
}

type evalReport struct {
	Response string           `json:"response"`
	HP       num.Number       `json:"hp"`
	Cells    []spire.CellInfo `json:"cells"`
}

func (a *app) eval(l *spire.Layout, hp num.Number) error {
	line := query.FormatResponse(l)
	fmt.Println(line)
	if a.out == "" {
		return nil
	}
	return writeJSON(a.out, evalReport{Response: line, HP: hp, Cells: l.BuildCellInfo(hp)})
}

type runSummary struct {
	RunID       string     `json:"run_id"`
	Seed        int64      `json:"seed"`
	Traps       string     `json:"traps"`
	Fitness     num.Number `json:"fitness"`
	Damage      num.Number `json:"damage"`
	Cost        num.Number `json:"cost"`
	Threat      uint64     `json:"threat"`
	RS          num.Number `json:"rs_per_sec"`
	Generations int        `json:"generations"`
	ElapsedMS   int64      `json:"elapsed_ms"`
}

func (a *app) search(ctx context.Context, st store.Store) error {
	q, err := a.cfg.Query()
	if err != nil {
		return err
	}
	seedLayout, err := a.cfg.SeedLayout()
	if err != nil {
		return err
	}
	opts, err := a.cfg.SearchOptions()
	if err != nil {
		return err
	}
	runs := a.runs
	if runs < 1 {
		runs = 1
	}

	// Runs are split statically over workers so every run's seed depends only
	// on its index.
	workers := 4
	if runs < workers {
		workers = runs
	}
	summaries := make([]runSummary, runs)
	bests := make([]*spire.Layout, runs)
	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i, k := 0, workerID; k < runs; i, k = i+1, k+workers {
				o := opts
				o.Seed = util.JobSeed(opts.Seed, workerID, i)
				if runs > 1 {
					o.Workers = 1
				}
				start := time.Now()
				res, err := search.Run(ctx, seedLayout, o, func(g search.Generation) {
					a.log.Debug("generation", "run", g.RunID, "gen", g.Index, "mode", g.Mode,
						"traps", g.Traps, "damage", g.Damage.String(), "threat", g.Threat)
				})
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				bests[k] = res.Best
				summaries[k] = runSummary{
					RunID:       res.RunID,
					Seed:        o.Seed,
					Traps:       res.Best.Traps(),
					Fitness:     res.Fitness,
					Damage:      res.Best.Damage(),
					Cost:        res.Best.Cost(),
					Threat:      res.Best.Threat(),
					RS:          res.Best.RunestonesPerSecond(),
					Generations: len(res.Generations),
					ElapsedMS:   time.Since(start).Milliseconds(),
				}
			}
		}(w)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	for i, l := range bests {
		if err := st.Save(ctx, store.NewRecord(q, l)); err != nil {
			return fmt.Errorf("save run %d: %w", i, err)
		}
		s := summaries[i]
		fmt.Printf("Run %d -> %s damage=%s cost=%s threat=%d\n",
			i+1, s.Traps, humanize.Comma(int64(s.Damage.Int())), humanize.Comma(int64(s.Cost.Int())), s.Threat)
	}

	best, ok, err := st.Best(ctx, q.Key(), q.Budget)
	if err != nil {
		return err
	}
	if ok {
		resp, err := best.Response()
		if err != nil {
			return err
		}
		fmt.Println(resp.String())
	}
	if a.out != "" {
		if err := writeJSON(a.out, summaries); err != nil {
			return err
		}
		fmt.Printf("Batch %d done -> %s\n", runs, a.out)
	}
	return nil
}

func (a *app) serve(ctx context.Context, st store.Store) error {
	opts, err := a.cfg.SearchOptions()
	if err != nil {
		return err
	}
	srv := server.New(st, server.Options{
		SearchOnMiss:    a.cfg.Server.SearchOnMiss,
		MissGenerations: a.cfg.Server.MissGenerations,
		Search:          opts,
	}, a.log)
	return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
}

func writeJSON(path string, v any) error {
	b, err := util.MarshalPretty(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
