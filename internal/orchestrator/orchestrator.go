package orchestrator

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/flownlg/internal/device"
	"github.com/danielpatrickdp/flownlg/internal/logging"
	"github.com/danielpatrickdp/flownlg/internal/metrics"
	"github.com/danielpatrickdp/flownlg/internal/plan"
	"github.com/danielpatrickdp/flownlg/internal/store"
	"github.com/danielpatrickdp/flownlg/internal/triple"
)

// #endregion

// #region generator-struct

// Options wires a Generator. Planner, Realizer and Slot are required.
type Options struct {
	Planner        Model
	Realizer       Model
	Slot           *device.Slot
	Store          *store.Store     // optional run and repair_log persistence
	Metrics        *metrics.Metrics // optional
	Logger         *logging.Logger  // optional
	Retry          RetryPolicy
	RequestTimeout time.Duration // per model call; 0 means no limit
}

// Generator drives plan -> repair -> render -> realize for one fact set at a
// time per caller. Model calls are serialised through the device slot.
type Generator struct {
	planner  Model
	realizer Model
	slot     *device.Slot
	store    *store.Store
	metrics  *metrics.Metrics
	log      *logging.Logger
	retry    RetryPolicy
	timeout  time.Duration
}

// #endregion

// #region constructor

// NewGenerator validates opts and returns a Generator.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Planner == nil || opts.Realizer == nil {
		return nil, errors.New("planner and realizer are required")
	}
	if opts.Slot == nil {
		return nil, errors.New("device slot is required")
	}
	if opts.Planner.Name() == opts.Realizer.Name() {
		return nil, fmt.Errorf("planner and realizer share the name %q", opts.Planner.Name())
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Generator{
		planner:  opts.Planner,
		realizer: opts.Realizer,
		slot:     opts.Slot,
		store:    opts.Store,
		metrics:  opts.Metrics,
		log:      log,
		retry:    opts.Retry,
		timeout:  opts.RequestTimeout,
	}, nil
}

// #endregion

// #region plan

// GeneratePlan asks the planner for a plan over triples, repairs it against
// len(triples) and renders the realizer template.
func (g *Generator) GeneratePlan(ctx context.Context, triples triple.TripleSet) (PlanResult, error) {
	res := PlanResult{PlannerInput: triples.String()}

	start := time.Now()
	raw, err := g.call(ctx, g.planner, res.PlannerInput)
	g.observe(metrics.StagePlan, start)
	if err != nil {
		return res, &StageError{Stage: metrics.StagePlan, Err: err}
	}
	res.RawPlan = raw

	start = time.Now()
	rep, err := plan.Repair(raw, len(triples))
	g.observe(metrics.StageRepair, start)
	if err != nil {
		return res, &StageError{Stage: metrics.StageRepair, Err: err}
	}
	res.Repair = rep

	start = time.Now()
	tmpl, err := plan.Render(rep.Plan, triples.IndexMap())
	g.observe(metrics.StageRender, start)
	if err != nil {
		return res, &StageError{Stage: metrics.StageRender, Err: err}
	}
	res.Template = tmpl
	return res, nil
}

// #endregion

// #region realize

// Realize turns a rendered template into text.
func (g *Generator) Realize(ctx context.Context, template string) (string, error) {
	start := time.Now()
	out, err := g.call(ctx, g.realizer, template)
	g.observe(metrics.StageRealize, start)
	if err != nil {
		return "", &StageError{Stage: metrics.StageRealize, Err: err}
	}
	return out, nil
}

// #endregion

// #region generate

// Generate runs the full pipeline for req. A failure aborts only this
// request; the run is recorded either way when a store is configured.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	res := Result{RunID: store.NewRunID()}
	log := g.log.With("run_id", res.RunID, "eid", req.EID, "lid", req.LID, "size", len(req.Triples))
	start := time.Now()

	var err error
	res.PlanResult, err = g.GeneratePlan(ctx, req.Triples)
	if err == nil {
		res.Output, err = g.Realize(ctx, res.Template)
	}
	res.Duration = time.Since(start)

	g.record(log, req, res, err)
	if err != nil {
		return res, err
	}
	return res, nil
}

// GenerateBatch runs Generate over reqs with at most concurrency requests in
// flight. Per-request failures are reported in the items; only ctx
// cancellation stops the batch early.
func (g *Generator) GenerateBatch(ctx context.Context, reqs []Request, concurrency int) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(concurrency, 1))

	for i, req := range reqs {
		items[i].Request = req
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				items[i].Err = err
				return err
			}
			items[i].Result, items[i].Err = g.Generate(egCtx, req)
			return nil
		})
	}
	return items, eg.Wait()
}

// #endregion

// #region helpers

func (g *Generator) call(ctx context.Context, m Model, input string) (string, error) {
	var out string
	err := g.retry.Do(ctx, func(ctx context.Context) error {
		if g.metrics != nil {
			g.metrics.SlotAcquisitions.Inc()
		}
		return g.slot.With(ctx, m.Name(), func(ctx context.Context) error {
			if g.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, g.timeout)
				defer cancel()
			}
			var err error
			out, err = m.Generate(ctx, input)
			return err
		})
	})
	return out, err
}

func (g *Generator) observe(stage string, start time.Time) {
	if g.metrics != nil {
		g.metrics.ObserveStage(stage, start)
	}
}

// record logs, counts and persists a finished request.
func (g *Generator) record(log *logging.Logger, req Request, res Result, err error) {
	stage := ""
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}

	repairReached := res.RawPlan != "" || stage == metrics.StageRepair
	repRec := logging.RepairRecord{
		RunID:   res.RunID,
		EID:     req.EID,
		Size:    len(req.Triples),
		RawPlan: res.RawPlan,
		Plan:    res.Repair.Plan,
		Extra:   res.Repair.Extra,
		Missing: res.Repair.Missing,
	}
	if stage == metrics.StageRepair {
		repRec.Error = se.Err.Error()
	}
	entry := logging.EntryFromRecord(repRec)

	if err != nil {
		log.Warn("generation failed", "stage", stage, "error", err, "raw_plan", res.RawPlan)
	} else {
		log.Info("generation complete",
			"decision", entry.Decision,
			"extra", len(res.Repair.Extra),
			"missing", len(res.Repair.Missing),
			"duration_ms", res.Duration.Milliseconds())
	}

	if g.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = stage
		}
		g.metrics.Generations.WithLabelValues(outcome).Inc()
		if repairReached {
			g.metrics.Repairs.WithLabelValues(entry.Decision).Inc()
			g.metrics.ExtraTokens.Add(float64(len(res.Repair.Extra)))
			g.metrics.MissingTokens.Add(float64(len(res.Repair.Missing)))
		}
	}

	if g.store == nil {
		return
	}
	run := store.RunRecord{
		RunID:        res.RunID,
		EID:          req.EID,
		LID:          req.LID,
		Category:     req.Category,
		Size:         len(req.Triples),
		PlannerInput: res.PlannerInput,
		RawPlan:      res.RawPlan,
		Plan:         res.Repair.Plan,
		Template:     res.Template,
		Output:       res.Output,
		Stage:        stage,
		DurationMS:   res.Duration.Milliseconds(),
	}
	if err != nil {
		run.Error = err.Error()
	}
	if _, err := g.store.SaveRun(run); err != nil {
		log.Error("failed to save run", "error", err)
		return
	}
	if repairReached {
		if err := logging.LogRepair(g.store.DB(), entry); err != nil {
			log.Error("failed to log repair", "error", err)
		}
	}
}

// #endregion
