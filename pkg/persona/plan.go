package persona

import (
	"context"
	"time"

	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/eventlog"
)

func (r *Runtime) planRoutine(ctx context.Context) error {
	if !r.cfg.Plans || r.cfg.PlanInterval < 0 {
		r.logger.Info("Agent-Routine: Plan routine disabled")
		return nil
	}
	if !r.sleep(ctx, core.Seconds(r.uniform(0, r.cfg.PlanStartJitter))) {
		return nil
	}
	for r.Running() {
		pause := core.Seconds(r.cfg.PlanInterval)
		if r.cfg.PlanInterval == 0 {
			pause = core.Seconds(r.uniform(30, 120))
		}
		if !r.sleep(ctx, pause) {
			break
		}
		r.logger.Info("Agent-Routine: Started plan routine")
		if _, err := r.RunPlanOnce(ctx); err != nil {
			r.logger.WithError(err).Error("Agent-Routine: Error with planning routine")
		}
	}
	r.logger.Info("Agent-Routine: Plan routine stopped")
	return nil
}

// RunPlanOnce revises the plan when the memory count is a non-zero multiple
// of PlanEvery. It reports whether a new plan was stored.
//
// A failed port call is logged and skips the revision. A persistence error
// is returned; the new plan is kept in memory but the memory count is not
// incremented.
func (r *Runtime) RunPlanOnce(ctx context.Context) (bool, error) {
	count := r.MemoryCount()
	if count == 0 || count%r.cfg.PlanEvery != 0 {
		r.logger.Info("Agent-Routine: Not enough memories to change plan")
		return false, nil
	}

	channelID := r.MonitoringChannel()
	summary := r.channelContext(ctx, channelID)
	queries := r.neutralQueries(ctx, channelID)
	memories := r.lookup(ctx, queries)

	old := r.Plan()
	plan, err := r.ports.Planner.MakePlan(ctx, old, summary, memories, summary, r.id.Description)
	if err != nil {
		r.logger.WithError(err).Warn("Agent-Routine: Plan generation failed")
		plan = ""
	}
	r.recorder.Record(eventlog.KeyPlans, []any{old, summary, memories, r.id.Description}, plan)
	if plan == "" {
		return false, nil
	}

	r.mu.Lock()
	r.plan = plan
	r.mu.Unlock()

	if err := r.store.AddDocument(ctx, plan, core.KindPlan, time.Time{}); err != nil {
		return false, err
	}
	r.mu.Lock()
	r.memoryCount++
	r.mu.Unlock()
	r.logger.Info("Agent-Routine: Updated plan")
	return true, nil
}
