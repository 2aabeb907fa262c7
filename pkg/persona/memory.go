package persona

import (
	"context"
	"time"

	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/eventlog"
)

func (r *Runtime) memoryRoutine(ctx context.Context) error {
	if !r.cfg.Memories || r.cfg.MemoryInterval < 0 {
		r.logger.Info("Agent-Routine: Memory routine disabled")
		return nil
	}
	if !r.sleep(ctx, core.Seconds(r.uniform(0, r.cfg.MemoryStartJitter))) {
		return nil
	}
	for r.Running() {
		pause := core.Seconds(r.cfg.MemoryInterval)
		if r.cfg.MemoryInterval == 0 {
			pause = core.Seconds(r.uniform(20, 90))
		}
		if !r.sleep(ctx, pause) {
			break
		}
		r.logger.Info("Agent-Routine: Starting memory routine")
		if _, err := r.RunMemoryOnce(ctx); err != nil {
			r.logger.WithError(err).Error("Agent-Routine: Error with memory routine")
		}
	}
	r.logger.Info("Agent-Routine: Memory routine stopped")
	return nil
}

// RunMemoryOnce folds exactly ReflectionBatch processed messages into a
// MEMORY document. Fewer queued messages leave the queue untouched. It
// reports whether a memory was stored.
//
// An empty or failed reflection consumes the batch without storing anything.
// A persistence error is returned and the memory count is not incremented.
func (r *Runtime) RunMemoryOnce(ctx context.Context) (bool, error) {
	batch, ok := r.processed.PopN(r.cfg.ReflectionBatch)
	if !ok {
		r.logger.Info("Agent-Routine: Not enough messages to process memories")
		return false, nil
	}

	reflection, err := r.ports.Contextualizer.SummarizeIntoMemory(ctx, batch, r.id.Description)
	if err != nil {
		r.logger.WithError(err).Warn("Agent-Routine: Reflection generation failed")
		reflection = ""
	}
	r.recorder.Record(eventlog.KeyReflections, []any{batch, r.id.Description}, reflection)
	if reflection == "" {
		return false, nil
	}

	if err := r.store.AddDocument(ctx, reflection, core.KindMemory, time.Time{}); err != nil {
		return false, err
	}
	r.mu.Lock()
	r.memoryCount++
	r.mu.Unlock()
	r.logger.Info("Agent-Routine: Created memory")
	return true, nil
}
