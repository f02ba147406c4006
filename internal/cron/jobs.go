package cron

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultAutosaveSchedule is used when MemoryAutosaveJob.ScheduleExpr is empty.
const DefaultAutosaveSchedule = "@every 1m"

// Saver is the subset of memory.Syncer needed by the autosave job.
type Saver interface {
	Save(ctx context.Context) error
}

// MemoryAutosaveJob flushes the bot's memory to its persister. The Saver
// skips the write when nothing changed since the last save.
type MemoryAutosaveJob struct {
	Saver        Saver
	Logger       *slog.Logger
	ScheduleExpr string
}

// Compile-time interface check.
var _ Job = (*MemoryAutosaveJob)(nil)

// Name implements Job.
func (j *MemoryAutosaveJob) Name() string { return "memory_autosave" }

// Schedule implements Job.
func (j *MemoryAutosaveJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultAutosaveSchedule
}

// Run saves the memory snapshot.
func (j *MemoryAutosaveJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: memory autosave cancelled: %w", ctx.Err())
	}
	if err := j.Saver.Save(ctx); err != nil {
		return fmt.Errorf("cron: memory autosave: %w", err)
	}
	if j.Logger != nil {
		j.Logger.Debug("cron: memory autosaved")
	}
	return nil
}
