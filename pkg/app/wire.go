package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/cron"
	"github.com/flemzord/sbot/internal/dispatch"
	"github.com/flemzord/sbot/internal/memory"
	"github.com/flemzord/sbot/pkg/message"
)

// wireChannels registers every loaded channel module with the mux under
// its module ID, which is also the Channel field of the messages it emits,
// and points its inbox at the dispatcher. Returns the number of channels.
// Must be called after LoadModules and before Start.
func wireChannels(app *core.App, mux *channel.Mux, d *dispatch.Dispatcher, logger *slog.Logger) int {
	inbox := func(ctx context.Context, msg message.Message) error {
		_, err := d.Receive(ctx, msg)
		return err
	}

	n := 0
	for _, id := range app.Modules() {
		mod, _ := app.Module(string(id))
		ch, ok := mod.(channel.Channel)
		if !ok {
			continue
		}
		if err := mux.Register(string(id), ch); err != nil {
			logger.Error("skipping channel", "channel", string(id), "error", err)
			continue
		}
		ch.SetInbox(inbox)
		n++
		logger.Info("channel wired", "channel", string(id))
	}
	return n
}

// memorySync is the lifecycle wrapper around memory persistence. It is
// appended after the configured modules, so it stops before the persister
// closes and can flush a final snapshot.
type memorySync struct {
	syncer    *memory.Syncer
	scheduler *cron.Scheduler
}

var (
	_ core.Starter = (*memorySync)(nil)
	_ core.Stopper = (*memorySync)(nil)
)

func (m *memorySync) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "memory.sync"}
}

func (m *memorySync) Start() error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Start()
}

func (m *memorySync) Stop(ctx context.Context) error {
	var errs []error
	if m.scheduler != nil {
		errs = append(errs, m.scheduler.Stop(ctx))
	}
	errs = append(errs, m.syncer.Save(ctx))
	return errors.Join(errs...)
}

// wireMemory restores persisted memory and schedules autosaves when a
// persister module published one. Without a persister, memory lives only
// for the process.
func (b *Bot) wireMemory(ctx context.Context) error {
	persister, ok := core.Service[memory.Persister](b.Context, ServicePersister)
	if !ok {
		b.Logger.Debug("no memory persister configured, memory is not persisted")
		return nil
	}

	syncer := memory.NewSyncer(b.Memory, persister, b.Logger.With("component", "memory"))
	if err := syncer.Load(ctx); err != nil {
		return err
	}

	ms := &memorySync{syncer: syncer}
	if b.Config.Memory.AutosaveEnabled() {
		ms.scheduler = cron.NewScheduler(b.Logger.With("component", "cron"))
		job := &cron.MemoryAutosaveJob{
			Saver:        syncer,
			Logger:       b.Logger,
			ScheduleExpr: b.Config.Memory.Autosave,
		}
		if err := ms.scheduler.RegisterJob(job); err != nil {
			return err
		}
	}
	b.App.Append(ms.ModuleInfo().ID, ms)
	return nil
}
