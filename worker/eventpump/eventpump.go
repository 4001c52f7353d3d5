package eventpump

import (
	"context"
	"time"

	"matchpool/core"
	"matchpool/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	"github.com/robfig/cron/v3"
)

const (
	checkpointKey = "eventpump_checkpoint"
	limit         = 500
)

// Worker drains the position event outbox to the notifier in insertion
// order, advancing a checkpoint only after delivery
type Worker struct {
	worker.BaseJob

	propertyStore property.Store
	eventStore    core.IEventStore
	notifier      core.Notifier
}

// New new event pump worker
func New(
	location string,
	propertyStr property.Store,
	eventStr core.IEventStore,
	notify core.Notifier,
) *Worker {
	job := Worker{
		propertyStore: propertyStr,
		eventStore:    eventStr,
		notifier:      notify,
	}

	l, _ := time.LoadLocation(location)
	job.Cron = cron.New(cron.WithLocation(l))
	spec := "@every 100ms"
	job.Cron.AddFunc(spec, job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "eventpump")

	v, err := w.propertyStore.Get(ctx, checkpointKey)
	if err != nil {
		log.WithError(err).Errorln("property.Get", checkpointKey)
		return err
	}

	offset := uint64(v.Int64())

	events, err := w.eventStore.List(ctx, offset, limit)
	if err != nil {
		log.WithError(err).Errorln("eventStore.List")
		return err
	}

	if len(events) == 0 {
		return nil
	}

	if err := w.notifier.Notify(ctx, events); err != nil {
		log.WithError(err).Errorln("notifier.Notify")
		return err
	}

	last := events[len(events)-1]
	if err := w.propertyStore.Save(ctx, checkpointKey, last.ID); err != nil {
		log.WithError(err).Errorln("property.Save", checkpointKey)
		return err
	}

	if err := w.eventStore.Delete(ctx, events); err != nil {
		log.WithError(err).Errorln("eventStore.Delete")
		return err
	}

	return nil
}
