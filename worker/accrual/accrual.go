package accrual

import (
	"context"
	"time"

	"matchpool/core"
	"matchpool/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Worker compounds the p2p indexes of every market on a schedule so the
// snapshot never drifts far from the pool even on quiet markets
type Worker struct {
	worker.BaseJob

	db            *db.DB
	marketStore   core.IMarketStore
	marketService core.IMarketService
}

// New new accrual worker
func New(
	location string,
	spec string,
	database *db.DB,
	marketStr core.IMarketStore,
	marketSrv core.IMarketService,
) *Worker {
	job := Worker{
		db:            database,
		marketStore:   marketStr,
		marketService: marketSrv,
	}

	l, _ := time.LoadLocation(location)
	job.Cron = cron.New(cron.WithLocation(l))
	job.Cron.AddFunc(spec, job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "accrual")

	markets, err := w.marketStore.All(ctx)
	if err != nil {
		log.Errorln("fetch all markets error:", err)
		return err
	}

	now := time.Now()

	var g errgroup.Group
	for _, m := range markets {
		market := m
		g.Go(func() error {
			err := w.db.Tx(func(tx *db.DB) error {
				return w.marketService.AccrueInterest(ctx, tx, market, now)
			})
			if err != nil {
				log.Errorln("accrue interest error:", market.Symbol, err)
			}
			// one stale market must not stall the others
			return nil
		})
	}

	return g.Wait()
}
