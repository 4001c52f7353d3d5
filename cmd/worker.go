package cmd

import (
	"matchpool/worker"
	"matchpool/worker/accrual"
	"matchpool/worker/eventpump"

	"github.com/drone/signal"
	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "matchpool job worker",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		if database == nil {
			log.Fatalln("worker requires a database")
		}
		defer database.Close()

		pool := providePool()
		propertyStore := providePropertyStore(database)
		marketStore := provideMarketStore(database)
		eventStore := provideEventStore(database)
		marketService := provideMarketService(marketStore, pool)

		workers := []worker.IJob{
			accrual.New(cfg.App.Location, cfg.App.AccrualSpec, database, marketStore, marketService),
			eventpump.New(cfg.App.Location, propertyStore, eventStore, provideNotifier()),
		}

		ctx = signal.WithContext(ctx)

		for _, w := range workers {
			if err := w.Start(); err != nil {
				log.WithError(err).Fatalln("worker start failed")
			}
		}

		<-ctx.Done()

		for _, w := range workers {
			if err := w.Stop(); err != nil {
				log.WithError(err).Errorln("worker stop failed")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
