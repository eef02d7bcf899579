package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	nlogger "github.com/neutron-org/neutron-logger"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oracle-relayer/oracle-relayer/internal/app"
	"github.com/oracle-relayer/oracle-relayer/internal/config"
	relayerhttp "github.com/oracle-relayer/oracle-relayer/internal/http"
	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

const (
	mainContext = "main"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the oracle relayer main app",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRelayer()
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func startRelayer() (err error) {
	logRegistry, err := nlogger.NewRegistry(
		mainContext,
		app.AppContext,
		app.SubscriberContext,
		app.RelayerContext,
		app.ChainReaderContext,
		app.ScorerContext,
		app.TxSenderContext,
		app.StorageContext,
		relayerhttp.ServerContext,
		relayerhttp.MonitoringLoggerContext,
	)
	if err != nil {
		log.Fatalf("couldn't initialize loggers registry: %s", err)
	}
	logger := logRegistry.Get(mainContext)
	logger.Info("oracle-relayer starts...", zap.String("version", app.Version), zap.String("commit", app.Commit))

	cfg, err := config.NewOracleRelayerConfig()
	if err != nil {
		logger.Error("cannot initialize relayer config", zap.Error(err))
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The storage has to be shared because of the LevelDB single process restriction.
	storage, err := app.NewDefaultStorage(cfg, logRegistry.Get(app.StorageContext))
	if err != nil {
		logger.Error("failed to create NewDefaultStorage", zap.Error(err))
		return err
	}
	defer func(storage relay.Storage) {
		if closeErr := storage.Close(); closeErr != nil {
			logger.Error("failed to close storage", zap.Error(closeErr))
			err = multierr.Append(err, closeErr)
		}
	}(storage)

	deps, err := app.NewDefaultDependencyContainer(ctx, cfg, logRegistry)
	if err != nil {
		logger.Error("failed to initialize dependency container", zap.Error(err))
		return err
	}
	defer deps.Close()

	var (
		watermark  = relay.NewWatermark()
		tasksQueue = make(chan relay.QueueEvent, cfg.QueueCapacity)
		relayer    = app.NewDefaultRelayer(cfg, logRegistry, storage, deps, watermark)
	)

	subscriber, err := app.NewDefaultSubscriber(cfg, logRegistry, deps, storage, watermark)
	if err != nil {
		logger.Error("failed to get NewDefaultSubscriber", zap.Error(err))
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := relayerhttp.Run(ctx, logRegistry, storage, relayer, cfg.ListenAddr); err != nil {
			return fmt.Errorf("webserver exited with an error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// The subscriber writes to the tasks queue.
		if err := subscriber.Subscribe(ctx, tasksQueue); err != nil {
			return fmt.Errorf("subscriber exited with an error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// The relayer reads from the tasks queue.
		if err := relayer.Run(ctx, tasksQueue); err != nil {
			return fmt.Errorf("relayer exited with an error: %w", err)
		}
		return nil
	})

	<-ctx.Done()
	logger.Info("gracefully shutting down...")

	if err := g.Wait(); err != nil {
		logger.Error("oracle-relayer stopped with an error", zap.Error(err))
		return err
	}

	logger.Info("oracle-relayer stopped")
	return nil
}
