package internal

import (
	"context"
	"fmt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"os"
	"os/signal"
	"sitestatus/internal/controllers"
	"sitestatus/internal/gateway"
	"sitestatus/internal/housekeeping/interfaces"
	"sitestatus/internal/providers"
	"sitestatus/internal/queue"
	"sitestatus/internal/services"
	"sitestatus/internal/storage"
	"sitestatus/internal/structures"
	"strconv"
	"syscall"
	"time"
)

type App struct {
	WebServer *http.Server
}

func NewApp(healthController *controllers.HealthController, dispatcher *services.DeliveryDispatcher, scheduler interfaces.SchedulerInterface, gw *gateway.WebsocketGateway, queues *queue.Set, feed *storage.ChangeFeed, conf *structures.Config, logger providers.Logger, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface) (*App, error) {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Pattern(), route.Handler)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	logger.Infof(providers.TypeApp, "Starting %s", conf.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()
	if conf.Queue.Driver != queue.DriverRedis {
		go services.DrainStream(ctx, queues.Stream, logger)
	}

	err := scheduler.Restore()
	if err != nil {
		logger.Errorf(providers.TypeApp, "Restore error: %s", err)
	}

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      providers.CorsMiddleware(mux),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		scheduler.Stop()
		cancel()
		<-dispatcherDone
		return nil, fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	stopWorkers := func() {
		cancel()
		<-dispatcherDone
	}
	if err = app.shutdown(shutdownCtx, scheduler, gw.CloseAll, stopWorkers, feed.Close, logger); err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}

// shutdown tears the service down in order. An HTTP shutdown error is logged
// and the remaining steps still run so the final snapshot is written.
func (a *App) shutdown(ctx context.Context, scheduler interfaces.SchedulerInterface, closeConnections, stopWorkers, closeFeed func(), logger providers.Logger) error {
	scheduler.Stop()

	if err := a.WebServer.Shutdown(ctx); err != nil {
		logger.Errorf(providers.TypeApp, "HTTP shutdown error: %s", err)
	}
	closeConnections()
	stopWorkers()
	closeFeed()

	return scheduler.Persist()
}
