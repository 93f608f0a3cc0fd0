package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/callboard/internal/config"
	"github.com/sweeney/callboard/internal/httpapi"
	"github.com/sweeney/callboard/internal/inbox"
	"github.com/sweeney/callboard/internal/live"
	"github.com/sweeney/callboard/internal/provider"
	"github.com/sweeney/callboard/internal/publisher"
	"github.com/sweeney/callboard/internal/store"
	"github.com/sweeney/callboard/internal/timeline"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and keep call data up to date",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	var pub publisher.Publisher = publisher.LogPublisher{}
	if cfg.MQTT.Enabled {
		mp, err := publisher.NewMQTTPublisher(publisher.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			QoS:         1,
			StatusTopic: cfg.MQTT.TopicPrefix + "/status",
		})
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		slog.Info("connected to MQTT broker", "broker", cfg.MQTT.Broker)
		pub = mp
	}
	defer pub.Close()

	ln, err := net.Listen("tcp", cfg.HTTP.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.HTTP.Listen, err)
	}

	if err := run(ctx, cfg, pub, ln); err != nil {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}

// run wires the store, live pusher, scheduler, inbox and HTTP API together
// and blocks until ctx is done or a component fails.
func run(ctx context.Context, cfg *config.Config, pub publisher.Publisher, ln net.Listener) error {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	viewOpts := []timeline.Option{timeline.WithUnansweredThreshold(cfg.UnansweredWarn)}
	pusher := live.NewPusher(st, pub, cfg.MQTT.TopicPrefix, cfg.LiveWindow, viewOpts...)

	routerOpts := httpapi.Options{
		PushToken:   cfg.Push.Token,
		LiveWindow:  cfg.LiveWindow,
		ViewOptions: viewOpts,
		Notify:      pusher.Notify,
	}
	if cfg.PollingEnabled() {
		client := provider.NewClient(cfg.Provider.Host, cfg.Provider.Username, cfg.Provider.Password, cfg.Provider.Timeout)
		poller := provider.NewPoller(client, st, pusher.Notify)
		routerOpts.RefreshCustomerData = poller.FetchCustomerData
		routerOpts.RefreshContacts = poller.FetchContacts
		sched, err := provider.NewScheduler(poller, cfg.Schedule)
		if err != nil {
			return fmt.Errorf("scheduling provider fetches: %w", err)
		}
		sched.Start(ctx)
		defer sched.Stop()
	} else {
		slog.Warn("provider polling disabled (no host)")
	}

	router := httpapi.NewRouter(st, routerOpts)
	mux := http.NewServeMux()
	router.Register(mux)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server started", "listen", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Inbox.Dir != "" {
		g.Go(func() error {
			return inbox.NewWatcher(cfg.Inbox.Dir, st, pusher.Notify).Run(gctx)
		})
	}
	g.Go(func() error {
		pusher.Notify(gctx)
		return nil
	})

	return g.Wait()
}
