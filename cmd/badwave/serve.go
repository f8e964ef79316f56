package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
	"github.com/bads1de/badwave-desktop-sub000/internal/download"
	"github.com/bads1de/badwave-desktop-sub000/internal/gateway"
	"github.com/bads1de/badwave-desktop-sub000/internal/scheduler"
	"github.com/bads1de/badwave-desktop-sub000/internal/syncengine"
	"github.com/bads1de/badwave-desktop-sub000/internal/ui"
	"github.com/bads1de/badwave-desktop-sub000/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local sync daemon and gateway",
	Long: `Run badwave as a long-lived daemon.

The daemon:
  1. Syncs every content domain from the remote library
  2. Resyncs on reconnect and on gateway triggers
  3. Watches the downloads directory for out-of-band deletions
  4. Serves the local HTTP/WebSocket gateway for the player UI`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "gateway port (default from config, 8090)")
	serveCmd.Flags().Duration("resync-interval", 0, "periodic full resync interval (0 disables)")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("resync_interval", serveCmd.Flags().Lookup("resync-interval"))
}

func runServe() error {
	logger := newLogger("[badwave] ")
	state := newState()

	db, err := openStore(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := openRemote(logger)
	if err != nil {
		return err
	}
	defer client.Close()

	// Reachability probe keeps the state honest
	probe := connectivity.NewProbe(state, connectivity.ProbeConfig{
		URL:    viper.GetString("probe_url"),
		Logger: logger,
	})
	probeCtx, probeCancel := context.WithCancel(context.Background())
	defer probeCancel()
	go probe.Run(probeCtx)

	// Downloads route through the connectivity transport so simulated
	// offline blocks them like real offline does
	downloads, err := download.New(db, &download.Config{
		DataDir: viper.GetString("data_dir"),
		Client: &http.Client{
			Transport: connectivity.NewTransport(state),
			Timeout:   2 * time.Minute,
		},
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	engine := syncengine.New(db, logger)

	// Gateway first: it is the invalidator the orchestrators push to
	api := gateway.NewAPI(&gateway.APIConfig{
		Store:     db,
		Remote:    client,
		Downloads: downloads,
		State:     state,
		Logger:    logger,
	})
	server := gateway.NewServer(api, state, &gateway.Config{
		Port:   viper.GetInt("port"),
		Logger: logger,
	})

	orchestrators := syncengine.BuildOrchestrators(engine, client, state, server, syncengine.DomainConfig{
		UserID:          viper.GetString("user_id"),
		SectionLimit:    viper.GetInt("section_limit"),
		TrendWindowDays: viper.GetInt("trend_window_days"),
		Logger:          logger,
	})

	sched := scheduler.New(orchestrators, state, &scheduler.Config{
		AutoSync:          true,
		ResyncOnReconnect: true,
		Interval:          viper.GetDuration("resync_interval"),
		Logger:            logger,
	})
	api.SetScheduler(sched)

	w, err := watcher.New(db, downloads.Root(), &watcher.Config{
		OnCleared: func(songID string) { server.NotifyDownload(songID, false) },
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if err := server.Start(); err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		server.Stop()
		return fmt.Errorf("failed to start downloads watcher: %w", err)
	}
	if err := sched.Start(); err != nil {
		w.Stop()
		server.Stop()
		return err
	}

	fmt.Printf("%s\n", ui.Title("badwave daemon"))
	fmt.Println(ui.Field("gateway", "http://"+server.Addr()))
	fmt.Println(ui.Field("data dir", viper.GetString("data_dir")))
	fmt.Println(ui.Dim("Press Ctrl+C to stop"))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println(ui.Dim("Shutting down..."))
	sched.Stop()
	w.Stop()
	if err := server.Stop(); err != nil {
		return err
	}
	return nil
}
