package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bads1de/badwave-desktop-sub000/internal/scheduler"
	"github.com/bads1de/badwave-desktop-sub000/internal/syncengine"
	"github.com/bads1de/badwave-desktop-sub000/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync [domain]",
	Short: "Sync content domains from the remote library",
	Long: `Sync remote content into the local mirror.

Without arguments every domain syncs: trending (weekly and all-time),
spotlight, latest, recommendations, public playlists, and with a
configured user id also your playlists and liked songs. Pass a domain
name to sync just that one.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSync(args); err != nil {
			fatalf("%v", err)
		}
	},
}

func runSync(args []string) error {
	logger := quietLogger()
	if viper.GetBool("verbose") {
		logger = newLogger("[sync] ")
	}

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

	state := newState()
	engine := syncengine.New(db, logger)
	orchestrators := syncengine.BuildOrchestrators(engine, client, state, nil, syncengine.DomainConfig{
		UserID:          viper.GetString("user_id"),
		SectionLimit:    viper.GetInt("section_limit"),
		TrendWindowDays: viper.GetInt("trend_window_days"),
		Logger:          logger,
	})

	sched := scheduler.New(orchestrators, state, &scheduler.Config{Logger: logger})
	defer sched.Stop()

	domains := sched.Domains()
	if len(args) == 1 {
		domains = args
	}

	ctx := context.Background()
	start := time.Now()
	failed := 0

	for _, domain := range domains {
		result, err := sched.SyncNow(ctx, domain)
		if err != nil {
			return err
		}
		switch {
		case result.Success:
			fmt.Println(ui.OK(fmt.Sprintf("%-18s %d items", domain, result.Count)))
		case result.Reason == syncengine.ReasonConditionsNotMet:
			fmt.Println(ui.Warn(fmt.Sprintf("%-18s skipped (offline)", domain)))
		default:
			failed++
			fmt.Println(ui.Err(fmt.Sprintf("%-18s %v", domain, result.Err)))
		}
	}

	fmt.Println(ui.Dim(fmt.Sprintf("Done in %v", time.Since(start).Round(time.Millisecond))))
	if failed > 0 {
		return fmt.Errorf("%d domain(s) failed", failed)
	}
	return nil
}
