package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bads1de/badwave-desktop-sub000/internal/download"
	"github.com/bads1de/badwave-desktop-sub000/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local mirror's state",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStatus(); err != nil {
			fatalf("%v", err)
		}
	},
}

func runStatus() error {
	logger := quietLogger()
	ctx := context.Background()

	db, err := openStore(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	songCount, err := db.GetSongCount(ctx)
	if err != nil {
		return err
	}
	playlistCount, err := db.GetPlaylistCount(ctx)
	if err != nil {
		return err
	}
	offline, err := db.ListOfflineSongs(ctx)
	if err != nil {
		return err
	}
	sections, err := db.ListSectionKeys(ctx)
	if err != nil {
		return err
	}

	manager, err := download.New(db, &download.Config{
		DataDir: viper.GetString("data_dir"),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	usage, err := manager.Usage()
	if err != nil {
		return err
	}

	fmt.Println(ui.Title("badwave status"))
	fmt.Println(ui.Field("database", db.Path()))
	fmt.Println(ui.Field("songs", fmt.Sprintf("%d", songCount)))
	fmt.Println(ui.Field("playlists", fmt.Sprintf("%d", playlistCount)))
	fmt.Println(ui.Field("downloaded", fmt.Sprintf("%d", len(offline))))
	fmt.Println(ui.Field("storage", ui.Bytes(usage)))

	if len(sections) > 0 {
		fmt.Println()
		fmt.Println(ui.Title("sections"))
		keys := make([]string, 0, len(sections))
		for key := range sections {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			updated := sections[key]
			fmt.Println(ui.Field(key, ui.Dim("synced "+ui.Ago(&updated))))
		}
	}
	return nil
}
