package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
	"github.com/bads1de/badwave-desktop-sub000/internal/download"
	"github.com/bads1de/badwave-desktop-sub000/internal/ui"
)

var downloadCmd = &cobra.Command{
	Use:   "download <song-id>...",
	Short: "Download songs for offline playback",
	Long: `Download one or more songs from the remote library.

Every asset of a song (audio, cover image, video when present) downloads
together; a failed asset rolls the whole song back. Downloaded songs show
up in "badwave offline list" and keep playing without a connection.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDownload(args); err != nil {
			fatalf("%v", err)
		}
	},
}

func runDownload(ids []string) error {
	logger := quietLogger()
	if viper.GetBool("verbose") {
		logger = newLogger("[download] ")
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
	manager, err := download.New(db, &download.Config{
		DataDir: viper.GetString("data_dir"),
		Client: &http.Client{
			Transport: connectivity.NewTransport(state),
			Timeout:   2 * time.Minute,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	failed := 0

	for _, id := range ids {
		remoteSong, err := client.GetSong(ctx, id)
		if err != nil {
			failed++
			fmt.Println(ui.Err(fmt.Sprintf("%s: %v", id, err)))
			continue
		}

		song, err := manager.Download(ctx, remoteSong)
		if err != nil {
			failed++
			fmt.Println(ui.Err(fmt.Sprintf("%s: %v", id, err)))
			continue
		}

		fmt.Println(ui.OK(fmt.Sprintf("%s - %s", song.Author, song.Title)))
	}

	if failed > 0 {
		return fmt.Errorf("%d download(s) failed", failed)
	}
	return nil
}
