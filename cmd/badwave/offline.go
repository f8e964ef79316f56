package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bads1de/badwave-desktop-sub000/internal/download"
	"github.com/bads1de/badwave-desktop-sub000/internal/ui"
)

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Manage the offline library",
}

var offlineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloaded songs",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runOfflineList(); err != nil {
			fatalf("%v", err)
		}
	},
}

var offlineRemoveCmd = &cobra.Command{
	Use:   "remove <song-id>",
	Short: "Remove a song's offline copy",
	Long: `Remove a song's downloaded files.

The song's metadata stays in the local mirror, so it remains visible in
the library and can be downloaded again. With --purge the song row is
deleted entirely.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		purge, _ := cmd.Flags().GetBool("purge")
		yes, _ := cmd.Flags().GetBool("yes")
		if err := runOfflineRemove(args[0], purge, yes); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	offlineRemoveCmd.Flags().Bool("purge", false, "also delete the song from the local mirror")
	offlineRemoveCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	offlineCmd.AddCommand(offlineListCmd)
	offlineCmd.AddCommand(offlineRemoveCmd)
}

func runOfflineList() error {
	logger := quietLogger()

	db, err := openStore(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	songs, err := db.ListOfflineSongs(context.Background())
	if err != nil {
		return err
	}

	if len(songs) == 0 {
		fmt.Println(ui.Dim("No downloaded songs"))
		return nil
	}

	fmt.Println(ui.Title(fmt.Sprintf("Offline library (%d songs)", len(songs))))
	for _, song := range songs {
		fmt.Printf("  %-12s %s - %s %s\n",
			song.ID, song.Author, song.Title, ui.Dim(ui.Ago(song.DownloadedAt)))
	}
	return nil
}

func runOfflineRemove(id string, purge, yes bool) error {
	logger := quietLogger()

	db, err := openStore(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	manager, err := download.New(db, &download.Config{
		DataDir: viper.GetString("data_dir"),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if purge && !yes {
		confirmed := false
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete song %s from the local mirror?", id)).
				Description("The files and the library entry are both removed.").
				Value(&confirmed),
		))
		if err := form.Run(); err != nil {
			return err
		}
		if !confirmed {
			fmt.Println(ui.Dim("Aborted"))
			return nil
		}
	}

	if err := manager.Remove(context.Background(), id, purge); err != nil {
		return err
	}

	fmt.Println(ui.OK("Removed " + id))
	return nil
}
