package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bads1de/badwave-desktop-sub000/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the local library to JSONL",
	Long: `Export every song and playlist in the local mirror as JSON Lines.

Local fields (download paths, played timestamps) are included, so an
export/import round trip on the same machine preserves offline state.
Writes to stdout when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExport(args); err != nil {
			fatalf("%v", err)
		}
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a JSONL library export",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runImport(args); err != nil {
			fatalf("%v", err)
		}
	},
}

func runExport(args []string) error {
	db, err := openStore(quietLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	out := os.Stdout
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		out = f
	}

	result, err := db.ExportLibrary(context.Background(), out)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		fmt.Println(ui.OK(fmt.Sprintf("Exported %d songs, %d playlists to %s",
			result.Songs, result.Playlists, args[0])))
	}
	return nil
}

func runImport(args []string) error {
	db, err := openStore(quietLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	in := os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		in = f
	}

	result, err := db.ImportLibrary(context.Background(), in)
	if err != nil {
		return err
	}

	fmt.Println(ui.OK(fmt.Sprintf("Imported %d songs, %d playlists",
		result.Songs, result.Playlists)))
	return nil
}
