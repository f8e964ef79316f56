package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
	"github.com/bads1de/badwave-desktop-sub000/internal/remote"
	"github.com/bads1de/badwave-desktop-sub000/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "badwave",
	Short: "Local-first sync engine for the badwave music library",
	Long: `badwave mirrors your music library into a local SQLite database so the
player keeps working offline.

Remote content (songs, playlists, likes, curated sections) syncs into the
mirror on demand; downloaded tracks live under the data directory and
survive metadata refreshes.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default <data-dir>/badwave.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "application data directory (default ~/.badwave)")
	rootCmd.PersistentFlags().String("remote-url", "", "remote library database URL")
	rootCmd.PersistentFlags().String("user-id", "", "user id for personal domains (likes, playlists)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging to stderr")

	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("remote_url", rootCmd.PersistentFlags().Lookup("remote-url"))
	_ = viper.BindPFlag("user_id", rootCmd.PersistentFlags().Lookup("user-id"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(offlineCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

// initConfig loads viper config: flags, then config file, then BADWAVE_*
// environment variables.
func initConfig() {
	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("port", 8090)
	viper.SetDefault("section_limit", 20)
	viper.SetDefault("trend_window_days", 7)
	viper.SetDefault("probe_url", "https://www.google.com/generate_204")
	viper.SetDefault("log_max_size_mb", 10)
	viper.SetDefault("log_max_backups", 3)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(viper.GetString("data_dir"))
		viper.SetConfigName("badwave")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BADWAVE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".badwave"
	}
	return filepath.Join(home, ".badwave")
}

// newLogger builds the shared logger: stderr when verbose, otherwise a
// rotated log file under the data directory.
func newLogger(prefix string) *log.Logger {
	if viper.GetBool("verbose") {
		return log.New(os.Stderr, prefix, log.LstdFlags)
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(viper.GetString("data_dir"), "badwave.log"),
		MaxSize:    viper.GetInt("log_max_size_mb"),
		MaxBackups: viper.GetInt("log_max_backups"),
		Compress:   true,
	}
	return log.New(w, prefix, log.LstdFlags)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// openStore opens (and initializes) the embedded mirror database.
func openStore(logger *log.Logger) (*store.DB, error) {
	dataDir := viper.GetString("data_dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := store.Open(filepath.Join(dataDir, "badwave.db"), logger)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openRemote connects to the remote library. The connection is lazy; a
// missing URL is the only immediate error.
func openRemote(logger *log.Logger) (*remote.Client, error) {
	url := viper.GetString("remote_url")
	if url == "" {
		return nil, fmt.Errorf("remote_url is not configured (flag --remote-url, env BADWAVE_REMOTE_URL or config file)")
	}
	return remote.Open(url, logger)
}

// newState builds the connectivity state, assuming online until the probe
// or an explicit toggle says otherwise.
func newState() *connectivity.State {
	return connectivity.NewState(true)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
