package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/archiveverify"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/archiveverify/config"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/dataset"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/myemsl"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/passlog"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/version"
)

// Exit codes form the scheduler contract: 0 success, 2 retry later,
// 1 terminal failure.
const (
	exitSuccess  = 0
	exitFailed   = 1
	exitNotReady = 2
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
)

var cyan = color.New(color.FgHiCyan, color.Bold).SprintFunc()

var rootCmd = &cobra.Command{
	Use:     "archiveverify",
	Short:   "Verify a dataset's files against the MyEMSL archive",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Path:         viper.ConfigFileUsed(),
			ArchiveURL:   viper.GetString("archive_url"),
			CertFile:     viper.GetString("cert_file"),
			LedgerRoot:   viper.GetString("ledger_root"),
			BackupRoot:   viper.GetString("backup_root"),
			TransferRoot: viper.GetString("transfer_root"),
			SourceRoot:   viper.GetString("source_root"),
			RemoteRoot:   viper.GetString("remote_root"),
			PassLogPath:  viper.GetString("passlog_path"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		task, err := taskFromFlags(cmd)
		if err != nil {
			return err
		}

		cmd.SilenceUsage = true
		fmt.Println(cyan(version.AppName), version.Short())

		return runPass(cmd.Context(), cfg, task)
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().String("dataset", "", "Dataset name")
	rootCmd.Flags().Int64("dataset-id", 0, "Numeric dataset id known to the archive")
	rootCmd.Flags().String("instrument", "", "Instrument name")
	rootCmd.Flags().String("created", "", "Dataset creation timestamp (RFC3339 or YYYY-MM-DD)")
	rootCmd.Flags().String("subdir", "", "Optional subdirectory glob filter")
	rootCmd.Flags().StringP("archive", "a", "", "MyEMSL archive URL")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Config file")
	rootCmd.MarkFlagRequired("dataset")
	rootCmd.MarkFlagRequired("dataset-id")
	rootCmd.MarkFlagRequired("instrument")
}

func main() {
	godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitFailed)
	}
}

func runPass(ctx context.Context, cfg *config.Config, task *archiveverify.Task) error {
	// One pass per dataset at a time. The scheduler guarantees this in
	// production; the lock covers manual invocations.
	lock := flock.New(filepath.Join(cfg.LedgerRoot, ".locks", task.Dataset+".lock"))
	if err := os.MkdirAll(filepath.Dir(lock.Path()), 0o755); err != nil {
		return err
	}
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("dataset lock: %w", err)
	}
	if !locked {
		slog.Warn("another pass is already running for this dataset", "dataset", task.Dataset)
		os.Exit(exitNotReady)
	}
	defer lock.Unlock()

	var passes *passlog.Journal
	if cfg.PassLogPath != "" {
		passes, err = passlog.Open(cfg.PassLogPath)
		if err != nil {
			slog.Warn("pass history unavailable", "error", err)
		} else {
			defer passes.Close()
		}
	}

	archive := myemsl.New(cfg.ArchiveURL, cfg.CertFile)
	resolver := dataset.NewResolver(cfg.TransferRoot, cfg.SourceRoot, nil)
	verifier := archiveverify.New(cfg, archive, resolver, passes)

	result := verifier.Run(ctx, task)
	switch result.Disposition {
	case archiveverify.Success:
		os.Exit(exitSuccess)
	case archiveverify.NotReady:
		os.Exit(exitNotReady)
	default:
		os.Exit(exitFailed)
	}
	return nil
}

func taskFromFlags(cmd *cobra.Command) (*archiveverify.Task, error) {
	name, _ := cmd.Flags().GetString("dataset")
	id, _ := cmd.Flags().GetInt64("dataset-id")
	instrument, _ := cmd.Flags().GetString("instrument")
	createdStr, _ := cmd.Flags().GetString("created")
	subdir, _ := cmd.Flags().GetString("subdir")

	if id <= 0 {
		return nil, errors.New("dataset-id must be positive")
	}

	created := time.Now()
	if createdStr != "" {
		var err error
		created, err = time.Parse(time.RFC3339, createdStr)
		if err != nil {
			created, err = time.Parse("2006-01-02", createdStr)
			if err != nil {
				return nil, fmt.Errorf("invalid created timestamp %q", createdStr)
			}
		}
	}

	return &archiveverify.Task{
		Dataset:      name,
		DatasetID:    id,
		Instrument:   instrument,
		Created:      created,
		SubdirFilter: subdir,
	}, nil
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".archiveverify"))
		viper.AddConfigPath(filepath.Join(home, ".config/archiveverify"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("archive_url", cmd.Flags().Lookup("archive"))

	viper.SetEnvPrefix("ARCHIVEVERIFY")
	viper.AutomaticEnv()

	return nil
}
