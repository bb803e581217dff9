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

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/assetsync/assetsync/internal/blob"
	"github.com/assetsync/assetsync/internal/cdn"
	"github.com/assetsync/assetsync/internal/config"
	"github.com/assetsync/assetsync/internal/inventory"
	"github.com/assetsync/assetsync/internal/sync"
	"github.com/assetsync/assetsync/internal/version"
)

const configFileName = "assetsync"

var rootCmd = &cobra.Command{
	Use:     "assetsync",
	Short:   "Sync static build artifacts to object storage",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Path:                viper.ConfigFileUsed(),
			SourceDir:           viper.GetString("source_dir"),
			AssetsPrefix:        viper.GetString("assets_prefix"),
			Manifest:            viper.GetString("manifest"),
			Bucket:              viper.GetString("bucket"),
			Region:              viper.GetString("region"),
			AccessKey:           viper.GetString("access_key"),
			SecretKey:           viper.GetString("secret_key"),
			Endpoint:            viper.GetString("endpoint"),
			IgnoredFiles:        viper.GetStringSlice("ignored_files"),
			AlwaysUpload:        viper.GetStringSlice("always_upload"),
			Invalidate:          viper.GetStringSlice("invalidate"),
			ExistingRemoteFiles: config.RemoteFilesPolicy(viper.GetString("existing_remote_files")),
			Gzip:                viper.GetBool("gzip"),
			ReducedRedundancy:   viper.GetBool("reduced_redundancy"),
			CDNDistributionID:   viper.GetString("cdn_distribution_id"),
			Concurrency:         viper.GetInt("concurrency"),
		}
		if err := viper.UnmarshalKey("custom_headers", &cfg.CustomHeaders); err != nil {
			return fmt.Errorf("config `custom_headers`: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		cmd.SilenceUsage = true
		showHeader()

		ctx := cmd.Context()

		client, err := blob.NewS3ClientWithConfig(ctx, &blob.S3Config{
			BucketName: cfg.Bucket,
			Region:     cfg.Region,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
			Endpoint:   cfg.Endpoint,
		})
		if err != nil {
			return err
		}

		var invalidator cdn.Invalidator
		if cfg.CDNDistributionID != "" {
			invalidator, err = cdn.NewCloudFrontInvalidatorWithConfig(ctx, &cdn.CloudFrontConfig{
				Region:    cfg.Region,
				AccessKey: cfg.AccessKey,
				SecretKey: cfg.SecretKey,
			})
			if err != nil {
				return err
			}
		}

		var source inventory.Source
		if cfg.Manifest != "" {
			source = inventory.NewManifestSource(filepath.Join(cfg.SourceDir, cfg.Manifest), cfg.AssetsPrefix)
		} else {
			source = inventory.NewDirSource(cfg.SourceDir, cfg.AssetsPrefix)
		}

		syncer := sync.New(cfg, client, invalidator, source, inventory.NewOSFS(cfg.SourceDir), slog.Default())
		return syncer.Run(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Detailed())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("source", "s", "public", "Local directory containing built assets")
	rootCmd.Flags().StringP("prefix", "p", "assets", "Path prefix joining local and remote namespaces")
	rootCmd.Flags().StringP("bucket", "b", "", "Target bucket name")
	rootCmd.Flags().StringP("region", "r", "", "Bucket region")
	rootCmd.Flags().String("existing", "", "Policy for remote files missing locally: keep, ignore or delete")
	rootCmd.Flags().Bool("gzip", false, "Substitute pre-compressed .gz twins when smaller")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file path")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(".")
		home, _ := os.UserHomeDir()
		viper.AddConfigPath(filepath.Join(home, ".config", "assetsync"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("source_dir", cmd.Flags().Lookup("source"))
	viper.BindPFlag("assets_prefix", cmd.Flags().Lookup("prefix"))
	viper.BindPFlag("bucket", cmd.Flags().Lookup("bucket"))
	viper.BindPFlag("region", cmd.Flags().Lookup("region"))
	viper.BindPFlag("existing_remote_files", cmd.Flags().Lookup("existing"))
	viper.BindPFlag("gzip", cmd.Flags().Lookup("gzip"))

	viper.SetEnvPrefix("ASSETSYNC")
	viper.AutomaticEnv()

	return nil
}
