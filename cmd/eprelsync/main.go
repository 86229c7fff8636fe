package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvdzapata/EPREL/internal/config"
	"github.com/dvdzapata/EPREL/internal/domain"
	"github.com/dvdzapata/EPREL/internal/eprel"
	"github.com/dvdzapata/EPREL/internal/logger"
	"github.com/dvdzapata/EPREL/internal/repository"
	"github.com/dvdzapata/EPREL/internal/service"
	"github.com/dvdzapata/EPREL/internal/storage"
	syncpkg "github.com/dvdzapata/EPREL/internal/sync"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "eprelsync",
		Short: "Sync the EPREL product registry into a local catalog",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(labelsCmd())
	rootCmd.AddCommand(groupsCmd())
	rootCmd.AddCommand(pingCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired dependencies shared by the subcommands.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	client *eprel.Client

	jobs        *repository.JobRepository
	checkpoints *repository.CheckpointRepository
	products    *repository.ProductRepository
	groups      *repository.GroupRepository
}

func buildApp(withDB bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewFromEnv()
	logger.SetDefault(log)

	a := &app{
		cfg: cfg,
		log: log,
		client: eprel.NewClient(&eprel.ClientConfig{
			APIKey:  cfg.EPREL.APIKey,
			BaseURL: cfg.EPREL.BaseURL,
			Timeout: cfg.EPREL.RequestTimeout,
		}),
	}
	if !withDB {
		return a, nil
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.jobs = repository.NewJobRepository(db)
	a.checkpoints = repository.NewCheckpointRepository(db)
	a.products = repository.NewProductRepository(db)
	a.groups = repository.NewGroupRepository(db)
	return a, nil
}

func syncCmd() *cobra.Command {
	var (
		categories  []string
		all         bool
		noResume    bool
		maxProducts int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync product groups from the EPREL registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(categories) == 0 {
				return fmt.Errorf("pass --categories or --all")
			}
			if all {
				categories = nil
			}

			a, err := buildApp(true)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.groups.EnsureKnown(ctx); err != nil {
				return err
			}

			if maxProducts == 0 {
				maxProducts = a.cfg.Sync.MaxProducts
			}
			if concurrency == 0 {
				concurrency = a.cfg.Sync.Concurrency
			}

			fetcher := eprel.NewFetcher(a.client, a.cfg.EPREL.RequestDelay, eprel.RetryPolicy{
				MaxAttempts: a.cfg.EPREL.MaxRetries,
				BaseDelay:   a.cfg.EPREL.RetryBaseDelay,
				MaxDelay:    a.cfg.EPREL.RetryMaxDelay,
				Jitter:      true,
			}, a.log)

			orchestrator := syncpkg.NewOrchestrator(
				fetcher,
				a.checkpoints,
				syncpkg.NewProductSink(a.products),
				a.jobs,
				a.groups,
				syncpkg.RunnerConfig{
					PageSize:   a.cfg.EPREL.PageSize,
					MaxItems:   maxProducts,
					RecheckTTL: a.cfg.Sync.RecheckTTL,
				},
				a.log,
			)

			// First signal pauses at the next page boundary; a second one
			// aborts hard through the context.
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			sigCh := make(chan os.Signal, 2)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				a.log.Info("shutdown requested, finishing current pages")
				orchestrator.RequestStop()
				<-sigCh
				cancel()
			}()

			res, err := orchestrator.Run(ctx, categories, syncpkg.Options{
				Resume:      !noResume,
				Concurrency: concurrency,
			})
			if err != nil {
				return err
			}

			fmt.Printf("job %s finished with status %s: %d synced, %d failed (of %d upstream)\n",
				res.JobID, res.Status, res.Synced, res.Failed, res.Total)
			if res.Status == domain.JobStatusFailed {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&categories, "categories", nil, "Product groups to sync (comma separated)")
	cmd.Flags().BoolVar(&all, "all", false, "Sync every known product group")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "Start a fresh job instead of resuming the last one")
	cmd.Flags().IntVar(&maxProducts, "max-products", 0, "Cap on records per category, 0 = unlimited")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Categories synced in parallel")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog totals and the latest job",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(true)
			if err != nil {
				return err
			}

			svc := service.NewStatsService(a.jobs, a.checkpoints, a.products, a.groups)
			stats, err := svc.Overview(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("products stored: %d\n", stats.TotalProducts)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tSTORED\tUPSTREAM")
			upstream := make(map[string]int, len(stats.Groups))
			for _, g := range stats.Groups {
				upstream[g.Code] = g.TotalProducts
			}
			for _, c := range stats.ByCategory {
				fmt.Fprintf(w, "%s\t%d\t%d\n", c.Category, c.Count, upstream[c.Category])
			}
			w.Flush()

			if stats.LatestJob != nil {
				j := stats.LatestJob
				fmt.Printf("latest job: %s (%s) status=%s synced=%d failed=%d\n",
					j.ID, j.Kind, j.Status, j.SyncedProducts, j.FailedProducts)
			}
			return nil
		},
	}
}

func labelsCmd() *cobra.Command {
	var (
		category string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Download energy label PDFs for synced products",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(true)
			if err != nil {
				return err
			}
			if category != "" && !domain.IsKnownGroup(category) {
				return fmt.Errorf("unknown product group %q", category)
			}

			store, err := storage.NewS3Storage(&a.cfg.Storage)
			if err != nil {
				return err
			}
			if err := store.EnsureBucket(cmd.Context()); err != nil {
				return err
			}

			svc := service.NewLabelService(a.products, a.client, store, a.cfg.EPREL.RequestDelay, a.log)
			res, err := svc.Backfill(cmd.Context(), category, limit)
			if err != nil {
				return err
			}
			fmt.Printf("processed %d products: %d uploaded, %d failed\n", res.Processed, res.Uploaded, res.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Restrict to one product group")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum products to process, 0 = all")
	return cmd
}

func groupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List product groups known to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(false)
			if err != nil {
				return err
			}

			groups, err := a.client.ProductGroups(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME")
			for _, g := range groups {
				fmt.Fprintf(w, "%s\t%s\n", g.Code, g.Name)
			}
			return w.Flush()
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check EPREL API reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(false)
			if err != nil {
				return err
			}
			if err := a.client.HealthCheck(cmd.Context()); err != nil {
				return fmt.Errorf("EPREL API unreachable: %w", err)
			}
			fmt.Println("EPREL API reachable")
			return nil
		},
	}
}
