package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"audit-sentry/internal/archive"
	"audit-sentry/internal/collector"
	awscol "audit-sentry/internal/collector/aws"
	"audit-sentry/internal/collector/local"
	"audit-sentry/internal/config"
	"audit-sentry/internal/run"
)

func NewCollectCmd() *cobra.Command {
	var cfgPath string
	var output string
	var names []string
	var noAWS bool
	var awsProfile string
	var awsRegion string
	var concurrency int
	var taskTimeout time.Duration
	var runTimeout time.Duration
	var verbose bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run the collectors and bundle the evidence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Output.BaseDir = output
			}
			if awsProfile != "" {
				cfg.AWS.Profile = awsProfile
			}
			if awsRegion != "" {
				cfg.AWS.Region = awsRegion
			}
			if concurrency > 0 {
				cfg.Run.Concurrency = concurrency
			}
			if taskTimeout > 0 {
				cfg.Run.TaskTimeout = taskTimeout
			}

			reg := collector.NewRegistry()
			if err := local.Register(reg); err != nil {
				return err
			}
			if err := awscol.Register(reg, awscol.Options{
				Profile: cfg.AWS.Profile,
				Region:  cfg.AWS.Region,
			}); err != nil {
				return err
			}

			if len(names) > 0 {
				localNames, awsNames, err := partition(reg, names)
				if err != nil {
					return err
				}
				cfg.Collectors.Local = localNames
				cfg.Collectors.AWS = awsNames
			}
			if err := cfg.Validate(reg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if runTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runTimeout)
				defer cancel()
			}

			orch := run.New(reg, archive.TarGz{}, run.Options{
				BaseDir:     cfg.Output.BaseDir,
				LocalNames:  cfg.Collectors.Local,
				AWSNames:    cfg.Collectors.AWS,
				SkipAWS:     noAWS,
				Concurrency: cfg.Run.Concurrency,
				TaskTimeout: cfg.Run.TaskTimeout,
				CancelGrace: cfg.Run.CancelGrace,
				Verbose:     verbose,
				OnProgress:  printProgress,
			})

			res, err := orch.Execute(ctx)
			if err != nil {
				pterm.Error.Printf("Run failed at stage %s: %v\n", res.State, err)
				return err
			}
			printReport(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "Config file (default ./config.yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output base directory (default from config)")
	cmd.Flags().StringSliceVarP(&names, "collectors", "c", nil, "Collectors to run (default from config)")
	cmd.Flags().BoolVar(&noAWS, "no-aws", false, "Skip AWS collectors")
	cmd.Flags().StringVar(&awsProfile, "aws-profile", "", "AWS profile to use (default from config)")
	cmd.Flags().StringVar(&awsRegion, "aws-region", "", "AWS region to use (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Worker pool size (default: host parallelism)")
	cmd.Flags().DurationVar(&taskTimeout, "task-timeout", 0, "Per-collector timeout (default from config)")
	cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Overall run timeout (0 = none)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	return cmd
}

// partition splits an explicit --collectors list by registry category.
func partition(reg *collector.Registry, names []string) (localNames, awsNames []string, err error) {
	for _, name := range names {
		if _, err := reg.Resolve(collector.CategoryLocal, name); err == nil {
			localNames = append(localNames, name)
			continue
		}
		if _, err := reg.Resolve(collector.CategoryAWS, name); err == nil {
			awsNames = append(awsNames, name)
			continue
		}
		return nil, nil, errors.Wrapf(collector.ErrUnknownCollector, "%s", name)
	}
	return localNames, awsNames, nil
}

func printProgress(cat collector.Category, done, total int) {
	pterm.Printf("  [%s] %d/%d collectors complete\n", cat, done, total)
}

func printReport(res run.Result) {
	pterm.Success.Printf("Evidence directory: %s\n", res.OutputDir)
	if res.ArchivePath != "" {
		pterm.Success.Printf("Archive: %s\n", res.ArchivePath)
	} else if res.ArchiveErr != nil {
		pterm.Warning.Printf("Archiving failed (evidence preserved): %v\n", res.ArchiveErr)
	}
	pterm.Printf("local: %d/%d ok, aws: %d/%d ok\n",
		res.Summary.Local.Succeeded, res.Summary.Local.Total,
		res.Summary.AWS.Succeeded, res.Summary.AWS.Total,
	)
	for _, f := range res.Summary.Failures {
		pterm.Warning.Printf("  %s/%s: %s\n", f.Category, f.Name, f.Error)
	}
}
