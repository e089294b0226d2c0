// Package commands implements processorctl, a local runner for the registered handlers.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Apurer/go-entity-processors/internal/domains/catalog"
	"github.com/Apurer/go-entity-processors/internal/entitystore/adapters/memory"
	"github.com/Apurer/go-entity-processors/internal/platform/retry"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/scheduling/adapters/inline"
)

// runtime is the in-memory environment a single invocation runs against.
type runtime struct {
	store      *memory.Store
	scheduler  *inline.Scheduler
	dispatcher processing.Dispatcher
}

type rootOptions struct {
	seedFile string
	delay    time.Duration
	leadDays int
	verbose  bool
	env      *runtime
}

func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the processorctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "processorctl",
		Short:        "Run entity processors and criteria against an in-memory store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.build(cmd)
			if err != nil {
				return err
			}
			opts.env = env
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.env == nil {
				return nil
			}
			return opts.env.scheduler.Close()
		},
	}

	root.PersistentFlags().StringVar(&opts.seedFile, "seed", "", "JSON file of related entities created before the run")
	root.PersistentFlags().DurationVar(&opts.delay, "payment-delay", catalog.DefaultOptions().PaymentConfirmationDelay, "delay before auto-confirming started payments")
	root.PersistentFlags().IntVar(&opts.leadDays, "lead-days", catalog.DefaultOptions().ShippingLeadDays, "shipping lead time in days")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log side calls to stderr")

	root.AddCommand(listCmd(opts), processCmd(opts), evaluateCmd(opts))
	return root
}

func (o *rootOptions) build(cmd *cobra.Command) (*runtime, error) {
	level := slog.LevelError
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	store := memory.NewStore(memory.WithTransitions(catalog.Transitions()))
	if o.seedFile != "" {
		raw, err := os.ReadFile(o.seedFile)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		if err := seed(cmd.Context(), store, raw); err != nil {
			return nil, err
		}
	}
	scheduler := inline.NewScheduler(store, inline.WithLogger(logger))
	registry := processing.NewRegistry()
	deps := processing.Deps{
		Store:     store,
		Scheduler: scheduler,
		SideCalls: processing.NewSideCalls(logger, retry.DefaultConfig()),
		Now:       time.Now,
		Logger:    logger,
	}
	if err := catalog.Register(registry, deps,
		catalog.WithPaymentConfirmationDelay(o.delay),
		catalog.WithShippingLeadDays(o.leadDays),
	); err != nil {
		_ = scheduler.Close()
		return nil, err
	}
	return &runtime{store: store, scheduler: scheduler, dispatcher: registry}, nil
}
