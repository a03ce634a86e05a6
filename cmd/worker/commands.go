package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"github.com/uzeed/uzeed/internal/pkg/jobqueue"
	"github.com/uzeed/uzeed/internal/pkg/metrics/counter"
)

func runCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process jobs, dispatch the outbox and send daily reminders until stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(workers)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			manager := jobqueue.NewManager(d.queue, d.dispatcher(d.queuedMailer()), counter.NewFlusher(counter.DefaultFlushInterval))
			manager.Start()
			defer manager.Stop()

			// Run blocks until ctx is canceled
			return d.reminderJob(d.queuedMailer()).Run(ctx)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", jobqueue.DefaultWorkers, "job queue workers")
	return cmd
}

func onceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Send the membership reminders due now and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(1)
			if err != nil {
				return err
			}
			// one-shot commands have no queue consumer, so mail goes out directly
			res, err := d.reminderJob(d.smtp).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("candidates=%d sent=%d skipped=%d failed=%d\n", res.Candidates, res.Sent, res.Skipped, res.Failed)
			return nil
		},
	}
}

func outboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outbox",
		Short: "Dispatch one batch of pending outbox events and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(1)
			if err != nil {
				return err
			}
			n, err := d.dispatcher(d.smtp).DispatchOnce(cmd.Context())
			if err != nil {
				return err
			}
			log.Infof("[Outbox] Dispatched %d events", n)
			return nil
		},
	}
}

func countersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counters",
		Short: "Flush buffered profile view counters to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(1); err != nil {
				return err
			}
			n, err := counter.FlushAll()
			if err != nil {
				return err
			}
			log.Infof("[Counter] Flushed views of %d profiles", n)
			return nil
		},
	}
}
