package main

import (
	"context"
	"fmt"

	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/cache"
	"github.com/uzeed/uzeed/internal/pkg/config"
	"github.com/uzeed/uzeed/internal/pkg/database"
	"github.com/uzeed/uzeed/internal/pkg/env"
	"github.com/uzeed/uzeed/internal/pkg/jobqueue"
	"github.com/uzeed/uzeed/internal/pkg/mail"
	"github.com/uzeed/uzeed/internal/pkg/outbox"
	"github.com/uzeed/uzeed/internal/pkg/reminder"
	"github.com/uzeed/uzeed/internal/pkg/storage"
)

// deps is everything the worker commands share.
type deps struct {
	cfg   *config.Config
	repos *repository.Repositories
	queue *jobqueue.Queue
	smtp  mail.Sender
}

func setup(workers int) (*deps, error) {
	env.SetupEnvFile()
	cfg := config.Load()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	provider, err := storage.New(context.Background(), cfg.Storage, cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	smtp := mail.NewSMTPMailer(cfg.Mail)
	queue := jobqueue.NewQueue(workers)
	queue.Handle(jobqueue.JobTypeSendEmail, jobqueue.SendEmailHandler(smtp))
	queue.Handle(jobqueue.JobTypeDeleteMedia, jobqueue.DeleteMediaHandler(provider))

	return &deps{cfg: cfg, repos: repos, queue: queue, smtp: smtp}, nil
}

// queuedMailer hands emails to the job queue so SMTP failures are retried.
func (d *deps) queuedMailer() mail.Sender {
	return jobqueue.QueuedMailer{Queue: d.queue}
}

func (d *deps) dispatcher(mailer mail.Sender) *outbox.Dispatcher {
	return outbox.NewDispatcher(d.repos, mailer,
		outbox.WithWorkers(d.cfg.Worker.OutboxWorkers),
		outbox.WithInterval(d.cfg.Worker.OutboxInterval),
	)
}

func (d *deps) reminderJob(mailer mail.Sender) *reminder.Job {
	return reminder.NewJob(d.repos.User, mailer, reminder.RedisDeduper{}, d.cfg.AppURL,
		d.cfg.Worker.ReminderHourUTC, d.cfg.Worker.ReminderMinuteUTC)
}
