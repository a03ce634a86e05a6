package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/cache"
	"github.com/uzeed/uzeed/internal/pkg/mail"
)

const (
	// LeadTime is how long before expiry members are reminded.
	LeadTime = 72 * time.Hour
	// Window is the half width around LeadTime; a daily run covers each user once.
	Window = 12 * time.Hour

	claimTTL = 48 * time.Hour
	subject  = "Tu membresía UZEED está por vencer"
)

// Deduper claims a key once. A false result means another run already sent
// the reminder.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDeduper claims keys with SETNX in the shared cache.
type RedisDeduper struct{}

func (RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return cache.SetNX(key, "1", ttl)
}

// Result summarizes one run.
type Result struct {
	Candidates int
	Sent       int
	Skipped    int
	Failed     int
}

// Job emails members whose membership expires in about three days.
type Job struct {
	users  repository.UserRepository
	mailer mail.Sender
	dedup  Deduper
	appURL string
	hour   int
	minute int
	now    func() time.Time
}

func NewJob(users repository.UserRepository, mailer mail.Sender, dedup Deduper, appURL string, hourUTC, minuteUTC int) *Job {
	return &Job{
		users:  users,
		mailer: mailer,
		dedup:  dedup,
		appURL: appURL,
		hour:   hourUTC,
		minute: minuteUTC,
		now:    time.Now,
	}
}

func (j *Job) WithClock(now func() time.Time) *Job {
	j.now = now
	return j
}

func claimKey(userID uint, day time.Time) string {
	return fmt.Sprintf("reminder:membership:%d:%s", userID, day.UTC().Format("2006-01-02"))
}

// RunOnce sends the reminders due at the current time.
func (j *Job) RunOnce(ctx context.Context) (Result, error) {
	now := j.now().UTC()
	target := now.Add(LeadTime)

	users, err := j.users.ListMembershipExpiringBetween(target.Add(-Window), target.Add(Window))
	if err != nil {
		return Result{}, fmt.Errorf("list expiring memberships: %w", err)
	}

	res := Result{Candidates: len(users)}
	for _, u := range users {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if u.MembershipExpiresAt == nil {
			continue
		}

		if j.dedup != nil {
			claimed, err := j.dedup.Claim(ctx, claimKey(u.ID, now), claimTTL)
			if err != nil {
				log.Warnf("[Reminder] Dedup claim for user %d failed, sending anyway: %v", u.ID, err)
			} else if !claimed {
				res.Skipped++
				continue
			}
		}

		body := fmt.Sprintf("Tu membresía vencerá el %s. Entra a %s para renovarla.",
			u.MembershipExpiresAt.UTC().Format("02-01-2006 15:04 UTC"), j.appURL)
		if err := j.mailer.Send(u.Email, subject, body); err != nil {
			log.Errorf("[Reminder] Failed to email user %d: %v", u.ID, err)
			res.Failed++
			continue
		}
		res.Sent++
	}

	log.Infof("[Reminder] Run finished: candidates=%d sent=%d skipped=%d failed=%d",
		res.Candidates, res.Sent, res.Skipped, res.Failed)
	return res, nil
}

// NextRun returns the next daily run time strictly after now.
func NextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run executes once immediately and then daily at the configured UTC time
// until ctx is canceled.
func (j *Job) Run(ctx context.Context) error {
	log.Infof("[Reminder] Scheduler started (daily at %02d:%02d UTC)", j.hour, j.minute)
	if _, err := j.RunOnce(ctx); err != nil {
		log.Errorf("[Reminder] Initial run failed: %v", err)
	}

	for {
		wait := NextRun(j.now(), j.hour, j.minute).Sub(j.now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("[Reminder] Scheduler stopping")
			return nil
		case <-timer.C:
			if _, err := j.RunOnce(ctx); err != nil {
				log.Errorf("[Reminder] Run failed: %v", err)
			}
		}
	}
}
