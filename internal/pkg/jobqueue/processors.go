package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/uzeed/uzeed/internal/pkg/mail"
	"github.com/uzeed/uzeed/internal/pkg/storage"
)

// Enqueuer is the part of Queue that producers need.
type Enqueuer interface {
	EnqueueJob(jobType JobType, payload map[string]interface{}) (*Job, error)
}

// QueuedMailer is a mail.Sender that defers delivery to a send_email job, so
// SMTP latency and retries stay off the caller's path.
type QueuedMailer struct {
	Queue Enqueuer
}

func (m QueuedMailer) Send(to, subject, body string) error {
	_, err := m.Queue.EnqueueJob(JobTypeSendEmail, SendEmailJobPayload{To: to, Subject: subject, Body: body}.ToMap())
	return err
}

// EnqueueMediaDeletion schedules removal of stored files after their post is gone.
func EnqueueMediaDeletion(q Enqueuer, postID uint, keys []string) error {
	var clean []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	_, err := q.EnqueueJob(JobTypeDeleteMedia, DeleteMediaJobPayload{PostID: postID, Keys: clean}.ToMap())
	return err
}

// SendEmailHandler delivers send_email jobs through sender.
func SendEmailHandler(sender mail.Sender) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := SendEmailJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid email payload: %w", err)
		}
		if payload.To == "" {
			return errors.New("email job without recipient")
		}
		return sender.Send(payload.To, payload.Subject, payload.Body)
	}
}

// DeleteMediaHandler removes every key of a delete_media job. Keys already
// deleted are removed again without error by both providers, so retries are safe.
func DeleteMediaHandler(p storage.Provider) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := DeleteMediaJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid delete payload: %w", err)
		}
		var errs []error
		for _, key := range payload.Keys {
			if err := p.Delete(ctx, key); err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
				continue
			}
			log.Debugf("[JobQueue] Deleted %s object %s of post %d", p.Name(), key, payload.PostID)
		}
		return errors.Join(errs...)
	}
}
