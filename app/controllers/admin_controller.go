package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/uzeed/uzeed/internal/pkg/jobqueue"
)

// QueueInspector reads job queue state for the admin endpoints.
type QueueInspector interface {
	GetJob(ctx context.Context, jobID string) (*jobqueue.Job, error)
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
}

// AdminController exposes background job state to admins
type AdminController struct {
	queue QueueInspector
}

func NewAdminController(queue QueueInspector) *AdminController {
	return &AdminController{queue: queue}
}

// HandleQueueStats returns job counters and the pending/processing list sizes.
func (ac *AdminController) HandleQueueStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	stats, err := ac.queue.GetJobStats(ctx)
	if err != nil {
		return err
	}
	pending, err := ac.queue.GetQueueSize(ctx)
	if err != nil {
		return err
	}
	processing, err := ac.queue.GetProcessingSize(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"stats":      stats,
		"pending":    pending,
		"processing": processing,
	})
}

func (ac *AdminController) HandleQueueJob(c *fiber.Ctx) error {
	job, err := ac.queue.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errorJSON(c, fiber.StatusNotFound, "JOB_NOT_FOUND")
		}
		return err
	}
	return c.JSON(fiber.Map{"job": job})
}
