package router

import (
	"github.com/uzeed/uzeed/app/controllers"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/config"
	"github.com/uzeed/uzeed/internal/pkg/jobqueue"
	"github.com/uzeed/uzeed/internal/pkg/metrics/counter"
	"github.com/uzeed/uzeed/internal/pkg/storage"
)

// Controllers holds every handler set the HTTP surface serves.
type Controllers struct {
	Auth         *controllers.AuthController
	Billing      *controllers.BillingController
	Feed         *controllers.FeedController
	Profile      *controllers.ProfileController
	Creator      *controllers.CreatorController
	Message      *controllers.MessageController
	Notification *controllers.NotificationController
	Service      *controllers.ServiceController
	Admin        *controllers.AdminController
}

// NewControllers wires the controllers to their services. queue may be nil,
// in which case media of deleted posts is left in storage and the admin
// queue endpoints are not served.
func NewControllers(
	cfg *config.Config,
	repos *repository.Repositories,
	billingSvc controllers.BillingService,
	feedSvc controllers.FeedService,
	provider storage.Provider,
	queue *jobqueue.Queue,
) *Controllers {
	var enqueuer jobqueue.Enqueuer
	var admin *controllers.AdminController
	if queue != nil {
		enqueuer = queue
		admin = controllers.NewAdminController(queue)
	}
	return &Controllers{
		Auth:         controllers.NewAuthController(repos.User, cfg.Billing.ShopTrialDays),
		Billing:      controllers.NewBillingController(billingSvc),
		Feed:         controllers.NewFeedController(feedSvc),
		Profile:      controllers.NewProfileController(feedSvc).WithViewCounter(counter.AddProfileView),
		Creator:      controllers.NewCreatorController(repos, provider, enqueuer),
		Message:      controllers.NewMessageController(repos, provider),
		Notification: controllers.NewNotificationController(repos.Notification),
		Service:      controllers.NewServiceController(feedSvc, repos),
		Admin:        admin,
	}
}
