package jobs

import (
	"context"
	"log"
	"strconv"
	"time"

	"godlykids/internal/push"
	"godlykids/internal/repository"
	"godlykids/internal/service"
)

// RenewalChecker reconciles every account's subscription against the legacy
// billing API. Users are processed in small batches with a pause in between
// so the aging billing service is never hammered; one user failing is logged
// and skipped, it never stops the sweep.
type RenewalChecker struct {
	userRepo      *repository.UserRepository
	subscriptions *service.SubscriptionService
	billing       *BillingClient
	emailService  *service.EmailService
	pushClient    *push.Client
	batchSize     int
	batchDelay    time.Duration
}

// NewRenewalChecker creates a new renewal checker
func NewRenewalChecker(userRepo *repository.UserRepository, subscriptions *service.SubscriptionService, billing *BillingClient, emailService *service.EmailService, pushClient *push.Client, batchSize int, batchDelay time.Duration) *RenewalChecker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &RenewalChecker{
		userRepo:      userRepo,
		subscriptions: subscriptions,
		billing:       billing,
		emailService:  emailService,
		pushClient:    pushClient,
		batchSize:     batchSize,
		batchDelay:    batchDelay,
	}
}

// Run sweeps all accounts once. Called by the scheduler.
func (r *RenewalChecker) Run(ctx context.Context) {
	if !r.billing.IsEnabled() {
		log.Println("Renewal check skipped: billing API not configured")
		return
	}

	userIDs, err := r.userRepo.GetAllUserIDs()
	if err != nil {
		log.Printf("Error listing users for renewal check: %v", err)
		return
	}

	log.Printf("Renewal check started: %d users in batches of %d", len(userIDs), r.batchSize)
	checked, renewed := 0, 0

	for start := 0; start < len(userIDs); start += r.batchSize {
		if ctx.Err() != nil {
			log.Printf("Renewal check cancelled after %d users", checked)
			return
		}

		end := start + r.batchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}

		for _, userID := range userIDs[start:end] {
			didRenew, err := r.checkUser(ctx, userID)
			if err != nil {
				log.Printf("Error checking renewal for user %d: %v", userID, err)
				continue
			}
			checked++
			if didRenew {
				renewed++
			}
		}

		if end < len(userIDs) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.batchDelay):
			}
		}
	}

	log.Printf("Renewal check finished: %d users checked, %d renewals", checked, renewed)
}

// checkUser reconciles one account and reports whether a new renewal landed
func (r *RenewalChecker) checkUser(ctx context.Context, userID int64) (bool, error) {
	before, err := r.subscriptions.GetSubscription(userID)
	if err != nil {
		return false, err
	}

	status, err := r.billing.FetchStatus(ctx, userID)
	if err != nil {
		return false, err
	}

	err = r.subscriptions.ApplyUpdate(ctx, service.BridgeUpdate{
		UserID:      userID,
		Status:      status.Status,
		Premium:     status.Premium,
		TrialEndsAt: status.TrialEndsAt,
		RenewedAt:   status.RenewedAt,
	})
	if err != nil {
		return false, err
	}

	if !isNewRenewal(before.RenewedAt, status.RenewedAt) {
		return false, nil
	}

	r.notifyRenewal(ctx, userID, *status.RenewedAt)
	return true, nil
}

func isNewRenewal(before, after *time.Time) bool {
	if after == nil {
		return false
	}
	return before == nil || after.After(*before)
}

// notifyRenewal tells the parent their renewal went through, best-effort
func (r *RenewalChecker) notifyRenewal(ctx context.Context, userID int64, renewedAt time.Time) {
	user, err := r.userRepo.GetUserByID(userID)
	if err != nil || user == nil {
		log.Printf("Warning: cannot notify user %d of renewal: %v", userID, err)
		return
	}

	if r.emailService != nil && r.emailService.IsEnabled() {
		if err := r.emailService.SendRenewalReminderEmail(ctx, user.Email, user.Name, renewedAt); err != nil {
			log.Printf("Warning: failed to send renewal email to %s: %v", user.Email, err)
		}
	}

	if r.pushClient != nil && r.pushClient.IsEnabled() {
		err := r.pushClient.Notify(ctx, strconv.FormatInt(userID, 10),
			"Subscription renewed",
			"Your GodlyKids subscription has renewed. Happy exploring!")
		if err != nil {
			log.Printf("Warning: failed to send renewal push to user %d: %v", userID, err)
		}
	}
}
