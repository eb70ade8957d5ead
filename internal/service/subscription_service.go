package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"godlykids/internal/entitlement"
	"godlykids/internal/events"
	"godlykids/internal/models"
	"godlykids/internal/repository"
)

var (
	ErrInvalidWebhookToken = errors.New("invalid webhook token")
	ErrWebhookNotEnabled   = errors.New("webhook secret not configured")
)

// BridgeUpdate is a subscription state change reported by the purchase
// bridge, either through the signed webhook or the reconciliation poll.
type BridgeUpdate struct {
	UserID      int64      `json:"userId"`
	Status      string     `json:"status"`
	Premium     bool       `json:"premium"`
	TrialEndsAt *time.Time `json:"trialEndsAt,omitempty"`
	RenewedAt   *time.Time `json:"renewedAt,omitempty"`
}

// bridgeClaims is the JWT payload the purchase bridge signs webhooks with
type bridgeClaims struct {
	UserID      int64      `json:"userId"`
	Status      string     `json:"status"`
	Premium     bool       `json:"premium"`
	TrialEndsAt *time.Time `json:"trialEndsAt,omitempty"`
	RenewedAt   *time.Time `json:"renewedAt,omitempty"`
	jwt.RegisteredClaims
}

// SubscriptionService keeps the server-side subscription mirror eventually
// consistent with the purchase bridge. Updates apply last-write-wins; premium
// transitions are broadcast so open sessions react without a reload.
type SubscriptionService struct {
	subscriptionRepo *repository.SubscriptionRepository
	cache            entitlement.Cache
	bus              *events.Bus
	webhookSecret    []byte
	pollInterval     time.Duration

	// last entitlement observed per user. The cache TTL can lapse between
	// polls, so flip detection cannot rely on a cached value being present.
	mu        sync.Mutex
	lastKnown map[int64]bool
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(subscriptionRepo *repository.SubscriptionRepository, cache entitlement.Cache, bus *events.Bus, webhookSecret string, pollInterval time.Duration) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		cache:            cache,
		bus:              bus,
		webhookSecret:    []byte(webhookSecret),
		pollInterval:     pollInterval,
		lastKnown:        make(map[int64]bool),
	}
}

// GetSubscription returns the subscription mirror for a user. Accounts that
// never purchased anything get a zero-value "none" subscription.
func (s *SubscriptionService) GetSubscription(userID int64) (*models.Subscription, error) {
	sub, err := s.subscriptionRepo.GetSubscription(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &models.Subscription{
			UserID: userID,
			Status: models.SubscriptionNone,
		}, nil
	}
	return sub, nil
}

// IsPremium reports whether an account has premium access, served from the
// entitlement cache when fresh.
func (s *SubscriptionService) IsPremium(ctx context.Context, userID int64) (bool, error) {
	premium, found, err := s.cache.Get(ctx, userID)
	if err != nil {
		// degraded cache never blocks a premium check
		log.Printf("Warning: entitlement cache read failed for user %d: %v", userID, err)
	} else if found {
		return premium, nil
	}

	sub, err := s.GetSubscription(userID)
	if err != nil {
		return false, err
	}
	premium = sub.IsPremium()

	if err := s.cache.Set(ctx, userID, premium); err != nil {
		log.Printf("Warning: entitlement cache write failed for user %d: %v", userID, err)
	}
	return premium, nil
}

// ApplyUpdate writes a bridge-reported state to the mirror, refreshes the
// entitlement cache, and publishes a premium.changed event when the
// effective entitlement flipped.
func (s *SubscriptionService) ApplyUpdate(ctx context.Context, update BridgeUpdate) error {
	before, err := s.GetSubscription(update.UserID)
	if err != nil {
		return err
	}
	wasPremium := before.IsPremium()

	sub := &models.Subscription{
		UserID:        update.UserID,
		Status:        update.Status,
		Premium:       update.Premium,
		TrialEndsAt:   update.TrialEndsAt,
		RenewedAt:     update.RenewedAt,
		LastCheckedAt: time.Now(),
	}
	if err := s.subscriptionRepo.UpsertSubscription(sub); err != nil {
		return err
	}

	isPremium := sub.IsPremium()
	if err := s.cache.Set(ctx, update.UserID, isPremium); err != nil {
		log.Printf("Warning: entitlement cache write failed for user %d: %v", update.UserID, err)
	}
	s.recordEntitlement(update.UserID, isPremium)

	if wasPremium != isPremium {
		log.Printf("Premium entitlement changed for user %d: %v -> %v", update.UserID, wasPremium, isPremium)
		s.bus.Publish(events.Event{
			Topic:   events.TopicPremiumChanged,
			UserID:  update.UserID,
			Premium: isPremium,
		})
	}
	return nil
}

// VerifyWebhook validates a bridge webhook JWT (HS256) and returns the
// update it carries.
func (s *SubscriptionService) VerifyWebhook(token string) (*BridgeUpdate, error) {
	if len(s.webhookSecret) == 0 {
		return nil, ErrWebhookNotEnabled
	}

	claims := &bridgeClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.webhookSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidWebhookToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidWebhookToken
	}

	return &BridgeUpdate{
		UserID:      claims.UserID,
		Status:      claims.Status,
		Premium:     claims.Premium,
		TrialEndsAt: claims.TrialEndsAt,
		RenewedAt:   claims.RenewedAt,
	}, nil
}

// StartReconciler re-evaluates entitlements for the given users on every
// tick. Trials expire by clock, not by bridge message, so the poll is what
// downgrades a lapsed reverse trial. Runs until the context is cancelled.
func (s *SubscriptionService) StartReconciler(ctx context.Context, userIDs func() ([]int64, error)) {
	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reconcile(ctx, userIDs)
			}
		}
	}()
}

func (s *SubscriptionService) reconcile(ctx context.Context, userIDs func() ([]int64, error)) {
	ids, err := userIDs()
	if err != nil {
		log.Printf("Error listing users for reconciliation: %v", err)
		return
	}

	for _, userID := range ids {
		sub, err := s.subscriptionRepo.GetSubscription(userID)
		if err != nil {
			log.Printf("Error reconciling user %d: %v", userID, err)
			continue
		}
		if sub == nil {
			continue
		}

		isPremium := sub.IsPremium()
		cached, found, err := s.cache.Get(ctx, userID)
		if err != nil || !found || cached != isPremium {
			if err := s.cache.Set(ctx, userID, isPremium); err != nil {
				log.Printf("Warning: entitlement cache write failed for user %d: %v", userID, err)
			}
		}

		s.mu.Lock()
		prev, known := s.lastKnown[userID]
		s.lastKnown[userID] = isPremium
		s.mu.Unlock()

		if known && prev != isPremium {
			log.Printf("Premium entitlement changed for user %d: %v -> %v", userID, prev, isPremium)
			s.bus.Publish(events.Event{
				Topic:   events.TopicPremiumChanged,
				UserID:  userID,
				Premium: isPremium,
			})
		}
	}
}

func (s *SubscriptionService) recordEntitlement(userID int64, premium bool) {
	s.mu.Lock()
	s.lastKnown[userID] = premium
	s.mu.Unlock()
}
