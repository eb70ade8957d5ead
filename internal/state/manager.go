// Package state is the single source of truth for each session's active
// profile: its coin balance, cosmetic loadout and item sets. Mutations hit
// memory first and are persisted by a short debounced flush that coalesces
// rapid changes into one transaction; switching profiles always flushes the
// outgoing profile synchronously before the incoming one is loaded.
package state

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"godlykids/internal/database"
	"godlykids/internal/events"
	"godlykids/internal/models"
	"godlykids/internal/repository"
	"godlykids/internal/validation"
)

var (
	ErrNoActiveProfile     = errors.New("no active profile for session")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientCoins   = errors.New("insufficient coins")
	ErrPremiumRequired     = errors.New("item requires an active subscription")
	ErrOwnCode             = errors.New("cannot redeem your own code")
	ErrCodeAlreadyRedeemed = errors.New("code already redeemed")
	ErrUnknownSlot         = errors.New("unknown avatar slot")
	ErrSlotNotEquipped     = errors.New("nothing equipped in slot")
	ErrItemNotOwned        = errors.New("item not owned")
)

// DefaultFlushDelay coalesces rapid state changes before persisting.
// Purely a write-amplification reduction, not a correctness mechanism.
const DefaultFlushDelay = 100 * time.Millisecond

// Options configures the state manager
type Options struct {
	StarterCoins     int
	CodeRewardCoins  int
	TransactionLimit int
	FlushDelay       time.Duration
}

// Manager tracks the active profile per session and owns its persistence
type Manager struct {
	db          *database.DB
	economyRepo *repository.EconomyRepository
	avatarRepo  *repository.AvatarRepository
	bus         *events.Bus
	opts        Options

	mu     sync.Mutex
	active map[string]*Active // keyed by session ID
}

// Active is the in-memory state of one session's active profile
type Active struct {
	mu      sync.Mutex
	profile *models.Profile
	economy *models.EconomySnapshot
	avatar  *models.AvatarConfig

	// mutations since the last flush
	pendingTxns []models.Transaction
	newItems    []string
	newVoices   []string
	newCodes    []string
	coinsDirty  bool
	avatarDirty bool
	flushTimer  *time.Timer
}

// View is a read-only copy of an active profile's state, safe to hand to
// handlers while mutations continue.
type View struct {
	Profile models.Profile          `json:"profile"`
	Economy models.EconomySnapshot  `json:"economy"`
	Avatar  models.AvatarConfig     `json:"avatar"`
}

// NewManager creates a new state manager
func NewManager(db *database.DB, economyRepo *repository.EconomyRepository, avatarRepo *repository.AvatarRepository, bus *events.Bus, opts Options) *Manager {
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = DefaultFlushDelay
	}
	if opts.TransactionLimit <= 0 {
		opts.TransactionLimit = 100
	}
	return &Manager{
		db:          db,
		economyRepo: economyRepo,
		avatarRepo:  avatarRepo,
		bus:         bus,
		opts:        opts,
		active:      make(map[string]*Active),
	}
}

// Switch makes profile the active profile for the session. The outgoing
// profile's state is flushed synchronously first, then the incoming
// profile's snapshot and avatar are loaded, created with starter defaults on
// first activation. Listeners are notified through the event bus.
func (m *Manager) Switch(sessionID string, profile *models.Profile) (*View, error) {
	m.mu.Lock()
	outgoing := m.active[sessionID]
	m.mu.Unlock()

	if outgoing != nil {
		if err := m.flush(outgoing); err != nil {
			return nil, fmt.Errorf("failed to flush outgoing profile: %w", err)
		}
	}

	economy, err := m.economyRepo.GetSnapshot(profile.ID, m.opts.TransactionLimit)
	if err != nil {
		return nil, err
	}
	if economy == nil {
		economy, err = m.economyRepo.CreateDefault(profile.ID, m.opts.StarterCoins)
		if err != nil {
			return nil, err
		}
	}

	avatar, err := m.avatarRepo.GetConfig(profile.ID)
	if err != nil {
		return nil, err
	}
	if avatar == nil {
		avatar = models.DefaultAvatarConfig(profile.ID)
		if err := m.avatarRepo.SaveConfig(avatar); err != nil {
			return nil, err
		}
	}

	st := &Active{
		profile: profile,
		economy: economy,
		avatar:  avatar,
	}

	m.mu.Lock()
	m.active[sessionID] = st
	m.mu.Unlock()

	m.bus.Publish(events.Event{
		Topic:     events.TopicProfileSwitched,
		SessionID: sessionID,
		ProfileID: profile.ID,
	})

	return st.view(), nil
}

// Deactivate flushes and drops the session's active state (logout)
func (m *Manager) Deactivate(sessionID string) error {
	m.mu.Lock()
	st := m.active[sessionID]
	delete(m.active, sessionID)
	m.mu.Unlock()

	if st == nil {
		return nil
	}
	return m.flush(st)
}

// DeactivateProfile flushes and drops every session currently bound to the
// profile, whichever cookie it was activated under. Destructive per-profile
// operations call this first so no live session can write the old state back
// afterwards.
func (m *Manager) DeactivateProfile(profileID int64) {
	m.mu.Lock()
	var states []*Active
	for sessionID, st := range m.active {
		if st.profile.ID == profileID {
			delete(m.active, sessionID)
			states = append(states, st)
		}
	}
	m.mu.Unlock()

	for _, st := range states {
		if err := m.flush(st); err != nil {
			log.Printf("Error flushing profile state: %v", err)
		}
	}
}

// Get returns a copy of the session's active state
func (m *Manager) Get(sessionID string) (*View, error) {
	st, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.viewLocked(), nil
}

// AddCoins grants coins to the active profile. Always succeeds for a
// positive amount; the transaction log is capped at the configured limit,
// oldest entries dropped silently.
func (m *Manager) AddCoins(sessionID string, amount int, reason, source string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	st, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.addCoinsLocked(amount, reason, source, m.opts.TransactionLimit)
	m.scheduleFlushLocked(st)
	return nil
}

// SpendCoins debits coins from the active profile. Returns false without
// mutating anything when the balance is too low.
func (m *Manager) SpendCoins(sessionID string, amount int, reason string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	st, err := m.lookup(sessionID)
	if err != nil {
		return false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.economy.Coins < amount {
		return false, nil
	}
	st.spendCoinsLocked(amount, reason, m.opts.TransactionLimit)
	m.scheduleFlushLocked(st)
	return true, nil
}

// RedeemCode redeems a referral/reward code for the fixed coin reward.
// Codes are uppercase-normalized and format-checked only; validation is
// client-trusted, not cryptographic. The caller passes the session owner's
// own referral code so self-redemption can be rejected.
func (m *Manager) RedeemCode(sessionID, code, ownReferralCode string) (int, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := validation.ValidateRedeemCode(code); err != nil {
		return 0, err
	}
	if code == strings.ToUpper(ownReferralCode) {
		return 0, ErrOwnCode
	}

	st, err := m.lookup(sessionID)
	if err != nil {
		return 0, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.economy.HasRedeemed(code) {
		return 0, ErrCodeAlreadyRedeemed
	}

	st.addCoinsLocked(m.opts.CodeRewardCoins, "code redeemed", code, m.opts.TransactionLimit)
	st.economy.RedeemedCodes = append(st.economy.RedeemedCodes, code)
	st.newCodes = append(st.newCodes, code)
	m.scheduleFlushLocked(st)
	return m.opts.CodeRewardCoins, nil
}

// PurchaseItem buys a catalog item for the active profile. A no-op when the
// item is already owned. Premium items require hasPremium. The debit and the
// grant land in the same flush transaction.
func (m *Manager) PurchaseItem(sessionID string, item *models.ShopItem, hasPremium bool) error {
	st, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if item.Type == models.ItemTypeVoice {
		if st.economy.HasVoice(item.ID) {
			return nil
		}
	} else if st.economy.OwnsItem(item.ID) {
		return nil
	}

	if item.IsPremium && !hasPremium {
		return ErrPremiumRequired
	}
	if st.economy.Coins < item.Price {
		return ErrInsufficientCoins
	}

	if item.Price > 0 {
		st.spendCoinsLocked(item.Price, "purchase: "+item.Name, m.opts.TransactionLimit)
	}

	if item.Type == models.ItemTypeVoice {
		st.economy.UnlockedVoiceIDs = append(st.economy.UnlockedVoiceIDs, item.ID)
		st.newVoices = append(st.newVoices, item.ID)
	} else {
		st.economy.OwnedItemIDs = append(st.economy.OwnedItemIDs, item.ID)
		st.newItems = append(st.newItems, item.ID)
	}

	m.scheduleFlushLocked(st)
	return nil
}

// EquipSlot equips an owned item value into a cosmetic slot. Catalog item
// IDs double as slot values, so ownership is checked against the owned set.
func (m *Manager) EquipSlot(sessionID, slot, value string) error {
	if !models.IsAvatarSlot(slot) {
		return ErrUnknownSlot
	}
	st, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.economy.OwnsItem(value) {
		return ErrItemNotOwned
	}

	st.avatar.Equipped[slot] = value
	if _, ok := st.avatar.Poses[slot]; !ok {
		st.avatar.Poses[slot] = models.PartPose{Scale: 1}
	}
	st.avatar.UpdatedAt = time.Now()
	st.avatarDirty = true
	m.scheduleFlushLocked(st)
	return nil
}

// UnequipSlot clears a cosmetic slot. The head slot always falls back to the
// default head rather than going empty.
func (m *Manager) UnequipSlot(sessionID, slot string) error {
	if !models.IsAvatarSlot(slot) {
		return ErrUnknownSlot
	}
	st, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if slot == models.SlotHead {
		st.avatar.Equipped[slot] = models.DefaultHead
	} else {
		delete(st.avatar.Equipped, slot)
		delete(st.avatar.Poses, slot)
	}
	st.avatar.UpdatedAt = time.Now()
	st.avatarDirty = true
	m.scheduleFlushLocked(st)
	return nil
}

// SetPartPose positions an equipped cosmetic. Scale is clamped to the
// allowed range and rotation normalized to [0, 360). Returns the pose as
// stored.
func (m *Manager) SetPartPose(sessionID, slot string, pose models.PartPose) (models.PartPose, error) {
	if !models.IsAvatarSlot(slot) {
		return models.PartPose{}, ErrUnknownSlot
	}
	st, err := m.lookup(sessionID)
	if err != nil {
		return models.PartPose{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.avatar.Equipped[slot]; !ok {
		return models.PartPose{}, ErrSlotNotEquipped
	}

	pose.Scale = models.ClampScale(pose.Scale)
	pose.Rotation = models.NormalizeRotation(pose.Rotation)
	st.avatar.Poses[slot] = pose
	st.avatar.UpdatedAt = time.Now()
	st.avatarDirty = true
	m.scheduleFlushLocked(st)
	return pose, nil
}

// ResetAvatar restores the default loadout
func (m *Manager) ResetAvatar(sessionID string) error {
	st, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.avatar = models.DefaultAvatarConfig(st.profile.ID)
	st.avatarDirty = true
	m.scheduleFlushLocked(st)
	return nil
}

// Flush forces the session's pending state to disk immediately
func (m *Manager) Flush(sessionID string) error {
	st, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return m.flush(st)
}

// FlushAll flushes every active session, used during shutdown
func (m *Manager) FlushAll() {
	m.mu.Lock()
	states := make([]*Active, 0, len(m.active))
	for _, st := range m.active {
		states = append(states, st)
	}
	m.mu.Unlock()

	for _, st := range states {
		if err := m.flush(st); err != nil {
			log.Printf("Error flushing profile state: %v", err)
		}
	}
}

func (m *Manager) lookup(sessionID string) (*Active, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.active[sessionID]
	if !ok {
		return nil, ErrNoActiveProfile
	}
	return st, nil
}

// scheduleFlushLocked arms (or re-arms) the debounce timer. Caller holds st.mu.
func (m *Manager) scheduleFlushLocked(st *Active) {
	if st.flushTimer != nil {
		st.flushTimer.Reset(m.opts.FlushDelay)
		return
	}
	st.flushTimer = time.AfterFunc(m.opts.FlushDelay, func() {
		if err := m.flush(st); err != nil {
			log.Printf("Error flushing profile state: %v", err)
		}
	})
}

func (m *Manager) flush(st *Active) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return m.flushLocked(st)
}

// flushLocked writes all pending mutations in one transaction. Caller holds st.mu.
func (m *Manager) flushLocked(st *Active) error {
	if st.flushTimer != nil {
		st.flushTimer.Stop()
		st.flushTimer = nil
	}
	if !st.coinsDirty && !st.avatarDirty &&
		len(st.pendingTxns) == 0 && len(st.newItems) == 0 &&
		len(st.newVoices) == 0 && len(st.newCodes) == 0 {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin flush transaction: %w", err)
	}
	defer tx.Rollback()

	eco := m.economyRepo.WithTx(tx)
	profileID := st.profile.ID

	if st.coinsDirty {
		if err := eco.UpdateCoins(profileID, st.economy.Coins); err != nil {
			return err
		}
	}
	for _, txn := range st.pendingTxns {
		if _, err := eco.InsertTransaction(profileID, txn.Amount, txn.Reason, txn.Source); err != nil {
			return err
		}
	}
	if len(st.pendingTxns) > 0 {
		if err := eco.TruncateTransactions(profileID, m.opts.TransactionLimit); err != nil {
			return err
		}
	}
	for _, itemID := range st.newItems {
		if err := eco.AddOwnedItem(profileID, itemID); err != nil {
			return err
		}
	}
	for _, voiceID := range st.newVoices {
		if err := eco.AddUnlockedVoice(profileID, voiceID); err != nil {
			return err
		}
	}
	for _, code := range st.newCodes {
		if err := eco.AddRedeemedCode(profileID, code); err != nil {
			return err
		}
	}
	if st.avatarDirty {
		if err := m.avatarRepo.WithTx(tx).SaveConfig(st.avatar); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flush transaction: %w", err)
	}

	st.pendingTxns = nil
	st.newItems = nil
	st.newVoices = nil
	st.newCodes = nil
	st.coinsDirty = false
	st.avatarDirty = false
	return nil
}

// addCoinsLocked credits the balance and prepends the transaction. Caller holds st.mu.
func (st *Active) addCoinsLocked(amount int, reason, source string, limit int) {
	st.economy.Coins += amount
	st.appendTxnLocked(models.Transaction{
		ProfileID: st.profile.ID,
		Amount:    amount,
		Reason:    reason,
		Source:    source,
		CreatedAt: time.Now(),
	}, limit)
	st.coinsDirty = true
}

// spendCoinsLocked debits the balance. Caller holds st.mu and has checked funds.
func (st *Active) spendCoinsLocked(amount int, reason string, limit int) {
	st.economy.Coins -= amount
	st.appendTxnLocked(models.Transaction{
		ProfileID: st.profile.ID,
		Amount:    -amount,
		Reason:    reason,
		Source:    "spend",
		CreatedAt: time.Now(),
	}, limit)
	st.coinsDirty = true
}

func (st *Active) appendTxnLocked(txn models.Transaction, limit int) {
	// newest first
	st.economy.Transactions = append([]models.Transaction{txn}, st.economy.Transactions...)
	if len(st.economy.Transactions) > limit {
		st.economy.Transactions = st.economy.Transactions[:limit]
	}
	st.pendingTxns = append(st.pendingTxns, txn)
	st.economy.UpdatedAt = txn.CreatedAt
}

func (st *Active) view() *View {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.viewLocked()
}

// viewLocked deep-copies the state so handlers never share slices or maps
// with the live snapshot. Caller holds st.mu.
func (st *Active) viewLocked() *View {
	v := &View{
		Profile: *st.profile,
		Economy: *st.economy,
		Avatar:  *st.avatar,
	}
	v.Economy.Transactions = append([]models.Transaction(nil), st.economy.Transactions...)
	v.Economy.OwnedItemIDs = append([]string(nil), st.economy.OwnedItemIDs...)
	v.Economy.UnlockedVoiceIDs = append([]string(nil), st.economy.UnlockedVoiceIDs...)
	v.Economy.RedeemedCodes = append([]string(nil), st.economy.RedeemedCodes...)
	v.Avatar.Equipped = make(map[string]string, len(st.avatar.Equipped))
	for k, val := range st.avatar.Equipped {
		v.Avatar.Equipped[k] = val
	}
	v.Avatar.Poses = make(map[string]models.PartPose, len(st.avatar.Poses))
	for k, pose := range st.avatar.Poses {
		v.Avatar.Poses[k] = pose
	}
	return v
}
