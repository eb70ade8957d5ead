package state

import (
	"path/filepath"
	"testing"
	"time"

	"godlykids/internal/database"
	"godlykids/internal/events"
	"godlykids/internal/models"
	"godlykids/internal/repository"
)

func setupTestManager(t *testing.T) (*Manager, *database.DB, *models.Profile) {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	userID, err := db.ExecReturningID(
		"INSERT INTO users (email, password_hash, name, referral_code) VALUES (?, ?, ?, ?)",
		"parent@example.com", "hash", "Parent", "PARENT-CODE")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	profileID, err := db.ExecReturningID(
		"INSERT INTO profiles (user_id, kind, name, position) VALUES (?, 'kid', 'Noah', 0)",
		userID)
	if err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}

	profile := &models.Profile{ID: profileID, UserID: userID, Kind: models.ProfileKindKid, Name: "Noah"}

	manager := NewManager(db,
		repository.NewEconomyRepository(db),
		repository.NewAvatarRepository(db),
		events.NewBus(),
		Options{
			StarterCoins:     500,
			CodeRewardCoins:  100,
			TransactionLimit: 100,
			FlushDelay:       10 * time.Millisecond,
		})
	return manager, db, profile
}

const testSession = "session-1"

func activate(t *testing.T, m *Manager, profile *models.Profile) *View {
	t.Helper()
	view, err := m.Switch(testSession, profile)
	if err != nil {
		t.Fatalf("Failed to switch profile: %v", err)
	}
	return view
}

func TestFirstActivationGrantsStarterDefaults(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	view := activate(t, manager, profile)

	if view.Economy.Coins != 500 {
		t.Errorf("Expected 500 starter coins, got %d", view.Economy.Coins)
	}
	if len(view.Economy.Transactions) != 1 {
		t.Fatalf("Expected 1 welcome transaction, got %d", len(view.Economy.Transactions))
	}
	if view.Economy.Transactions[0].Reason != "welcome" {
		t.Errorf("Expected welcome transaction, got %q", view.Economy.Transactions[0].Reason)
	}
	if !view.Economy.OwnsItem(models.DefaultHead) {
		t.Error("Expected new profile to own the default head")
	}
	if view.Avatar.Equipped[models.SlotHead] != models.DefaultHead {
		t.Errorf("Expected default head equipped, got %q", view.Avatar.Equipped[models.SlotHead])
	}
}

func TestAddAndSpendCoins(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	if err := manager.AddCoins(testSession, 50, "quiz reward", "quiz"); err != nil {
		t.Fatalf("Failed to add coins: %v", err)
	}

	ok, err := manager.SpendCoins(testSession, 200, "purchase")
	if err != nil {
		t.Fatalf("Failed to spend coins: %v", err)
	}
	if !ok {
		t.Fatal("Expected spend to succeed")
	}

	view, err := manager.Get(testSession)
	if err != nil {
		t.Fatalf("Failed to get state: %v", err)
	}
	if view.Economy.Coins != 350 {
		t.Errorf("Expected balance 350, got %d", view.Economy.Coins)
	}
	// newest first
	if view.Economy.Transactions[0].Amount != -200 {
		t.Errorf("Expected newest transaction -200, got %d", view.Economy.Transactions[0].Amount)
	}
}

func TestSpendInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	ok, err := manager.SpendCoins(testSession, 501, "too expensive")
	if err != nil {
		t.Fatalf("Failed to spend coins: %v", err)
	}
	if ok {
		t.Fatal("Expected spend to be refused")
	}

	view, _ := manager.Get(testSession)
	if view.Economy.Coins != 500 {
		t.Errorf("Expected balance unchanged at 500, got %d", view.Economy.Coins)
	}
	if len(view.Economy.Transactions) != 1 {
		t.Errorf("Expected no transaction recorded, got %d", len(view.Economy.Transactions))
	}
}

func TestAddCoinsRejectsNonPositiveAmounts(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	for _, amount := range []int{0, -10} {
		if err := manager.AddCoins(testSession, amount, "bad", "test"); err != ErrInvalidAmount {
			t.Errorf("AddCoins(%d): expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestRedeemCode(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	reward, err := manager.RedeemCode(testSession, "friend-2024", "PARENT-CODE")
	if err != nil {
		t.Fatalf("Failed to redeem code: %v", err)
	}
	if reward != 100 {
		t.Errorf("Expected reward 100, got %d", reward)
	}

	view, _ := manager.Get(testSession)
	if view.Economy.Coins != 600 {
		t.Errorf("Expected balance 600, got %d", view.Economy.Coins)
	}
	// lowercase input is normalized before storage
	if !view.Economy.HasRedeemed("FRIEND-2024") {
		t.Error("Expected code recorded uppercase")
	}
}

func TestRedeemCodeRejectsDuplicate(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	if _, err := manager.RedeemCode(testSession, "FRIEND-2024", "PARENT-CODE"); err != nil {
		t.Fatalf("Failed to redeem code: %v", err)
	}
	if _, err := manager.RedeemCode(testSession, "friend-2024", "PARENT-CODE"); err != ErrCodeAlreadyRedeemed {
		t.Errorf("Expected ErrCodeAlreadyRedeemed, got %v", err)
	}

	view, _ := manager.Get(testSession)
	if view.Economy.Coins != 600 {
		t.Errorf("Expected single reward, balance 600, got %d", view.Economy.Coins)
	}
}

func TestRedeemCodeRejectsOwnReferralCode(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	if _, err := manager.RedeemCode(testSession, "parent-code", "PARENT-CODE"); err != ErrOwnCode {
		t.Errorf("Expected ErrOwnCode, got %v", err)
	}
}

func TestRedeemCodeRejectsBadFormat(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	for _, code := range []string{"", "ab", "HAS SPACE", "-LEADING", "TRAILING-"} {
		if _, err := manager.RedeemCode(testSession, code, "PARENT-CODE"); err == nil {
			t.Errorf("Expected format error for %q", code)
		}
	}
}

func TestPurchaseItem(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	item := &models.ShopItem{ID: "hat-crown", Name: "Crown", Price: 150, Type: models.ItemTypeHat}
	if err := manager.PurchaseItem(testSession, item, false); err != nil {
		t.Fatalf("Failed to purchase item: %v", err)
	}

	view, _ := manager.Get(testSession)
	if view.Economy.Coins != 350 {
		t.Errorf("Expected balance 350, got %d", view.Economy.Coins)
	}
	if !view.Economy.OwnsItem("hat-crown") {
		t.Error("Expected item owned after purchase")
	}
}

func TestPurchaseItemIsIdempotent(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	item := &models.ShopItem{ID: "hat-crown", Name: "Crown", Price: 150, Type: models.ItemTypeHat}
	if err := manager.PurchaseItem(testSession, item, false); err != nil {
		t.Fatalf("Failed to purchase item: %v", err)
	}
	// buying again must not charge twice
	if err := manager.PurchaseItem(testSession, item, false); err != nil {
		t.Fatalf("Repeat purchase should be a no-op, got %v", err)
	}

	view, _ := manager.Get(testSession)
	if view.Economy.Coins != 350 {
		t.Errorf("Expected single charge, balance 350, got %d", view.Economy.Coins)
	}
}

func TestPurchaseItemPremiumGate(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	item := &models.ShopItem{ID: "frame-gold", Name: "Gold Frame", Price: 100, Type: models.ItemTypeFrame, IsPremium: true}

	if err := manager.PurchaseItem(testSession, item, false); err != ErrPremiumRequired {
		t.Errorf("Expected ErrPremiumRequired, got %v", err)
	}
	if err := manager.PurchaseItem(testSession, item, true); err != nil {
		t.Errorf("Expected premium purchase to succeed, got %v", err)
	}
}

func TestPurchaseItemInsufficientCoins(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	item := &models.ShopItem{ID: "body-armor", Name: "Armor", Price: 9999, Type: models.ItemTypeBody}
	if err := manager.PurchaseItem(testSession, item, false); err != ErrInsufficientCoins {
		t.Errorf("Expected ErrInsufficientCoins, got %v", err)
	}

	view, _ := manager.Get(testSession)
	if view.Economy.Coins != 500 {
		t.Errorf("Expected balance unchanged at 500, got %d", view.Economy.Coins)
	}
}

func TestPurchaseVoiceUnlocksVoice(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	voice := &models.ShopItem{ID: "voice-storyteller", Name: "Storyteller", Price: 200, Type: models.ItemTypeVoice}
	if err := manager.PurchaseItem(testSession, voice, false); err != nil {
		t.Fatalf("Failed to purchase voice: %v", err)
	}

	view, _ := manager.Get(testSession)
	if !view.Economy.HasVoice("voice-storyteller") {
		t.Error("Expected voice unlocked after purchase")
	}
	if view.Economy.OwnsItem("voice-storyteller") {
		t.Error("Voice should not appear in the cosmetic owned set")
	}
}

func TestTransactionLogCappedAtLimit(t *testing.T) {
	manager, db, profile := setupTestManager(t)
	activate(t, manager, profile)

	for i := 0; i < 120; i++ {
		if err := manager.AddCoins(testSession, 1, "drip", "test"); err != nil {
			t.Fatalf("Failed to add coins: %v", err)
		}
	}

	view, _ := manager.Get(testSession)
	if len(view.Economy.Transactions) != 100 {
		t.Errorf("Expected in-memory log capped at 100, got %d", len(view.Economy.Transactions))
	}

	if err := manager.Flush(testSession); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM transactions WHERE profile_id = ?", profile.ID).Scan(&count); err != nil {
		t.Fatalf("Failed to count transactions: %v", err)
	}
	if count != 100 {
		t.Errorf("Expected stored log truncated to 100, got %d", count)
	}
}

func TestEquipSlotRequiresOwnership(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	if err := manager.EquipSlot(testSession, models.SlotHat, "hat-crown"); err != ErrItemNotOwned {
		t.Errorf("Expected ErrItemNotOwned, got %v", err)
	}

	item := &models.ShopItem{ID: "hat-crown", Name: "Crown", Price: 150, Type: models.ItemTypeHat}
	if err := manager.PurchaseItem(testSession, item, false); err != nil {
		t.Fatalf("Failed to purchase item: %v", err)
	}
	if err := manager.EquipSlot(testSession, models.SlotHat, "hat-crown"); err != nil {
		t.Fatalf("Failed to equip owned item: %v", err)
	}

	view, _ := manager.Get(testSession)
	if view.Avatar.Equipped[models.SlotHat] != "hat-crown" {
		t.Errorf("Expected hat-crown equipped, got %q", view.Avatar.Equipped[models.SlotHat])
	}
}

func TestEquipSlotRejectsUnknownSlot(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	if err := manager.EquipSlot(testSession, "tail", models.DefaultHead); err != ErrUnknownSlot {
		t.Errorf("Expected ErrUnknownSlot, got %v", err)
	}
}

func TestUnequipHeadFallsBackToDefault(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	if err := manager.UnequipSlot(testSession, models.SlotHead); err != nil {
		t.Fatalf("Failed to unequip head: %v", err)
	}

	view, _ := manager.Get(testSession)
	if view.Avatar.Equipped[models.SlotHead] != models.DefaultHead {
		t.Errorf("Expected head to fall back to default, got %q", view.Avatar.Equipped[models.SlotHead])
	}
}

func TestSetPartPoseClampsAndNormalizes(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	tests := []struct {
		name         string
		in           models.PartPose
		wantScale    float64
		wantRotation float64
	}{
		{"scale too small", models.PartPose{Scale: 0.1, Rotation: 45}, 0.5, 45},
		{"scale too large", models.PartPose{Scale: 5, Rotation: 90}, 2.0, 90},
		{"rotation over full turn", models.PartPose{Scale: 1, Rotation: 370}, 1, 10},
		{"negative rotation", models.PartPose{Scale: 1, Rotation: -90}, 1, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := manager.SetPartPose(testSession, models.SlotHead, tt.in)
			if err != nil {
				t.Fatalf("Failed to set pose: %v", err)
			}
			if got.Scale != tt.wantScale {
				t.Errorf("Expected scale %v, got %v", tt.wantScale, got.Scale)
			}
			if got.Rotation != tt.wantRotation {
				t.Errorf("Expected rotation %v, got %v", tt.wantRotation, got.Rotation)
			}
		})
	}
}

func TestSetPartPoseRequiresEquippedSlot(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	if _, err := manager.SetPartPose(testSession, models.SlotHat, models.PartPose{Scale: 1}); err != ErrSlotNotEquipped {
		t.Errorf("Expected ErrSlotNotEquipped, got %v", err)
	}
}

func TestSwitchFlushesOutgoingProfile(t *testing.T) {
	manager, db, profile := setupTestManager(t)
	activate(t, manager, profile)

	if err := manager.AddCoins(testSession, 250, "quiz reward", "quiz"); err != nil {
		t.Fatalf("Failed to add coins: %v", err)
	}

	secondID, err := db.ExecReturningID(
		"INSERT INTO profiles (user_id, kind, name, position) VALUES (?, 'kid', 'Ruth', 1)",
		profile.UserID)
	if err != nil {
		t.Fatalf("Failed to create second profile: %v", err)
	}
	second := &models.Profile{ID: secondID, UserID: profile.UserID, Kind: models.ProfileKindKid, Name: "Ruth"}

	// the switch itself must persist the outgoing profile, with no debounce wait
	if _, err := manager.Switch(testSession, second); err != nil {
		t.Fatalf("Failed to switch profile: %v", err)
	}

	var coins int
	if err := db.QueryRow("SELECT coins FROM economy WHERE profile_id = ?", profile.ID).Scan(&coins); err != nil {
		t.Fatalf("Failed to read persisted balance: %v", err)
	}
	if coins != 750 {
		t.Errorf("Expected outgoing profile persisted at 750, got %d", coins)
	}
}

func TestSwitchPublishesEvent(t *testing.T) {
	manager, _, profile := setupTestManager(t)

	ch, unsubscribe := manager.bus.Subscribe(events.TopicProfileSwitched)
	defer unsubscribe()

	activate(t, manager, profile)

	select {
	case event := <-ch:
		if event.ProfileID != profile.ID {
			t.Errorf("Expected event for profile %d, got %d", profile.ID, event.ProfileID)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected profile.switched event")
	}
}

func TestStateSurvivesReactivation(t *testing.T) {
	manager, _, profile := setupTestManager(t)
	activate(t, manager, profile)

	item := &models.ShopItem{ID: "hat-crown", Name: "Crown", Price: 150, Type: models.ItemTypeHat}
	if err := manager.PurchaseItem(testSession, item, false); err != nil {
		t.Fatalf("Failed to purchase item: %v", err)
	}
	if err := manager.EquipSlot(testSession, models.SlotHat, "hat-crown"); err != nil {
		t.Fatalf("Failed to equip item: %v", err)
	}
	if _, err := manager.SetPartPose(testSession, models.SlotHat, models.PartPose{Rotation: 15, OffsetX: 3, Scale: 1.5}); err != nil {
		t.Fatalf("Failed to set pose: %v", err)
	}

	if err := manager.Deactivate(testSession); err != nil {
		t.Fatalf("Failed to deactivate: %v", err)
	}

	view := activate(t, manager, profile)
	if view.Economy.Coins != 350 {
		t.Errorf("Expected balance 350 after reload, got %d", view.Economy.Coins)
	}
	if !view.Economy.OwnsItem("hat-crown") {
		t.Error("Expected ownership to survive reload")
	}
	if view.Avatar.Equipped[models.SlotHat] != "hat-crown" {
		t.Error("Expected equipped hat to survive reload")
	}
	pose := view.Avatar.Poses[models.SlotHat]
	if pose.Rotation != 15 || pose.OffsetX != 3 || pose.Scale != 1.5 {
		t.Errorf("Expected pose to survive reload, got %+v", pose)
	}
}

func TestDeactivateProfileDropsEverySession(t *testing.T) {
	manager, db, profile := setupTestManager(t)

	// same profile live under two sessions, e.g. a parent preview and the
	// kid's own login
	if _, err := manager.Switch("parent-session", profile); err != nil {
		t.Fatalf("Failed to activate under parent session: %v", err)
	}
	if _, err := manager.Switch("kid-session", profile); err != nil {
		t.Fatalf("Failed to activate under kid session: %v", err)
	}

	if err := manager.AddCoins("kid-session", 100, "quiz reward", "quiz"); err != nil {
		t.Fatalf("Failed to add coins: %v", err)
	}

	manager.DeactivateProfile(profile.ID)

	if _, err := manager.Get("parent-session"); err != ErrNoActiveProfile {
		t.Errorf("Parent session: expected ErrNoActiveProfile, got %v", err)
	}
	if _, err := manager.Get("kid-session"); err != ErrNoActiveProfile {
		t.Errorf("Kid session: expected ErrNoActiveProfile, got %v", err)
	}

	var coins int
	if err := db.QueryRow("SELECT coins FROM economy WHERE profile_id = ?", profile.ID).Scan(&coins); err != nil {
		t.Fatalf("Failed to read balance: %v", err)
	}
	if coins != 600 {
		t.Errorf("Expected pending state flushed at 600, got %d", coins)
	}

	// a wipe right after deactivation must stick: no debounced flush may be
	// left behind to re-insert the old transactions
	if _, err := db.Exec("DELETE FROM transactions WHERE profile_id = ?", profile.ID); err != nil {
		t.Fatalf("Failed to wipe transactions: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM transactions WHERE profile_id = ?", profile.ID).Scan(&count); err != nil {
		t.Fatalf("Failed to count transactions: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected wiped transactions to stay gone, got %d rows", count)
	}
}

func TestDebouncedFlushPersists(t *testing.T) {
	manager, db, profile := setupTestManager(t)
	activate(t, manager, profile)

	if err := manager.AddCoins(testSession, 100, "quiz reward", "quiz"); err != nil {
		t.Fatalf("Failed to add coins: %v", err)
	}

	// wait out the debounce window
	deadline := time.Now().Add(2 * time.Second)
	for {
		var coins int
		if err := db.QueryRow("SELECT coins FROM economy WHERE profile_id = ?", profile.ID).Scan(&coins); err != nil {
			t.Fatalf("Failed to read balance: %v", err)
		}
		if coins == 600 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected debounced flush to persist 600, still at %d", coins)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOperationsRequireActiveProfile(t *testing.T) {
	manager, _, _ := setupTestManager(t)

	if err := manager.AddCoins("missing", 10, "x", "test"); err != ErrNoActiveProfile {
		t.Errorf("AddCoins: expected ErrNoActiveProfile, got %v", err)
	}
	if _, err := manager.SpendCoins("missing", 10, "x"); err != ErrNoActiveProfile {
		t.Errorf("SpendCoins: expected ErrNoActiveProfile, got %v", err)
	}
	if _, err := manager.RedeemCode("missing", "FRIEND-2024", ""); err != ErrNoActiveProfile {
		t.Errorf("RedeemCode: expected ErrNoActiveProfile, got %v", err)
	}
}
