package models

// Shop item types. All except "voice" map directly onto an avatar slot.
const (
	ItemTypeAvatar    = "avatar"
	ItemTypeFrame     = "frame"
	ItemTypeHat       = "hat"
	ItemTypeBody      = "body"
	ItemTypeLeftArm   = "leftArm"
	ItemTypeRightArm  = "rightArm"
	ItemTypeLegs      = "legs"
	ItemTypeAnimation = "animation"
	ItemTypeVoice     = "voice"
)

// ShopItem is an immutable catalog entry. Items are not owned by any profile
// until purchased.
type ShopItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	IsPremium bool   `json:"isPremium"`
}

// Slot maps the item type onto the avatar slot it equips into, or "" for
// non-cosmetic items such as voices.
func (i *ShopItem) Slot() string {
	switch i.Type {
	case ItemTypeAvatar:
		return SlotHead
	case ItemTypeFrame:
		return SlotFrame
	case ItemTypeHat:
		return SlotHat
	case ItemTypeBody:
		return SlotBody
	case ItemTypeLeftArm:
		return SlotLeftArm
	case ItemTypeRightArm:
		return SlotRightArm
	case ItemTypeLegs:
		return SlotLegs
	case ItemTypeAnimation:
		return SlotAnimation
	}
	return ""
}
