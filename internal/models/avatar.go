package models

import "time"

// Cosmetic slots an avatar can equip. Each slot holds at most one value.
const (
	SlotHead      = "head"
	SlotFrame     = "frame"
	SlotHat       = "hat"
	SlotBody      = "body"
	SlotLeftArm   = "leftArm"
	SlotRightArm  = "rightArm"
	SlotLegs      = "legs"
	SlotAnimation = "animation"
)

// DefaultHead is the head every new profile starts with
const DefaultHead = "head-toast"

// Pose scale bounds
const (
	MinPartScale = 0.5
	MaxPartScale = 2.0
)

// AvatarSlots lists all equippable slots in display order
var AvatarSlots = []string{
	SlotHead, SlotFrame, SlotHat, SlotBody,
	SlotLeftArm, SlotRightArm, SlotLegs, SlotAnimation,
}

// IsAvatarSlot reports whether name is a known cosmetic slot
func IsAvatarSlot(name string) bool {
	for _, s := range AvatarSlots {
		if s == name {
			return true
		}
	}
	return false
}

// PartPose is the per-part placement of an equipped cosmetic
type PartPose struct {
	Rotation float64 `json:"rotation"` // degrees, normalized to [0, 360)
	OffsetX  float64 `json:"offsetX"`  // pixels
	OffsetY  float64 `json:"offsetY"`  // pixels
	Scale    float64 `json:"scale"`    // clamped to [MinPartScale, MaxPartScale]
}

// AvatarConfig holds the equipped cosmetic value and pose per slot for one profile
type AvatarConfig struct {
	ProfileID int64               `json:"profileId"`
	Equipped  map[string]string   `json:"equipped"` // slot -> item value
	Poses     map[string]PartPose `json:"poses"`    // slot -> pose
	UpdatedAt time.Time           `json:"updatedAt"`
}

// DefaultAvatarConfig returns the loadout a brand-new profile starts with
func DefaultAvatarConfig(profileID int64) *AvatarConfig {
	return &AvatarConfig{
		ProfileID: profileID,
		Equipped:  map[string]string{SlotHead: DefaultHead},
		Poses:     map[string]PartPose{},
		UpdatedAt: time.Now(),
	}
}

// ClampScale clamps a requested scale factor into the allowed range
func ClampScale(scale float64) float64 {
	if scale < MinPartScale {
		return MinPartScale
	}
	if scale > MaxPartScale {
		return MaxPartScale
	}
	return scale
}

// NormalizeRotation maps an angle in degrees into [0, 360)
func NormalizeRotation(deg float64) float64 {
	deg = deg - 360*float64(int(deg/360))
	if deg < 0 {
		deg += 360
	}
	return deg
}
