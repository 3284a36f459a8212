package models

import "time"

// AccessCode grants a role (or dashboard entry) without full sign-up. The code
// string itself is the document key.
type AccessCode struct {
	Code        string    `bson:"_id" json:"code"`
	Role        Role      `bson:"role" json:"role"`
	IsActive    bool      `bson:"isActive" json:"isActive"`
	IsSingleUse bool      `bson:"isSingleUse" json:"isSingleUse"`
	Used        bool      `bson:"used" json:"used"`
	ExpiresAt   time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// RedeemReason classifies why a redemption was denied.
type RedeemReason string

const (
	ReasonNotFound      RedeemReason = "not-found"
	ReasonInactive      RedeemReason = "inactive"
	ReasonAlreadyUsed   RedeemReason = "already-used"
	ReasonExpired       RedeemReason = "expired"
	ReasonInternalError RedeemReason = "internal-error"
)

// CheckRedeemable evaluates the redeemability invariants in a fixed order:
// active, then used/single-use, then expiry. The first failing check wins so
// denial reasons are deterministic. Returns an empty reason when redeemable.
func (c *AccessCode) CheckRedeemable(now time.Time) RedeemReason {
	if !c.IsActive {
		return ReasonInactive
	}
	if c.Used && c.IsSingleUse {
		return ReasonAlreadyUsed
	}
	if !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(now) {
		return ReasonExpired
	}
	return ""
}
