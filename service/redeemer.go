package service

import (
	"context"
	"log"
	"time"

	"github.com/studyhive/backend/models"
)

// CodeStore is the access-code surface of the directory store.
type CodeStore interface {
	CodeByID(ctx context.Context, code string) (*models.AccessCode, error)
	// ConsumeSingleUseCode conditionally flips used false -> true and reports
	// whether this caller won.
	ConsumeSingleUseCode(ctx context.Context, code string) (bool, error)
}

// RedeemResult is always returned, never an error: store failures collapse to
// the internal-error reason so backend detail cannot leak to the caller.
type RedeemResult struct {
	Granted bool                `json:"granted"`
	Role    models.Role         `json:"role,omitempty"`
	Reason  models.RedeemReason `json:"reason,omitempty"`
}

// Redeemer exchanges a human-entered code for a role grant.
type Redeemer struct {
	codes CodeStore
	now   func() time.Time
}

func NewRedeemer(codes CodeStore) *Redeemer {
	return &Redeemer{codes: codes, now: time.Now}
}

// Redeem validates a code and, for single-use codes, consumes it. Invariants
// are checked in a fixed order (active, used, expiry) so denial reasons are
// deterministic; consumption is a conditional update so two concurrent
// redeemers of the same single-use code cannot both be granted.
func (r *Redeemer) Redeem(ctx context.Context, code string) RedeemResult {
	c, err := r.codes.CodeByID(ctx, code)
	if err != nil {
		log.Printf("redeem lookup: %v", err)
		return RedeemResult{Reason: models.ReasonInternalError}
	}
	if c == nil {
		return RedeemResult{Reason: models.ReasonNotFound}
	}
	if reason := c.CheckRedeemable(r.now()); reason != "" {
		return RedeemResult{Reason: reason}
	}
	if c.IsSingleUse {
		ok, err := r.codes.ConsumeSingleUseCode(ctx, code)
		if err != nil {
			log.Printf("redeem consume: %v", err)
			return RedeemResult{Reason: models.ReasonInternalError}
		}
		if !ok {
			// Lost the race to another redeemer.
			return RedeemResult{Reason: models.ReasonAlreadyUsed}
		}
	}
	return RedeemResult{Granted: true, Role: c.Role}
}
