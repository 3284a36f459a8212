package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/studyhive/backend/models"
)

// memCodeStore guards the used flag with a mutex so the conditional-update
// contract matches what the Mongo store provides.
type memCodeStore struct {
	mu    sync.Mutex
	codes map[string]*models.AccessCode
	fail  bool
}

func (s *memCodeStore) CodeByID(_ context.Context, code string) (*models.AccessCode, error) {
	if s.fail {
		return nil, errors.New("connection reset")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memCodeStore) ConsumeSingleUseCode(_ context.Context, code string) (bool, error) {
	if s.fail {
		return false, errors.New("connection reset")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok || c.Used {
		return false, nil
	}
	c.Used = true
	return true, nil
}

func newTestRedeemer(codes map[string]*models.AccessCode) (*Redeemer, *memCodeStore) {
	store := &memCodeStore{codes: codes}
	return NewRedeemer(store), store
}

func TestRedeemReasons(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	r, _ := newTestRedeemer(map[string]*models.AccessCode{
		"inactive": {Code: "inactive", Role: models.RoleSenior},
		"used":     {Code: "used", Role: models.RoleSenior, IsActive: true, IsSingleUse: true, Used: true},
		"expired":  {Code: "expired", Role: models.RoleSenior, IsActive: true, ExpiresAt: past},
		"open":     {Code: "open", Role: models.RoleClassRep, IsActive: true},
	})

	tests := []struct {
		code    string
		granted bool
		reason  models.RedeemReason
	}{
		{"missing", false, models.ReasonNotFound},
		{"inactive", false, models.ReasonInactive},
		{"used", false, models.ReasonAlreadyUsed},
		{"expired", false, models.ReasonExpired},
		{"open", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			res := r.Redeem(context.Background(), tt.code)
			if res.Granted != tt.granted || res.Reason != tt.reason {
				t.Fatalf("Redeem(%q) = %+v, want granted=%v reason=%q", tt.code, res, tt.granted, tt.reason)
			}
		})
	}
}

func TestRedeemExpiredEvenIfUnused(t *testing.T) {
	r, _ := newTestRedeemer(map[string]*models.AccessCode{
		"c": {Code: "c", Role: models.RoleSenior, IsActive: true, IsSingleUse: true, Used: false, ExpiresAt: time.Now().Add(-time.Minute)},
	})
	res := r.Redeem(context.Background(), "c")
	if res.Granted || res.Reason != models.ReasonExpired {
		t.Fatalf("Redeem = %+v, want expired denial", res)
	}
}

func TestRedeemReusableCodeGrantsRepeatedly(t *testing.T) {
	r, store := newTestRedeemer(map[string]*models.AccessCode{
		"multi": {Code: "multi", Role: models.RoleStudent, IsActive: true, IsSingleUse: false},
	})
	for i := 0; i < 3; i++ {
		res := r.Redeem(context.Background(), "multi")
		if !res.Granted || res.Role != models.RoleStudent {
			t.Fatalf("redemption %d = %+v, want grant", i, res)
		}
	}
	if store.codes["multi"].Used {
		t.Fatal("reusable code must not be marked used")
	}
}

// TestRedeemSingleUseConcurrent checks the core race: of N concurrent
// redemptions of one single-use code, exactly one wins and the rest see
// already-used.
func TestRedeemSingleUseConcurrent(t *testing.T) {
	const n = 32
	r, store := newTestRedeemer(map[string]*models.AccessCode{
		"once": {Code: "once", Role: models.RoleSenior, IsActive: true, IsSingleUse: true},
	})

	results := make([]RedeemResult, n)
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			results[i] = r.Redeem(context.Background(), "once")
		}(i)
	}
	start.Done()
	done.Wait()

	var granted int
	for _, res := range results {
		if res.Granted {
			granted++
		} else if res.Reason != models.ReasonAlreadyUsed {
			t.Fatalf("loser saw reason %q, want %q", res.Reason, models.ReasonAlreadyUsed)
		}
	}
	if granted != 1 {
		t.Fatalf("%d redemptions granted, want exactly 1", granted)
	}
	if !store.codes["once"].Used {
		t.Fatal("code not marked used after a grant")
	}
}

func TestRedeemStoreFailureMapsToInternalError(t *testing.T) {
	r, store := newTestRedeemer(map[string]*models.AccessCode{
		"c": {Code: "c", Role: models.RoleSenior, IsActive: true},
	})
	store.fail = true
	res := r.Redeem(context.Background(), "c")
	if res.Granted || res.Reason != models.ReasonInternalError {
		t.Fatalf("Redeem = %+v, want internal-error denial", res)
	}
}
