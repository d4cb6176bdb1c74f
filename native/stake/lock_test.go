package stake

import (
	"errors"
	"math/big"
	"testing"
)

func TestUpdateStakeLockFromUnlockedOrigin(t *testing.T) {
	// A stake whose lock origin is still zero starts its lock at the
	// extension time, so a max-length extension reaches the full
	// multiplier.
	e := newEnvWith(t, envOptions{start: 0})
	e.fund(t, e.reward, e.rewardPool, alice, 100)
	if err := e.rewardPool.StakeAndLock(alice, big.NewInt(100), 11); err != nil {
		t.Fatalf("stake: %v", err)
	}
	stake, err := e.rewardPool.GetStake(alice, 0)
	if err != nil {
		t.Fatalf("get stake: %v", err)
	}
	if stake.LockedFrom != 0 || stake.LockedUntil != 11 {
		t.Fatalf("stake lock = (%d, %d), want (0, 11)", stake.LockedFrom, stake.LockedUntil)
	}

	e.clock.advance(10)
	newUntil := e.clock.Now() + MaxLockSeconds
	if err := e.rewardPool.UpdateStakeLock(alice, 0, newUntil); err != nil {
		t.Fatalf("extend: %v", err)
	}
	e.checkSubInvariant(t, e.rewardPool, alice)

	stake, err = e.rewardPool.GetStake(alice, 0)
	if err != nil {
		t.Fatalf("get stake: %v", err)
	}
	if stake.LockedFrom != 10 || stake.LockedUntil != newUntil {
		t.Fatalf("stake lock = (%d, %d), want (10, %d)", stake.LockedFrom, stake.LockedUntil, newUntil)
	}
	want := big.NewInt(100 * 2 * WeightMult)
	u := e.rewardPool.Users(alice)
	if u.TotalWeight.Cmp(want) != 0 {
		t.Fatalf("total weight = %s, want %s", u.TotalWeight, want)
	}
	if e.rewardPool.GlobalWeight().Cmp(want) != 0 {
		t.Fatalf("global weight = %s, want %s", e.rewardPool.GlobalWeight(), want)
	}
}

func TestUpdateStakeLockKeepsLockOrigin(t *testing.T) {
	e := newEnv(t)
	e.fund(t, e.reward, e.rewardPool, alice, 100)
	lockedFrom := e.clock.Now()
	if err := e.rewardPool.StakeAndLock(alice, big.NewInt(100), lockedFrom+100); err != nil {
		t.Fatalf("stake: %v", err)
	}
	e.clock.advance(50)
	if err := e.rewardPool.UpdateStakeLock(alice, 0, lockedFrom+MaxLockSeconds); err != nil {
		t.Fatalf("extend: %v", err)
	}
	stake, err := e.rewardPool.GetStake(alice, 0)
	if err != nil {
		t.Fatalf("get stake: %v", err)
	}
	if stake.LockedFrom != lockedFrom {
		t.Fatalf("lock origin moved to %d, want %d", stake.LockedFrom, lockedFrom)
	}
	want := big.NewInt(100 * 2 * WeightMult)
	if u := e.rewardPool.Users(alice); u.TotalWeight.Cmp(want) != 0 {
		t.Fatalf("total weight = %s, want %s", u.TotalWeight, want)
	}
}

func TestUpdateStakeLockRejections(t *testing.T) {
	e := newEnv(t)
	e.fund(t, e.reward, e.rewardPool, alice, 100)
	lockedFrom := e.clock.Now()
	if err := e.rewardPool.StakeAndLock(alice, big.NewInt(100), lockedFrom+100); err != nil {
		t.Fatalf("stake: %v", err)
	}

	if err := e.rewardPool.UpdateStakeLock(alice, 0, e.clock.Now()); !errors.Is(err, ErrInvalidLockExtension) {
		t.Fatalf("lock at now: err = %v, want ErrInvalidLockExtension", err)
	}
	e.clock.advance(200)
	if err := e.rewardPool.UpdateStakeLock(alice, 0, lockedFrom+90); !errors.Is(err, ErrInvalidLockExtension) {
		t.Fatalf("shorter lock: err = %v, want ErrInvalidLockExtension", err)
	}
	if err := e.rewardPool.UpdateStakeLock(alice, 0, lockedFrom+MaxLockSeconds+1); !errors.Is(err, ErrInvalidLockExtension) {
		t.Fatalf("beyond max from origin: err = %v, want ErrInvalidLockExtension", err)
	}
	if err := e.rewardPool.UpdateStakeLock(alice, 3, lockedFrom+200); !errors.Is(err, ErrUnknownStake) {
		t.Fatalf("unknown stake: err = %v, want ErrUnknownStake", err)
	}
}
