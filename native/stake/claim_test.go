package stake

import (
	"errors"
	"math/big"
	"testing"

	"yieldhub/core/events"
)

func TestCompoundClaimOpensYieldStake(t *testing.T) {
	e := newEnv(t)
	e.fund(t, e.reward, e.rewardPool, alice, 100)
	if err := e.rewardPool.StakeAndLock(alice, big.NewInt(100), e.clock.Now()+MaxLockSeconds); err != nil {
		t.Fatalf("stake: %v", err)
	}
	e.clock.advance(100)

	accrued := e.rewardPool.PendingRewards(alice)
	if accrued.Cmp(mulR(100)) != 0 {
		t.Fatalf("accrued = %s, want %s", accrued, mulR(100))
	}
	reserveBefore := e.rewardPool.PoolTokenReserve()
	globalBefore := e.rewardPool.GlobalWeight()

	if err := e.rewardPool.ClaimRewards(alice, false); err != nil {
		t.Fatalf("claim: %v", err)
	}
	e.checkSubInvariant(t, e.rewardPool, alice)

	stake, err := e.rewardPool.GetStake(alice, 1)
	if err != nil {
		t.Fatalf("get yield stake: %v", err)
	}
	if stake.Value.Cmp(accrued) != 0 {
		t.Fatalf("yield stake value = %s, want %s", stake.Value, accrued)
	}
	if stake.LockedFrom != initTime+100 || stake.LockedUntil != initTime+100+MaxLockSeconds {
		t.Fatalf("yield stake lock = (%d, %d)", stake.LockedFrom, stake.LockedUntil)
	}
	if !stake.IsYield {
		t.Fatal("stake not flagged as yield")
	}

	// The claimed value is owed, not held: the reserve grows with no
	// transfer, and the weight grows at the compounding multiplier.
	wantReserve := new(big.Int).Add(reserveBefore, accrued)
	if e.rewardPool.PoolTokenReserve().Cmp(wantReserve) != 0 {
		t.Fatalf("reserve = %s, want %s", e.rewardPool.PoolTokenReserve(), wantReserve)
	}
	wantGlobal := new(big.Int).Mul(accrued, big.NewInt(YearWeightMult))
	wantGlobal.Add(wantGlobal, globalBefore)
	if e.rewardPool.GlobalWeight().Cmp(wantGlobal) != 0 {
		t.Fatalf("global weight = %s, want %s", e.rewardPool.GlobalWeight(), wantGlobal)
	}
	if e.rewardPool.PendingRewards(alice).Sign() != 0 {
		t.Fatal("pending not reset by claim")
	}
}

func TestYieldStakeMintsOnUnstake(t *testing.T) {
	e := newEnv(t)
	e.fund(t, e.reward, e.rewardPool, alice, 100)
	if err := e.rewardPool.StakeAndLock(alice, big.NewInt(100), e.clock.Now()+MaxLockSeconds); err != nil {
		t.Fatalf("stake: %v", err)
	}
	e.clock.advance(100)
	if err := e.rewardPool.ClaimRewards(alice, false); err != nil {
		t.Fatalf("claim: %v", err)
	}
	yieldStake, err := e.rewardPool.GetStake(alice, 1)
	if err != nil {
		t.Fatalf("get yield stake: %v", err)
	}

	if err := e.rewardPool.UnstakeLocked(alice, 1, yieldStake.Value); !errors.Is(err, ErrStillLocked) {
		t.Fatalf("early unstake: err = %v, want ErrStillLocked", err)
	}
	e.clock.advance(MaxLockSeconds + 1)

	supplyBefore := e.reward.TotalSupply()
	balanceBefore := e.reward.BalanceOf(alice)
	if err := e.rewardPool.UnstakeLocked(alice, 1, yieldStake.Value); err != nil {
		t.Fatalf("unstake yield: %v", err)
	}
	minted := new(big.Int).Sub(e.reward.BalanceOf(alice), balanceBefore)
	if minted.Cmp(yieldStake.Value) != 0 {
		t.Fatalf("minted = %s, want %s", minted, yieldStake.Value)
	}
	supplyDelta := new(big.Int).Sub(e.reward.TotalSupply(), supplyBefore)
	if supplyDelta.Cmp(yieldStake.Value) != 0 {
		t.Fatalf("supply delta = %s, want %s", supplyDelta, yieldStake.Value)
	}
}

func TestEscrowClaimMintsImmediately(t *testing.T) {
	e := newEnv(t)
	e.fund(t, e.reward, e.rewardPool, alice, 100)
	if err := e.rewardPool.StakeFlexible(alice, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	e.clock.advance(20)
	if err := e.rewardPool.ClaimRewards(alice, true); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := e.escrow.BalanceOf(alice); got.Cmp(mulR(20)) != 0 {
		t.Fatalf("escrow balance = %s, want %s", got, mulR(20))
	}
	if got := e.rewardPool.GetStakesLength(alice); got != 0 {
		t.Fatalf("stakes length = %d, want 0", got)
	}
}

func TestClaimWithNothingPendingIsNoOp(t *testing.T) {
	e := newEnv(t)
	if err := e.rewardPool.ClaimRewards(alice, false); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := len(e.rec.ByType(events.TypeRewardsClaimed)); got != 0 {
		t.Fatalf("claim events = %d, want 0", got)
	}
}

func TestCrossPoolClaimCompoundsIntoRewardPool(t *testing.T) {
	e := newEnvWith(t, envOptions{start: initTime, withLPPool: true})
	e.fund(t, e.deposit, e.lpPool, alice, 100)
	if err := e.lpPool.StakeFlexible(alice, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	e.clock.advance(100)

	// Two pools at weight 200 each split the emission evenly.
	pending := e.lpPool.PendingRewards(alice)
	if pending.Cmp(mulR(50)) != 0 {
		t.Fatalf("pending = %s, want %s", pending, mulR(50))
	}
	if err := e.lpPool.ClaimRewards(alice, false); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if got := e.lpPool.PendingRewards(alice); got.Sign() != 0 {
		t.Fatalf("lp pending after claim = %s, want 0", got)
	}
	stake, err := e.rewardPool.GetStake(alice, 0)
	if err != nil {
		t.Fatalf("reward pool stake: %v", err)
	}
	if !stake.IsYield || stake.Value.Cmp(pending) != 0 {
		t.Fatalf("routed stake = %+v, want yield stake of %s", stake, pending)
	}
	if e.rewardPool.PoolTokenReserve().Cmp(pending) != 0 {
		t.Fatalf("reward reserve = %s, want %s", e.rewardPool.PoolTokenReserve(), pending)
	}
}

func TestClaimFromRouterValidatesCallerOnly(t *testing.T) {
	e := newEnvWith(t, envOptions{start: initTime, withLPPool: true})
	e.fund(t, e.deposit, e.lpPool, alice, 100)
	if err := e.lpPool.StakeFlexible(alice, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	e.clock.advance(10)

	if err := e.lpPool.ClaimRewardsFromRouter(e.lpPool, alice, true); !errors.Is(err, ErrNotRouter) {
		t.Fatalf("non-router caller: err = %v, want ErrNotRouter", err)
	}
	// The staker argument is taken on trust: the reward pool may claim on
	// behalf of any account.
	if err := e.lpPool.ClaimRewardsFromRouter(e.rewardPool, alice, true); err != nil {
		t.Fatalf("routed claim: %v", err)
	}
	if got := e.escrow.BalanceOf(alice); got.Cmp(mulR(5)) != 0 {
		t.Fatalf("escrow balance = %s, want %s", got, mulR(5))
	}
}

func TestClaimRewardsMultiple(t *testing.T) {
	e := newEnvWith(t, envOptions{start: initTime, withLPPool: true})
	e.fund(t, e.reward, e.rewardPool, alice, 100)
	e.fund(t, e.deposit, e.lpPool, alice, 100)
	if err := e.rewardPool.StakeFlexible(alice, big.NewInt(100)); err != nil {
		t.Fatalf("stake reward: %v", err)
	}
	if err := e.lpPool.StakeFlexible(alice, big.NewInt(100)); err != nil {
		t.Fatalf("stake lp: %v", err)
	}
	e.clock.advance(100)

	if err := e.lpPool.ClaimRewardsMultiple(alice, nil, nil); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("router must be the reward pool: err = %v, want ErrAccessDenied", err)
	}
	pools := []*Pool{e.rewardPool, e.lpPool}
	if err := e.rewardPool.ClaimRewardsMultiple(alice, pools, []bool{true, true}); err != nil {
		t.Fatalf("claim multiple: %v", err)
	}
	// Each pool carried 50 seconds worth of the split emission.
	if got := e.escrow.BalanceOf(alice); got.Cmp(mulR(100)) != 0 {
		t.Fatalf("escrow balance = %s, want %s", got, mulR(100))
	}
}
