package stake

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldhub/storage"
)

func TestStoreRoundTrip(t *testing.T) {
	v1 := NewStaticV1Pool()
	e := newEnvWith(t, envOptions{start: initTime, withLPPool: true, v1Pool: v1})
	v1.SetDeposit(alice, big.NewInt(7), lockedV1Deposit(200, 4*100*WeightMult, initTime+500))

	e.fund(t, e.reward, e.rewardPool, alice, 300)
	e.fund(t, e.deposit, e.lpPool, bob, 50)
	require.NoError(t, e.rewardPool.StakeFlexible(alice, big.NewInt(100)))
	require.NoError(t, e.rewardPool.StakeAndLock(alice, big.NewInt(200), e.clock.Now()+MaxLockSeconds))
	require.NoError(t, e.rewardPool.MigrateLockedStake(alice, []*big.Int{big.NewInt(7)}))
	require.NoError(t, e.lpPool.StakeFlexible(bob, big.NewInt(50)))
	e.clock.advance(100)
	require.NoError(t, e.rewardPool.ClaimRewards(alice, false))

	db := storage.NewMemDB()
	require.NoError(t, NewStore(db).Save(e.factory))

	restored, err := NewStore(db).Load(LoadDeps{
		Clock:           e.clock,
		Sink:            e.rec,
		RewardToken:     e.reward,
		EscrowToken:     e.escrow,
		RewardTokenName: "YLD",
		PoolTokens:      map[string]Token{"YLD": e.reward, "SLP": e.deposit},
		V1Pools:         map[string]V1Pool{"YLD": v1},
	})
	require.NoError(t, err)

	require.Equal(t, e.factory.RewardPerSecond(), restored.RewardPerSecond())
	require.Equal(t, e.factory.TotalWeight(), restored.TotalWeight())
	require.Equal(t, e.factory.EndTime(), restored.EndTime())
	require.Equal(t, e.factory.LastRatioUpdate(), restored.LastRatioUpdate())

	for _, token := range []string{"YLD", "SLP"} {
		original, err := e.factory.GetPool(token)
		require.NoError(t, err)
		loaded, err := restored.GetPool(token)
		require.NoError(t, err)
		require.Equal(t, original.Weight(), loaded.Weight())
		require.Equal(t, original.LastYieldDistribution(), loaded.LastYieldDistribution())
		require.Zero(t, original.YieldRewardsPerWeight().Cmp(loaded.YieldRewardsPerWeight()))
		require.Zero(t, original.VaultRewardsPerWeight().Cmp(loaded.VaultRewardsPerWeight()))
		require.Zero(t, original.GlobalWeight().Cmp(loaded.GlobalWeight()))
		require.Zero(t, original.PoolTokenReserve().Cmp(loaded.PoolTokenReserve()))
	}

	originalPool, err := e.factory.GetPool("YLD")
	require.NoError(t, err)
	loadedPool, err := restored.GetPool("YLD")
	require.NoError(t, err)
	originalUser := originalPool.Users(alice)
	loadedUser := loadedPool.Users(alice)
	require.Equal(t, len(originalUser.Stakes), len(loadedUser.Stakes))
	for i := range originalUser.Stakes {
		require.Zero(t, originalUser.Stakes[i].Value.Cmp(loadedUser.Stakes[i].Value), "stake %d value", i)
		require.Equal(t, originalUser.Stakes[i].LockedFrom, loadedUser.Stakes[i].LockedFrom)
		require.Equal(t, originalUser.Stakes[i].LockedUntil, loadedUser.Stakes[i].LockedUntil)
		require.Equal(t, originalUser.Stakes[i].IsYield, loadedUser.Stakes[i].IsYield)
	}
	require.Zero(t, originalUser.TotalWeight.Cmp(loadedUser.TotalWeight))
	require.Zero(t, originalUser.SubYieldRewards.Cmp(loadedUser.SubYieldRewards))
	require.Zero(t, originalUser.PendingYield.Cmp(loadedUser.PendingYield))
	require.Equal(t, originalUser.V1IDsLength(), loadedUser.V1IDsLength())

	// The restored engine keeps accruing identically.
	e.clock.advance(10)
	require.Zero(t, originalPool.PendingRewards(alice).Cmp(loadedPool.PendingRewards(alice)))
}

func TestStoreLoadMissingSnapshot(t *testing.T) {
	db := storage.NewMemDB()
	_, err := NewStore(db).Load(LoadDeps{Clock: &manualClock{}})
	require.ErrorIs(t, err, storage.ErrNotFound)
}
