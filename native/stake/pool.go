package stake

import (
	"math/big"

	"yieldhub/core/events"
)

// PoolConfig carries the construction parameters for a pool.
type PoolConfig struct {
	Address          Address
	PoolToken        Token
	PoolTokenName    string
	IsFlashPool      bool
	Weight           uint32
	InitTime         uint64
	V1Pool           V1Pool
	V1StakeMaxPeriod uint64
}

// Pool tracks per-user stake positions for one deposit token and distributes
// the factory emission pro-rata to the time-weighted share of each user.
type Pool struct {
	factory *Factory
	clock   Clock
	sink    EventSink

	address       Address
	poolToken     Token
	poolTokenName string
	isFlashPool   bool
	weight        uint32

	lastYieldDistribution uint64
	yieldRewardsPerWeight *big.Int
	vaultRewardsPerWeight *big.Int
	globalWeight          *big.Int
	poolTokenReserve      *big.Int

	vault            Address
	v1Pool           V1Pool
	v1StakeMaxPeriod uint64

	users map[Address]*User

	entered bool
}

// NewPool constructs a pool bound to the supplied factory. The caller still
// has to register the pool with the factory before it earns emission.
func NewPool(factory *Factory, clock Clock, sink EventSink, cfg PoolConfig) *Pool {
	return &Pool{
		factory:               factory,
		clock:                 clock,
		sink:                  sink,
		address:               cfg.Address,
		poolToken:             cfg.PoolToken,
		poolTokenName:         cfg.PoolTokenName,
		isFlashPool:           cfg.IsFlashPool,
		weight:                cfg.Weight,
		lastYieldDistribution: cfg.InitTime,
		yieldRewardsPerWeight: big.NewInt(0),
		vaultRewardsPerWeight: big.NewInt(0),
		globalWeight:          big.NewInt(0),
		poolTokenReserve:      big.NewInt(0),
		v1Pool:                cfg.V1Pool,
		v1StakeMaxPeriod:      cfg.V1StakeMaxPeriod,
		users:                 make(map[Address]*User),
	}
}

// Address returns the pool's account address.
func (p *Pool) Address() Address { return p.address }

// PoolToken returns the deposit token name.
func (p *Pool) PoolToken() string { return p.poolTokenName }

// IsFlashPool reports whether the pool is a flash pool.
func (p *Pool) IsFlashPool() bool { return p.isFlashPool }

// Weight returns the pool's share of the factory emission split.
func (p *Pool) Weight() uint32 { return p.weight }

// GlobalWeight returns the total staked weight currently active.
func (p *Pool) GlobalWeight() *big.Int { return copyBigInt(p.globalWeight) }

// PoolTokenReserve returns the tracked deposit reserve.
func (p *Pool) PoolTokenReserve() *big.Int { return copyBigInt(p.poolTokenReserve) }

// YieldRewardsPerWeight returns the yield accumulator.
func (p *Pool) YieldRewardsPerWeight() *big.Int { return copyBigInt(p.yieldRewardsPerWeight) }

// VaultRewardsPerWeight returns the vault accumulator.
func (p *Pool) VaultRewardsPerWeight() *big.Int { return copyBigInt(p.vaultRewardsPerWeight) }

// LastYieldDistribution returns the timestamp the accumulator last advanced
// to.
func (p *Pool) LastYieldDistribution() uint64 { return p.lastYieldDistribution }

func (p *Pool) emit(evt events.Event) {
	if p.sink == nil || evt == nil {
		return
	}
	p.sink.AppendEvent(evt.Event())
}

func (p *Pool) enter() error {
	if p.entered {
		return ErrReentrancy
	}
	p.entered = true
	return nil
}

func (p *Pool) leave() { p.entered = false }

func (p *Pool) user(addr Address) *User {
	u, ok := p.users[addr]
	if !ok {
		u = newUser()
		p.users[addr] = u
	}
	return u
}

func (p *Pool) isRewardPool() bool {
	return p.poolTokenName == p.factory.rewardTokenName
}

// sync advances the yield accumulator to now, applying a pending decay step
// first so the first second after a decay already uses the decayed rate.
func (p *Pool) sync() {
	f := p.factory
	if f.ShouldUpdateRatio() {
		f.updateRewardPerSecond()
	}
	end := f.endTime
	if p.lastYieldDistribution >= end {
		return
	}
	now := p.clock.Now()
	if now <= p.lastYieldDistribution {
		return
	}
	if p.globalWeight.Sign() == 0 {
		p.lastYieldDistribution = now
		p.emitSynced()
		return
	}
	capped := now
	if capped > end {
		capped = end
	}
	if f.totalWeight == 0 {
		p.lastYieldDistribution = capped
		p.emitSynced()
		return
	}
	delta := new(big.Int).SetUint64(capped - p.lastYieldDistribution)
	reward := delta.Mul(delta, f.rewardPerSecond)
	reward.Mul(reward, new(big.Int).SetUint64(uint64(p.weight)))
	reward.Quo(reward, new(big.Int).SetUint64(uint64(f.totalWeight)))
	p.yieldRewardsPerWeight.Add(p.yieldRewardsPerWeight, RewardPerWeight(reward, p.globalWeight))
	p.lastYieldDistribution = capped
	p.emitSynced()
}

func (p *Pool) emitSynced() {
	p.emit(events.Synced{
		Pool:                  p.poolTokenName,
		YieldRewardsPerWeight: copyBigInt(p.yieldRewardsPerWeight),
		LastYieldDistribution: p.lastYieldDistribution,
	})
}

// Sync is the public entry for keepers that want to advance the accumulator
// without touching any stake.
func (p *Pool) Sync() {
	p.sync()
}

// processRewards crystallises the user's pending yield into the stored
// scalar and returns the vault reward owed since the last checkpoint. The
// caller settles the vault amount during its transfer phase.
func (p *Pool) processRewards(addr Address, u *User) *big.Int {
	eff := u.effectiveWeight()
	pendingYield := WeightToReward(eff, p.yieldRewardsPerWeight)
	pendingYield.Sub(pendingYield, u.SubYieldRewards)
	if pendingYield.Sign() > 0 {
		u.PendingYield.Add(u.PendingYield, pendingYield)
	}
	pendingVault := WeightToReward(eff, p.vaultRewardsPerWeight)
	pendingVault.Sub(pendingVault, u.SubVaultRewards)
	if pendingVault.Sign() < 0 {
		pendingVault.SetInt64(0)
	}
	if pendingYield.Sign() > 0 || pendingVault.Sign() > 0 {
		p.emit(events.RewardsProcessed{
			Pool:        p.poolTokenName,
			Addr:        addr,
			YieldAmount: copyBigInt(pendingYield),
			VaultAmount: copyBigInt(pendingVault),
		})
	}
	return pendingVault
}

// refreshSubRewards recomputes both checkpoints from the user's current
// effective weight. Every weight mutation must be followed by this call.
func (p *Pool) refreshSubRewards(u *User) {
	eff := u.effectiveWeight()
	u.SubYieldRewards = WeightToReward(eff, p.yieldRewardsPerWeight)
	u.SubVaultRewards = WeightToReward(eff, p.vaultRewardsPerWeight)
}

func (p *Pool) payoutVault(addr Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return p.factory.rewardToken.Transfer(p.address, addr, amount)
}

// transferIn pulls value from the staker and credits the measured balance
// delta, so fee-on-transfer deposit tokens cannot inflate the reserve.
func (p *Pool) transferIn(from Address, value *big.Int) (*big.Int, error) {
	before := p.poolToken.BalanceOf(p.address)
	if err := p.poolToken.TransferFrom(p.address, from, p.address, value); err != nil {
		return nil, err
	}
	after := p.poolToken.BalanceOf(p.address)
	return new(big.Int).Sub(after, before), nil
}

func checkValue(value *big.Int) error {
	if value == nil || value.Sign() <= 0 {
		return ErrZeroValue
	}
	if value.Cmp(maxStakeValue) > 0 {
		return ErrValueTooLarge
	}
	return nil
}

func (p *Pool) addWeight(u *User, weight *big.Int) {
	u.TotalWeight.Add(u.TotalWeight, weight)
	p.globalWeight.Add(p.globalWeight, weight)
}

func (p *Pool) removeWeight(u *User, weight *big.Int) {
	u.TotalWeight.Sub(u.TotalWeight, weight)
	p.globalWeight.Sub(p.globalWeight, weight)
}

// StakeFlexible deposits value into the caller's unlocked balance.
func (p *Pool) StakeFlexible(addr Address, value *big.Int) error {
	if err := checkValue(value); err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	u := p.user(addr)
	vaultPending := p.processRewards(addr, u)

	added, err := p.transferIn(addr, value)
	if err != nil {
		return err
	}
	u.FlexibleBalance.Add(u.FlexibleBalance, added)
	weight := new(big.Int).Mul(added, weightMult)
	p.addWeight(u, weight)
	p.poolTokenReserve.Add(p.poolTokenReserve, added)

	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.StakedFlexible{Pool: p.poolTokenName, Addr: addr, Value: copyBigInt(added), Weight: weight})
	return nil
}

// StakeAndLock deposits value into a new stake position, optionally locked
// until lockUntil. A zero lockUntil opens an unlocked position.
func (p *Pool) StakeAndLock(addr Address, value *big.Int, lockUntil uint64) error {
	if err := checkValue(value); err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	now := p.clock.Now()
	if lockUntil != 0 && (lockUntil <= now || lockUntil-now > MaxLockSeconds) {
		return ErrInvalidLock
	}
	u := p.user(addr)
	vaultPending := p.processRewards(addr, u)

	added, err := p.transferIn(addr, value)
	if err != nil {
		return err
	}
	var lockedFrom uint64
	if lockUntil > 0 {
		lockedFrom = now
	}
	stake := &Stake{Value: added, LockedFrom: lockedFrom, LockedUntil: lockUntil}
	u.Stakes = append(u.Stakes, stake)
	weight := LockWeight(added, lockedFrom, lockUntil)
	p.addWeight(u, weight)
	p.poolTokenReserve.Add(p.poolTokenReserve, added)

	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.StakedLocked{
		Pool:        p.poolTokenName,
		Addr:        addr,
		StakeID:     len(u.Stakes) - 1,
		Value:       copyBigInt(added),
		Weight:      weight,
		LockedUntil: lockUntil,
	})
	return nil
}

// UnstakeFlexible withdraws value from the caller's unlocked balance.
func (p *Pool) UnstakeFlexible(addr Address, value *big.Int) error {
	if err := checkValue(value); err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	u := p.user(addr)
	if u.FlexibleBalance.Cmp(value) < 0 {
		return ErrInsufficientBalance
	}
	vaultPending := p.processRewards(addr, u)

	u.FlexibleBalance.Sub(u.FlexibleBalance, value)
	weight := new(big.Int).Mul(value, weightMult)
	p.removeWeight(u, weight)
	p.poolTokenReserve.Sub(p.poolTokenReserve, value)

	if err := p.poolToken.Transfer(p.address, addr, value); err != nil {
		return err
	}
	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.UnstakedFlexible{Pool: p.poolTokenName, Addr: addr, Value: copyBigInt(value)})
	return nil
}

func (p *Pool) stakeAt(u *User, id int) (*Stake, error) {
	if id < 0 || id >= len(u.Stakes) || u.Stakes[id].tombstone() {
		return nil, ErrUnknownStake
	}
	return u.Stakes[id], nil
}

// UnstakeLocked withdraws value from an unlocked stake position. Yield
// stakes are materialised by minting; regular stakes transfer out.
func (p *Pool) UnstakeLocked(addr Address, id int, value *big.Int) error {
	if err := checkValue(value); err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	now := p.clock.Now()
	u := p.user(addr)
	stake, err := p.stakeAt(u, id)
	if err != nil {
		return err
	}
	if now <= stake.LockedUntil {
		return ErrStillLocked
	}
	if stake.Value.Cmp(value) < 0 {
		return ErrValueExceedsStake
	}
	vaultPending := p.processRewards(addr, u)

	oldWeight := LockWeight(stake.Value, stake.LockedFrom, stake.LockedUntil)
	stake.Value = new(big.Int).Sub(stake.Value, value)
	newWeight := LockWeight(stake.Value, stake.LockedFrom, stake.LockedUntil)
	p.removeWeight(u, new(big.Int).Sub(oldWeight, newWeight))
	p.poolTokenReserve.Sub(p.poolTokenReserve, value)

	if stake.IsYield {
		if err := p.factory.MintYieldTo(p, addr, value, false); err != nil {
			return err
		}
	} else {
		if err := p.poolToken.Transfer(p.address, addr, value); err != nil {
			return err
		}
	}
	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.UnstakedLocked{Pool: p.poolTokenName, Addr: addr, Value: copyBigInt(value), IsYield: stake.IsYield, Stakes: 1})
	return nil
}

// UnstakeLockedMultiple folds several unstakes into one settlement. Every
// referenced stake must be unlocked and carry the supplied yield flag; the
// total is moved with a single transfer or mint.
func (p *Pool) UnstakeLockedMultiple(addr Address, items []UnstakeItem, isYield bool) error {
	if len(items) == 0 {
		return ErrEmptyBatch
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	now := p.clock.Now()
	u := p.user(addr)

	// Compose per-stake totals before touching anything so a bad item, a
	// duplicate id overdraw included, rejects the whole batch.
	totals := make(map[int]*big.Int)
	order := make([]int, 0, len(items))
	grand := big.NewInt(0)
	for _, item := range items {
		if err := checkValue(item.Value); err != nil {
			return err
		}
		stake, err := p.stakeAt(u, item.StakeID)
		if err != nil {
			return err
		}
		if now <= stake.LockedUntil {
			return ErrStillLocked
		}
		if stake.IsYield != isYield {
			return ErrYieldFlagMismatch
		}
		total, ok := totals[item.StakeID]
		if !ok {
			total = big.NewInt(0)
			totals[item.StakeID] = total
			order = append(order, item.StakeID)
		}
		total.Add(total, item.Value)
		if stake.Value.Cmp(total) < 0 {
			return ErrValueExceedsStake
		}
		grand.Add(grand, item.Value)
	}

	vaultPending := p.processRewards(addr, u)

	for _, id := range order {
		stake := u.Stakes[id]
		total := totals[id]
		oldWeight := LockWeight(stake.Value, stake.LockedFrom, stake.LockedUntil)
		stake.Value = new(big.Int).Sub(stake.Value, total)
		newWeight := LockWeight(stake.Value, stake.LockedFrom, stake.LockedUntil)
		p.removeWeight(u, new(big.Int).Sub(oldWeight, newWeight))
	}
	p.poolTokenReserve.Sub(p.poolTokenReserve, grand)

	if isYield {
		if err := p.factory.MintYieldTo(p, addr, grand, false); err != nil {
			return err
		}
	} else {
		if err := p.poolToken.Transfer(p.address, addr, grand); err != nil {
			return err
		}
	}
	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.UnstakedLocked{Pool: p.poolTokenName, Addr: addr, Value: grand, IsYield: isYield, Stakes: len(order)})
	return nil
}

// UpdateStakeLock extends the lock of an existing position. An unlocked
// position starts its lock at now; a locked one keeps its origin, and the
// extended span must stay within the maximum lock.
func (p *Pool) UpdateStakeLock(addr Address, id int, lockUntil uint64) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	now := p.clock.Now()
	u := p.user(addr)
	stake, err := p.stakeAt(u, id)
	if err != nil {
		return err
	}
	if lockUntil <= now || lockUntil <= stake.LockedUntil {
		return ErrInvalidLockExtension
	}
	lockedFrom := stake.LockedFrom
	if lockedFrom == 0 {
		if lockUntil-now > MaxLockSeconds {
			return ErrInvalidLockExtension
		}
		lockedFrom = now
	} else if lockUntil-lockedFrom > MaxLockSeconds {
		return ErrInvalidLockExtension
	}
	vaultPending := p.processRewards(addr, u)

	oldWeight := LockWeight(stake.Value, stake.LockedFrom, stake.LockedUntil)
	stake.LockedFrom = lockedFrom
	stake.LockedUntil = lockUntil
	newWeight := LockWeight(stake.Value, stake.LockedFrom, stake.LockedUntil)
	delta := new(big.Int).Sub(newWeight, oldWeight)
	p.addWeight(u, delta)

	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.LockExtended{
		Pool:        p.poolTokenName,
		Addr:        addr,
		StakeID:     id,
		LockedUntil: lockUntil,
		WeightDelta: delta,
	})
	return nil
}

// ClaimRewards settles the caller's accrued yield: escrowed mint when
// useEscrow is set, otherwise compounded into a max-lock yield stake on the
// reward-token pool.
func (p *Pool) ClaimRewards(addr Address, useEscrow bool) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()
	return p.claim(addr, useEscrow)
}

// ClaimRewardsFromRouter settles rewards for staker on behalf of the
// reward-token pool. Only the registered reward pool may route claims; the
// staker argument itself is taken on trust.
func (p *Pool) ClaimRewardsFromRouter(caller *Pool, staker Address, useEscrow bool) error {
	if caller == nil || !caller.isRewardPool() || !p.factory.IsPoolRegistered(caller) {
		return ErrNotRouter
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()
	return p.claim(staker, useEscrow)
}

func (p *Pool) claim(addr Address, useEscrow bool) error {
	p.sync()
	u := p.user(addr)
	vaultPending := p.processRewards(addr, u)

	pending := u.PendingYield
	if pending.Sign() == 0 {
		if err := p.payoutVault(addr, vaultPending); err != nil {
			return err
		}
		p.refreshSubRewards(u)
		return nil
	}
	u.PendingYield = big.NewInt(0)

	switch {
	case useEscrow:
		if err := p.factory.MintYieldTo(p, addr, pending, true); err != nil {
			return err
		}
	case p.isRewardPool():
		p.openYieldStake(u, pending)
	default:
		rewardPool, err := p.factory.GetPool(p.factory.rewardTokenName)
		if err != nil {
			return err
		}
		if err := rewardPool.StakeAsPool(p, addr, pending); err != nil {
			return err
		}
	}

	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.RewardsClaimed{Pool: p.poolTokenName, Addr: addr, Value: pending, UseEscrow: useEscrow})
	return nil
}

// openYieldStake appends a compounding stake for a just-claimed reward. The
// value is owed rather than held; it is materialised by minting on unstake.
func (p *Pool) openYieldStake(u *User, value *big.Int) {
	now := p.clock.Now()
	stake := &Stake{
		Value:       copyBigInt(value),
		LockedFrom:  now,
		LockedUntil: now + MaxLockSeconds,
		IsYield:     true,
	}
	u.Stakes = append(u.Stakes, stake)
	weight := new(big.Int).Mul(value, big.NewInt(YearWeightMult))
	p.addWeight(u, weight)
	p.poolTokenReserve.Add(p.poolTokenReserve, value)
}

// StakeAsPool mirrors a compounding claim on behalf of a user of another
// registered pool. Only the reward-token pool accepts the call.
func (p *Pool) StakeAsPool(caller *Pool, addr Address, amount *big.Int) error {
	if caller == nil || !p.factory.IsPoolRegistered(caller) {
		return ErrAccessDenied
	}
	if !p.isRewardPool() {
		return ErrAccessDenied
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	u := p.user(addr)
	vaultPending := p.processRewards(addr, u)
	p.openYieldStake(u, amount)
	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.StakedLocked{
		Pool:        p.poolTokenName,
		Addr:        addr,
		StakeID:     len(u.Stakes) - 1,
		Value:       copyBigInt(amount),
		Weight:      new(big.Int).Mul(amount, big.NewInt(YearWeightMult)),
		LockedUntil: u.Stakes[len(u.Stakes)-1].LockedUntil,
	})
	return nil
}

// ClaimRewardsMultiple routes one claim per pool through the reward pool,
// settling the reward pool's own rewards directly.
func (p *Pool) ClaimRewardsMultiple(addr Address, pools []*Pool, useEscrow []bool) error {
	if !p.isRewardPool() {
		return ErrAccessDenied
	}
	if len(pools) != len(useEscrow) {
		return ErrEmptyBatch
	}
	for i, target := range pools {
		if target == p {
			if err := p.ClaimRewards(addr, useEscrow[i]); err != nil {
				return err
			}
			continue
		}
		if err := target.ClaimRewardsFromRouter(p, addr, useEscrow[i]); err != nil {
			return err
		}
	}
	return nil
}

// MigrateUser moves the aggregate record to a pristine destination account.
// Ingested v1 references are left behind on the source record.
func (p *Pool) MigrateUser(addr, to Address) error {
	if to == (Address{}) {
		return ErrZeroAddress
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	source := p.user(addr)
	dest := p.user(to)
	if dest.TotalWeight.Sign() != 0 || dest.V1IDsLength() != 0 || dest.PendingYield.Sign() != 0 {
		return ErrDestinationNotEmpty
	}

	dest.Stakes = source.Stakes
	dest.FlexibleBalance = source.FlexibleBalance
	dest.TotalWeight = source.TotalWeight
	dest.SubYieldRewards = source.SubYieldRewards
	dest.SubVaultRewards = source.SubVaultRewards
	dest.PendingYield = source.PendingYield

	tombstones := make([]*Stake, len(dest.Stakes))
	for i := range tombstones {
		tombstones[i] = &Stake{Value: big.NewInt(0)}
	}
	source.Stakes = tombstones
	source.FlexibleBalance = big.NewInt(0)
	source.TotalWeight = big.NewInt(0)
	source.SubYieldRewards = big.NewInt(0)
	source.SubVaultRewards = big.NewInt(0)
	source.PendingYield = big.NewInt(0)

	p.emit(events.UserMigrated{Pool: p.poolTokenName, From: addr, To: to})
	return nil
}

func (p *Pool) setWeight(caller *Factory, callerAddr Address, weight uint32) error {
	if caller != p.factory {
		return ErrNotFactory
	}
	p.weight = weight
	// The field is overwritten before the event is formed, so both sides
	// report the new value.
	p.emit(events.PoolWeightChanged{
		Caller:    callerAddr,
		PoolToken: p.poolTokenName,
		From:      p.weight,
		To:        p.weight,
	})
	return nil
}
