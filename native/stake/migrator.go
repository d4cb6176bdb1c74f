package stake

import (
	"fmt"
	"math/big"

	"yieldhub/core/events"
)

// MigrateLockedStake ingests references to locked stakes held in the legacy
// pool. Only the legacy weight is recorded; the tokens stay in the v1 pool
// and the weight counts as a translated bonus during reward computation,
// never in the stored totals.
func (p *Pool) MigrateLockedStake(addr Address, ids []*big.Int) error {
	if len(ids) == 0 {
		return ErrEmptyBatch
	}
	if p.v1Pool == nil {
		return ErrV1StakeRejected
	}
	p.sync()
	u := p.user(addr)

	deposits := make([]V1Deposit, len(ids))
	for i, id := range ids {
		if id == nil || id.Sign() == 0 {
			return ErrV1StakeRejected
		}
		if _, used := u.V1StakeWeights[id.String()]; used {
			return ErrAlreadyMigrated
		}
		for j := 0; j < i; j++ {
			if ids[j].Cmp(id) == 0 {
				return ErrAlreadyMigrated
			}
		}
		dep, err := p.v1Pool.GetDeposit(addr, id)
		if err != nil {
			return fmt.Errorf("stake: read v1 deposit %s: %w", id, err)
		}
		if dep.IsYield || dep.LockedFrom == 0 || dep.LockedFrom > p.v1StakeMaxPeriod {
			return ErrV1StakeRejected
		}
		deposits[i] = dep
	}

	vaultPending := p.processRewards(addr, u)
	for i, id := range ids {
		u.addV1Weight(id, deposits[i].Weight)
	}
	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.LockedStakesMigratedFromV1{Pool: p.poolTokenName, Addr: addr, StakeIDs: ids})
	return nil
}

// FillStakeID materialises a matured v1 stake into a real position: the
// expired lock interval prices the weight, the slot is tombstoned, and the
// bonus stops counting in favour of the stored weight.
func (p *Pool) FillStakeID(addr Address, position int) error {
	if p.v1Pool == nil {
		return ErrV1StakeRejected
	}
	p.sync()
	now := p.clock.Now()
	u := p.user(addr)
	if position < 0 || position >= len(u.V1StakeIDs) {
		return ErrUnknownStake
	}
	id := u.V1StakeIDs[position]
	if id == nil || id.Sign() == 0 {
		return ErrUnknownStake
	}
	dep, err := p.v1Pool.GetDeposit(addr, id)
	if err != nil {
		return fmt.Errorf("stake: read v1 deposit %s: %w", id, err)
	}
	if dep.IsYield {
		return ErrV1StakeRejected
	}
	if now <= dep.LockedUntil {
		return ErrStillLocked
	}

	vaultPending := p.processRewards(addr, u)
	stake := &Stake{
		Value:       copyBigInt(dep.Value),
		LockedFrom:  dep.LockedFrom,
		LockedUntil: dep.LockedUntil,
	}
	u.Stakes = append(u.Stakes, stake)
	weight := LockWeight(stake.Value, stake.LockedFrom, stake.LockedUntil)
	p.addWeight(u, weight)
	u.clearV1Slot(position)

	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.V1StakeFilled{
		Pool:    p.poolTokenName,
		Addr:    addr,
		V1ID:    copyBigInt(id),
		StakeID: len(u.Stakes) - 1,
		Value:   copyBigInt(stake.Value),
		Weight:  weight,
	})
	return nil
}

// MintV1Yield mints the reward token for one matured legacy yield stake.
func (p *Pool) MintV1Yield(addr Address, id *big.Int) error {
	return p.MintV1YieldMultiple(addr, []*big.Int{id})
}

// MintV1YieldMultiple mints the reward token for matured legacy yield
// stakes. Each id is marked consumed through the same per-user slot map
// that guards ingestion, so neither path can observe an id twice.
func (p *Pool) MintV1YieldMultiple(addr Address, ids []*big.Int) error {
	if len(ids) == 0 {
		return ErrEmptyBatch
	}
	if p.v1Pool == nil {
		return ErrV1StakeRejected
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	now := p.clock.Now()
	u := p.user(addr)

	total := big.NewInt(0)
	values := make([]*big.Int, len(ids))
	for i, id := range ids {
		if id == nil || id.Sign() == 0 {
			return ErrV1StakeRejected
		}
		if _, used := u.V1StakeWeights[id.String()]; used {
			return ErrAlreadyMigrated
		}
		for j := 0; j < i; j++ {
			if ids[j].Cmp(id) == 0 {
				return ErrAlreadyMigrated
			}
		}
		dep, err := p.v1Pool.GetDeposit(addr, id)
		if err != nil {
			return fmt.Errorf("stake: read v1 deposit %s: %w", id, err)
		}
		if !dep.IsYield {
			return ErrV1StakeRejected
		}
		if now <= dep.LockedUntil {
			return ErrStillLocked
		}
		values[i] = copyBigInt(dep.Value)
		total.Add(total, dep.Value)
	}

	vaultPending := p.processRewards(addr, u)
	for i, id := range ids {
		u.V1StakeWeights[id.String()] = values[i]
	}
	if err := p.factory.MintYieldTo(p, addr, total, false); err != nil {
		return err
	}
	if err := p.payoutVault(addr, vaultPending); err != nil {
		return err
	}
	p.refreshSubRewards(u)
	p.emit(events.V1YieldMinted{Pool: p.poolTokenName, Addr: addr, Value: total, IDs: len(ids)})
	return nil
}
