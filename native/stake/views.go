package stake

import "math/big"

// Users returns a deep copy of the stored record for the address, or nil if
// the account has never interacted with the pool.
func (p *Pool) Users(addr Address) *User {
	u, ok := p.users[addr]
	if !ok {
		return nil
	}
	clone := &User{
		Stakes:          make([]*Stake, len(u.Stakes)),
		FlexibleBalance: copyBigInt(u.FlexibleBalance),
		TotalWeight:     copyBigInt(u.TotalWeight),
		SubYieldRewards: copyBigInt(u.SubYieldRewards),
		SubVaultRewards: copyBigInt(u.SubVaultRewards),
		PendingYield:    copyBigInt(u.PendingYield),
		V1StakeIDs:      make([]*big.Int, len(u.V1StakeIDs)),
		V1StakeWeights:  make(map[string]*big.Int, len(u.V1StakeWeights)),
		v1BonusWeight:   copyBigInt(u.v1BonusWeight),
	}
	for i, s := range u.Stakes {
		clone.Stakes[i] = s.Clone()
	}
	for i, id := range u.V1StakeIDs {
		clone.V1StakeIDs[i] = copyBigInt(id)
	}
	for id, w := range u.V1StakeWeights {
		clone.V1StakeWeights[id] = copyBigInt(w)
	}
	return clone
}

// GetStake returns a copy of the stake at the given position.
func (p *Pool) GetStake(addr Address, id int) (*Stake, error) {
	u, ok := p.users[addr]
	if !ok {
		return nil, ErrUnknownStake
	}
	if id < 0 || id >= len(u.Stakes) {
		return nil, ErrUnknownStake
	}
	return u.Stakes[id].Clone(), nil
}

// GetStakesLength returns the number of stake positions, tombstones
// included.
func (p *Pool) GetStakesLength(addr Address) int {
	u, ok := p.users[addr]
	if !ok {
		return 0
	}
	return len(u.Stakes)
}

// GetV1StakeID returns the ingested v1 id stored at the given slot.
func (p *Pool) GetV1StakeID(addr Address, position int) (*big.Int, error) {
	u, ok := p.users[addr]
	if !ok || position < 0 || position >= len(u.V1StakeIDs) {
		return nil, ErrUnknownStake
	}
	return copyBigInt(u.V1StakeIDs[position]), nil
}

// GetV1StakePosition scans the slots for the given v1 id. It returns 0 both
// for "found at slot 0" and "not found"; callers that need to distinguish
// use LookupV1StakePosition.
func (p *Pool) GetV1StakePosition(addr Address, id *big.Int) int {
	pos, _ := p.LookupV1StakePosition(addr, id)
	return pos
}

// LookupV1StakePosition scans the slots for the given v1 id, reporting
// whether it was found.
func (p *Pool) LookupV1StakePosition(addr Address, id *big.Int) (int, bool) {
	u, ok := p.users[addr]
	if !ok || id == nil {
		return 0, false
	}
	for pos, slot := range u.V1StakeIDs {
		if slot != nil && slot.Cmp(id) == 0 {
			return pos, true
		}
	}
	return 0, false
}

// BalanceOf returns the sum of live stake values and the flexible balance.
func (p *Pool) BalanceOf(addr Address) *big.Int {
	total := big.NewInt(0)
	u, ok := p.users[addr]
	if !ok {
		return total
	}
	total.Add(total, u.FlexibleBalance)
	for _, s := range u.Stakes {
		if !s.tombstone() {
			total.Add(total, s.Value)
		}
	}
	return total
}

// PendingRewards reports the yield the address would crystallise if it
// synced now: the accumulator is advanced to now in memory and the v1 bonus
// weight is included.
func (p *Pool) PendingRewards(addr Address) *big.Int {
	u, ok := p.users[addr]
	if !ok {
		return big.NewInt(0)
	}
	rpw := p.liveYieldRewardsPerWeight()
	pending := WeightToReward(u.effectiveWeight(), rpw)
	pending.Sub(pending, u.SubYieldRewards)
	if pending.Sign() < 0 {
		pending.SetInt64(0)
	}
	return pending.Add(pending, u.PendingYield)
}

// PendingVaultRewards reports the unsettled vault reward for the address.
func (p *Pool) PendingVaultRewards(addr Address) *big.Int {
	u, ok := p.users[addr]
	if !ok {
		return big.NewInt(0)
	}
	pending := WeightToReward(u.effectiveWeight(), p.vaultRewardsPerWeight)
	pending.Sub(pending, u.SubVaultRewards)
	if pending.Sign() < 0 {
		pending.SetInt64(0)
	}
	return pending
}

// liveYieldRewardsPerWeight projects the accumulator to now without
// mutating pool state. The current emission rate is used as-is; a pending
// decay step only lands on a real sync.
func (p *Pool) liveYieldRewardsPerWeight() *big.Int {
	rpw := copyBigInt(p.yieldRewardsPerWeight)
	f := p.factory
	now := p.clock.Now()
	end := f.endTime
	if p.lastYieldDistribution >= end || now <= p.lastYieldDistribution {
		return rpw
	}
	if p.globalWeight.Sign() == 0 || f.totalWeight == 0 {
		return rpw
	}
	capped := now
	if capped > end {
		capped = end
	}
	delta := new(big.Int).SetUint64(capped - p.lastYieldDistribution)
	reward := delta.Mul(delta, f.rewardPerSecond)
	reward.Mul(reward, new(big.Int).SetUint64(uint64(p.weight)))
	reward.Quo(reward, new(big.Int).SetUint64(uint64(f.totalWeight)))
	return rpw.Add(rpw, RewardPerWeight(reward, p.globalWeight))
}
