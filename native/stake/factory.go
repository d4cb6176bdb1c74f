package stake

import (
	"math/big"

	"yieldhub/core/events"
	"yieldhub/core/types"
)

const (
	decayNumerator   = 97
	decayDenominator = 100
)

// EventSink receives the typed events emitted by the engine.
type EventSink interface {
	AppendEvent(evt *types.Event)
}

// PoolData summarises a registered pool for external callers.
type PoolData struct {
	PoolToken string
	Pool      *Pool
	Weight    uint32
	IsFlash   bool
}

// FactoryConfig carries the emission bootstrap for a new factory.
type FactoryConfig struct {
	Owner            Address
	RewardToken      MintableToken
	EscrowToken      MintableToken
	RewardTokenName  string
	RewardPerSecond  *big.Int
	SecondsPerUpdate uint64
	InitTime         uint64
	EndTime          uint64
}

// Factory owns the global emission schedule and the pool registry. Pools ask
// it for freshly minted rewards and read the emission split through it.
type Factory struct {
	clock Clock
	sink  EventSink

	owner           Address
	rewardToken     MintableToken
	escrowToken     MintableToken
	rewardTokenName string

	rewardPerSecond  *big.Int
	totalWeight      uint32
	secondsPerUpdate uint64
	lastRatioUpdate  uint64
	endTime          uint64

	pools      map[string]*Pool
	registered map[*Pool]bool
}

// NewFactory constructs a factory with the supplied emission bootstrap.
func NewFactory(clock Clock, sink EventSink, cfg FactoryConfig) *Factory {
	return &Factory{
		clock:            clock,
		sink:             sink,
		owner:            cfg.Owner,
		rewardToken:      cfg.RewardToken,
		escrowToken:      cfg.EscrowToken,
		rewardTokenName:  cfg.RewardTokenName,
		rewardPerSecond:  copyBigInt(cfg.RewardPerSecond),
		secondsPerUpdate: cfg.SecondsPerUpdate,
		lastRatioUpdate:  cfg.InitTime,
		endTime:          cfg.EndTime,
		pools:            make(map[string]*Pool),
		registered:       make(map[*Pool]bool),
	}
}

func (f *Factory) emit(evt events.Event) {
	if f.sink == nil || evt == nil {
		return
	}
	f.sink.AppendEvent(evt.Event())
}

// Owner returns the factory owner address.
func (f *Factory) Owner() Address { return f.owner }

// RewardPerSecond returns the current emission rate.
func (f *Factory) RewardPerSecond() *big.Int { return copyBigInt(f.rewardPerSecond) }

// TotalWeight returns the sum of registered pool weights.
func (f *Factory) TotalWeight() uint32 { return f.totalWeight }

// EndTime returns the emission horizon.
func (f *Factory) EndTime() uint64 { return f.endTime }

// LastRatioUpdate returns the timestamp of the last decay step.
func (f *Factory) LastRatioUpdate() uint64 { return f.lastRatioUpdate }

// ShouldUpdateRatio reports whether the decay interval has elapsed and the
// emission horizon has not passed.
func (f *Factory) ShouldUpdateRatio() bool {
	now := f.clock.Now()
	if now > f.endTime {
		return false
	}
	return now >= f.lastRatioUpdate+f.secondsPerUpdate
}

// UpdateRewardPerSecond applies one 3% decay step. Callers racing the
// interval gate receive ErrTooSoon.
func (f *Factory) UpdateRewardPerSecond() error {
	if !f.ShouldUpdateRatio() {
		return ErrTooSoon
	}
	f.updateRewardPerSecond()
	return nil
}

func (f *Factory) updateRewardPerSecond() {
	f.rewardPerSecond.Mul(f.rewardPerSecond, big.NewInt(decayNumerator))
	f.rewardPerSecond.Quo(f.rewardPerSecond, big.NewInt(decayDenominator))
	f.lastRatioUpdate = f.clock.Now()
	f.emit(events.RewardPerSecondUpdated{
		RewardPerSecond: copyBigInt(f.rewardPerSecond),
		UpdatedAt:       f.lastRatioUpdate,
	})
}

// RegisterPool records the pool under its pool token. Registering a second
// pool for the same token overwrites the mapping; the weight of both remains
// counted until the stale pool is zeroed out.
func (f *Factory) RegisterPool(caller Address, p *Pool) error {
	if caller != f.owner {
		return ErrAccessDenied
	}
	f.pools[p.PoolToken()] = p
	f.registered[p] = true
	f.totalWeight += p.Weight()
	f.emit(events.PoolRegistered{
		Caller:    caller,
		PoolToken: p.PoolToken(),
		Weight:    p.Weight(),
		IsFlash:   p.IsFlashPool(),
	})
	return nil
}

// ChangePoolWeight adjusts a pool's emission share. The owner or the pool
// itself may call it; setting zero disables the pool without touching
// deposits.
func (f *Factory) ChangePoolWeight(caller Address, p *Pool, weight uint32) error {
	if caller != f.owner && caller != p.Address() {
		return ErrAccessDenied
	}
	if !f.registered[p] {
		return ErrUnknownPool
	}
	f.totalWeight = f.totalWeight + weight - p.Weight()
	return p.setWeight(f, caller, weight)
}

// MintYieldTo mints the reward token, or its escrowed variant, on behalf of
// a registered pool.
func (f *Factory) MintYieldTo(caller *Pool, to Address, value *big.Int, useEscrow bool) error {
	if !f.registered[caller] {
		return ErrUnknownPool
	}
	if useEscrow {
		return f.escrowToken.Mint(f.owner, to, value)
	}
	return f.rewardToken.Mint(f.owner, to, value)
}

// SetEndTime moves the emission horizon. The new horizon must lie beyond the
// last decay step.
func (f *Factory) SetEndTime(caller Address, endTime uint64) error {
	if caller != f.owner {
		return ErrAccessDenied
	}
	if endTime <= f.lastRatioUpdate {
		return ErrInvalidEndTime
	}
	f.endTime = endTime
	f.emit(events.EndTimeUpdated{Caller: caller, EndTime: endTime})
	return nil
}

// GetPoolAddress resolves the pool registered for the given token.
func (f *Factory) GetPoolAddress(poolToken string) (Address, error) {
	p, ok := f.pools[poolToken]
	if !ok {
		return Address{}, ErrUnknownPool
	}
	return p.Address(), nil
}

// GetPool resolves the registered pool for the given token.
func (f *Factory) GetPool(poolToken string) (*Pool, error) {
	p, ok := f.pools[poolToken]
	if !ok {
		return nil, ErrUnknownPool
	}
	return p, nil
}

// GetPoolData returns the registry record for the given token.
func (f *Factory) GetPoolData(poolToken string) (PoolData, error) {
	p, ok := f.pools[poolToken]
	if !ok {
		return PoolData{}, ErrUnknownPool
	}
	return PoolData{
		PoolToken: p.PoolToken(),
		Pool:      p,
		Weight:    p.Weight(),
		IsFlash:   p.IsFlashPool(),
	}, nil
}

// Pools lists the registered pools keyed by pool token.
func (f *Factory) Pools() map[string]*Pool {
	out := make(map[string]*Pool, len(f.pools))
	for token, p := range f.pools {
		out[token] = p
	}
	return out
}

// IsPoolRegistered reports whether the pool was registered with the factory.
func (f *Factory) IsPoolRegistered(p *Pool) bool { return f.registered[p] }

// attachPool rebinds a restored pool without growing the weight split; the
// snapshot already carries the aggregate total.
func (f *Factory) attachPool(p *Pool) {
	f.pools[p.poolTokenName] = p
	f.registered[p] = true
}
