package stake

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"yieldhub/storage"
)

const (
	factoryKey     = "stake/factory"
	poolKeyFormat  = "stake/pool/%s"
	snapshotScheme = 1
)

type storedStake struct {
	Value       *big.Int
	LockedFrom  uint64
	LockedUntil uint64
	IsYield     bool
}

type storedV1Weight struct {
	ID     *big.Int
	Weight *big.Int
}

type storedUser struct {
	Addr            [20]byte
	Stakes          []storedStake
	FlexibleBalance *big.Int
	TotalWeight     *big.Int
	SubYieldRewards *big.Int
	SubVaultRewards *big.Int
	PendingYield    *big.Int
	V1StakeIDs      []*big.Int
	V1Weights       []storedV1Weight
	V1BonusWeight   *big.Int
}

type storedPool struct {
	Scheme                uint64
	PoolToken             string
	Address               [20]byte
	IsFlash               bool
	Weight                uint32
	LastYieldDistribution uint64
	YieldRewardsPerWeight *big.Int
	VaultRewardsPerWeight *big.Int
	GlobalWeight          *big.Int
	PoolTokenReserve      *big.Int
	Vault                 [20]byte
	V1StakeMaxPeriod      uint64
	Users                 []storedUser
}

type storedFactory struct {
	Scheme           uint64
	Owner            [20]byte
	RewardPerSecond  *big.Int
	TotalWeight      uint32
	SecondsPerUpdate uint64
	LastRatioUpdate  uint64
	EndTime          uint64
	PoolTokens       []string
}

// Store snapshots the engine into a key-value database and restores it.
type Store struct {
	db storage.Database
}

// NewStore binds a snapshot store to the database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Save persists the factory and every registered pool.
func (s *Store) Save(f *Factory) error {
	tokens := make([]string, 0, len(f.pools))
	for token := range f.pools {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	snap := storedFactory{
		Scheme:           snapshotScheme,
		Owner:            f.owner,
		RewardPerSecond:  f.rewardPerSecond,
		TotalWeight:      f.totalWeight,
		SecondsPerUpdate: f.secondsPerUpdate,
		LastRatioUpdate:  f.lastRatioUpdate,
		EndTime:          f.endTime,
		PoolTokens:       tokens,
	}
	encoded, err := rlp.EncodeToBytes(&snap)
	if err != nil {
		return fmt.Errorf("stake: encode factory snapshot: %w", err)
	}
	if err := s.db.Put([]byte(factoryKey), encoded); err != nil {
		return fmt.Errorf("stake: persist factory snapshot: %w", err)
	}
	for _, token := range tokens {
		if err := s.savePool(f.pools[token]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) savePool(p *Pool) error {
	addrs := make([]Address, 0, len(p.users))
	for addr := range p.users {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		a, b := addrs[i], addrs[j]
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})

	snap := storedPool{
		Scheme:                snapshotScheme,
		PoolToken:             p.poolTokenName,
		Address:               p.address,
		IsFlash:               p.isFlashPool,
		Weight:                p.weight,
		LastYieldDistribution: p.lastYieldDistribution,
		YieldRewardsPerWeight: p.yieldRewardsPerWeight,
		VaultRewardsPerWeight: p.vaultRewardsPerWeight,
		GlobalWeight:          p.globalWeight,
		PoolTokenReserve:      p.poolTokenReserve,
		Vault:                 p.vault,
		V1StakeMaxPeriod:      p.v1StakeMaxPeriod,
		Users:                 make([]storedUser, 0, len(addrs)),
	}
	for _, addr := range addrs {
		snap.Users = append(snap.Users, encodeUser(addr, p.users[addr]))
	}
	encoded, err := rlp.EncodeToBytes(&snap)
	if err != nil {
		return fmt.Errorf("stake: encode pool snapshot %s: %w", p.poolTokenName, err)
	}
	key := fmt.Sprintf(poolKeyFormat, p.poolTokenName)
	if err := s.db.Put([]byte(key), encoded); err != nil {
		return fmt.Errorf("stake: persist pool snapshot %s: %w", p.poolTokenName, err)
	}
	return nil
}

func encodeUser(addr Address, u *User) storedUser {
	out := storedUser{
		Addr:            addr,
		Stakes:          make([]storedStake, len(u.Stakes)),
		FlexibleBalance: u.FlexibleBalance,
		TotalWeight:     u.TotalWeight,
		SubYieldRewards: u.SubYieldRewards,
		SubVaultRewards: u.SubVaultRewards,
		PendingYield:    u.PendingYield,
		V1StakeIDs:      u.V1StakeIDs,
		V1BonusWeight:   u.v1BonusWeight,
	}
	for i, stake := range u.Stakes {
		out.Stakes[i] = storedStake{
			Value:       stake.Value,
			LockedFrom:  stake.LockedFrom,
			LockedUntil: stake.LockedUntil,
			IsYield:     stake.IsYield,
		}
	}
	ids := make([]string, 0, len(u.V1StakeWeights))
	for id := range u.V1StakeWeights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		parsed, ok := new(big.Int).SetString(id, 10)
		if !ok {
			continue
		}
		out.V1Weights = append(out.V1Weights, storedV1Weight{ID: parsed, Weight: u.V1StakeWeights[id]})
	}
	return out
}

// LoadDeps supplies the runtime collaborators a restored engine binds to.
type LoadDeps struct {
	Clock           Clock
	Sink            EventSink
	RewardToken     MintableToken
	EscrowToken     MintableToken
	RewardTokenName string
	PoolTokens      map[string]Token
	V1Pools         map[string]V1Pool
}

// Load restores the factory and its pools from the store. It returns
// storage.ErrNotFound when no snapshot exists.
func (s *Store) Load(deps LoadDeps) (*Factory, error) {
	raw, err := s.db.Get([]byte(factoryKey))
	if err != nil {
		return nil, err
	}
	var snap storedFactory
	if err := rlp.DecodeBytes(raw, &snap); err != nil {
		return nil, fmt.Errorf("stake: decode factory snapshot: %w", err)
	}
	f := NewFactory(deps.Clock, deps.Sink, FactoryConfig{
		Owner:            snap.Owner,
		RewardToken:      deps.RewardToken,
		EscrowToken:      deps.EscrowToken,
		RewardTokenName:  deps.RewardTokenName,
		RewardPerSecond:  snap.RewardPerSecond,
		SecondsPerUpdate: snap.SecondsPerUpdate,
		InitTime:         snap.LastRatioUpdate,
		EndTime:          snap.EndTime,
	})
	f.totalWeight = snap.TotalWeight
	for _, token := range snap.PoolTokens {
		p, err := s.loadPool(f, deps, token)
		if err != nil {
			return nil, err
		}
		f.attachPool(p)
	}
	return f, nil
}

func (s *Store) loadPool(f *Factory, deps LoadDeps, token string) (*Pool, error) {
	raw, err := s.db.Get([]byte(fmt.Sprintf(poolKeyFormat, token)))
	if err != nil {
		return nil, fmt.Errorf("stake: pool snapshot %s: %w", token, err)
	}
	var snap storedPool
	if err := rlp.DecodeBytes(raw, &snap); err != nil {
		return nil, fmt.Errorf("stake: decode pool snapshot %s: %w", token, err)
	}
	p := NewPool(f, deps.Clock, deps.Sink, PoolConfig{
		Address:          snap.Address,
		PoolToken:        deps.PoolTokens[token],
		PoolTokenName:    snap.PoolToken,
		IsFlashPool:      snap.IsFlash,
		Weight:           snap.Weight,
		InitTime:         snap.LastYieldDistribution,
		V1Pool:           deps.V1Pools[token],
		V1StakeMaxPeriod: snap.V1StakeMaxPeriod,
	})
	p.yieldRewardsPerWeight = valueOrZero(snap.YieldRewardsPerWeight)
	p.vaultRewardsPerWeight = valueOrZero(snap.VaultRewardsPerWeight)
	p.globalWeight = valueOrZero(snap.GlobalWeight)
	p.poolTokenReserve = valueOrZero(snap.PoolTokenReserve)
	p.vault = snap.Vault
	for _, su := range snap.Users {
		p.users[su.Addr] = decodeUser(su)
	}
	return p, nil
}

func decodeUser(su storedUser) *User {
	u := newUser()
	u.FlexibleBalance = valueOrZero(su.FlexibleBalance)
	u.TotalWeight = valueOrZero(su.TotalWeight)
	u.SubYieldRewards = valueOrZero(su.SubYieldRewards)
	u.SubVaultRewards = valueOrZero(su.SubVaultRewards)
	u.PendingYield = valueOrZero(su.PendingYield)
	u.v1BonusWeight = valueOrZero(su.V1BonusWeight)
	u.Stakes = make([]*Stake, len(su.Stakes))
	for i, stake := range su.Stakes {
		u.Stakes[i] = &Stake{
			Value:       valueOrZero(stake.Value),
			LockedFrom:  stake.LockedFrom,
			LockedUntil: stake.LockedUntil,
			IsYield:     stake.IsYield,
		}
	}
	u.V1StakeIDs = make([]*big.Int, len(su.V1StakeIDs))
	for i, id := range su.V1StakeIDs {
		u.V1StakeIDs[i] = valueOrZero(id)
	}
	for _, entry := range su.V1Weights {
		u.V1StakeWeights[entry.ID.String()] = valueOrZero(entry.Weight)
	}
	return u
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
