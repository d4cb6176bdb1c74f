package stake

import "math/big"

// Address identifies an account within the engine.
type Address = [20]byte

// Stake captures a single deposit position. Positions are permanent: a fully
// unstaked entry becomes a zero-valued tombstone so later ids never shift.
type Stake struct {
	Value       *big.Int
	LockedFrom  uint64
	LockedUntil uint64
	IsYield     bool
}

// Clone produces a deep copy of the stake.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	return &Stake{
		Value:       copyBigInt(s.Value),
		LockedFrom:  s.LockedFrom,
		LockedUntil: s.LockedUntil,
		IsYield:     s.IsYield,
	}
}

func (s *Stake) tombstone() bool {
	return s == nil || s.Value == nil || s.Value.Sign() == 0
}

// User aggregates everything the pool tracks for a single account. Records
// are created lazily on first interaction and persist permanently.
type User struct {
	Stakes          []*Stake
	FlexibleBalance *big.Int
	TotalWeight     *big.Int
	SubYieldRewards *big.Int
	SubVaultRewards *big.Int
	PendingYield    *big.Int

	// V1StakeIDs holds ingested legacy stake ids in slot order; a filled slot
	// is zeroed in place. V1StakeWeights records every id ingested or minted
	// as v1 yield: an ingested id maps to its legacy weight (the entry is kept
	// after a fill), a minted yield id maps to the minted value.
	V1StakeIDs     []*big.Int
	V1StakeWeights map[string]*big.Int

	v1BonusWeight *big.Int
}

func newUser() *User {
	return &User{
		FlexibleBalance: big.NewInt(0),
		TotalWeight:     big.NewInt(0),
		SubYieldRewards: big.NewInt(0),
		SubVaultRewards: big.NewInt(0),
		PendingYield:    big.NewInt(0),
		V1StakeWeights:  make(map[string]*big.Int),
		v1BonusWeight:   big.NewInt(0),
	}
}

// V1IDsLength reports the number of ingested v1 slots, tombstoned slots
// included.
func (u *User) V1IDsLength() int {
	if u == nil {
		return 0
	}
	return len(u.V1StakeIDs)
}

// effectiveWeight is the weight the user accrues rewards against: the stored
// total plus the translated bonus of ingested v1 stakes.
func (u *User) effectiveWeight() *big.Int {
	w := copyBigInt(u.TotalWeight)
	if u.v1BonusWeight != nil && u.v1BonusWeight.Sign() > 0 {
		w.Add(w, V1ToV2Weight(u.v1BonusWeight))
	}
	return w
}

func (u *User) addV1Weight(id, weight *big.Int) {
	u.V1StakeIDs = append(u.V1StakeIDs, copyBigInt(id))
	u.V1StakeWeights[id.String()] = copyBigInt(weight)
	u.v1BonusWeight.Add(u.v1BonusWeight, weight)
}

func (u *User) clearV1Slot(position int) {
	id := u.V1StakeIDs[position]
	if weight, ok := u.V1StakeWeights[id.String()]; ok {
		u.v1BonusWeight.Sub(u.v1BonusWeight, weight)
		if u.v1BonusWeight.Sign() < 0 {
			u.v1BonusWeight.SetInt64(0)
		}
	}
	u.V1StakeIDs[position] = big.NewInt(0)
}

// UnstakeItem addresses one stake in a batch unstake request.
type UnstakeItem struct {
	StakeID int
	Value   *big.Int
}

// V1Deposit mirrors the read-only record exposed by the legacy pool.
type V1Deposit struct {
	Value       *big.Int
	Weight      *big.Int
	LockedFrom  uint64
	LockedUntil uint64
	IsYield     bool
}

// V1Pool is the read-only surface of the legacy predecessor pool.
type V1Pool interface {
	GetDeposit(user Address, id *big.Int) (V1Deposit, error)
	PoolTokenReserve() *big.Int
	UsersLockingWeight() *big.Int
}

// Token is the transfer surface the engine requires from pool and reward
// denominations. Implementations move value between in-engine accounts.
type Token interface {
	BalanceOf(owner Address) *big.Int
	Transfer(from, to Address, value *big.Int) error
	TransferFrom(spender, from, to Address, value *big.Int) error
}

// MintableToken extends Token with a mint entry gated to the factory.
type MintableToken interface {
	Token
	Mint(caller, to Address, value *big.Int) error
}

// Clock supplies the engine time base in whole seconds.
type Clock interface {
	Now() uint64
}
