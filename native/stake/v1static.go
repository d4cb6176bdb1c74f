package stake

import (
	"errors"
	"math/big"
)

// ErrV1DepositNotFound is returned by StaticV1Pool for unknown ids.
var ErrV1DepositNotFound = errors.New("stake: v1 deposit not found")

// StaticV1Pool is an in-memory read-only legacy pool. Tests seed it directly;
// the daemon does not construct one.
type StaticV1Pool struct {
	deposits      map[Address]map[string]V1Deposit
	reserve       *big.Int
	lockingWeight *big.Int
}

// NewStaticV1Pool constructs an empty legacy pool.
func NewStaticV1Pool() *StaticV1Pool {
	return &StaticV1Pool{
		deposits:      make(map[Address]map[string]V1Deposit),
		reserve:       big.NewInt(0),
		lockingWeight: big.NewInt(0),
	}
}

// SetDeposit records a legacy deposit under the user and id.
func (v *StaticV1Pool) SetDeposit(user Address, id *big.Int, dep V1Deposit) {
	byID, ok := v.deposits[user]
	if !ok {
		byID = make(map[string]V1Deposit)
		v.deposits[user] = byID
	}
	byID[id.String()] = dep
	v.reserve.Add(v.reserve, dep.Value)
	v.lockingWeight.Add(v.lockingWeight, dep.Weight)
}

// GetDeposit returns the legacy deposit for the user and id.
func (v *StaticV1Pool) GetDeposit(user Address, id *big.Int) (V1Deposit, error) {
	if byID, ok := v.deposits[user]; ok {
		if dep, ok := byID[id.String()]; ok {
			return dep, nil
		}
	}
	return V1Deposit{}, ErrV1DepositNotFound
}

// PoolTokenReserve returns the total value held by the legacy pool.
func (v *StaticV1Pool) PoolTokenReserve() *big.Int { return new(big.Int).Set(v.reserve) }

// UsersLockingWeight returns the total legacy locking weight.
func (v *StaticV1Pool) UsersLockingWeight() *big.Int { return new(big.Int).Set(v.lockingWeight) }
