package stake

import "math/big"

const (
	// WeightMult is the base weight multiplier applied to one token of
	// unlocked stake.
	WeightMult = 1_000_000
	// YearWeightMult is the multiplier applied when the engine itself opens
	// a compounding yield stake.
	YearWeightMult = 2 * WeightMult
	// MaxLockSeconds bounds the lock span of any stake (730 days).
	MaxLockSeconds = 730 * 24 * 60 * 60

	v1WeightBonus    = 2
	v1ToV2Numerator  = 1500
	v1ToV2Denominator = 1000
)

var (
	weightMult = big.NewInt(WeightMult)
	maxLock    = big.NewInt(MaxLockSeconds)

	// rewardPerWeightMult scales the cumulative rewards-per-weight
	// accumulator.
	rewardPerWeightMult = mustBigInt("1000000000000")

	// maxStakeValue caps a single stake value at 2^120 so the weight
	// product stays inside the accumulator headroom.
	maxStakeValue = new(big.Int).Lsh(big.NewInt(1), 120)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// LockWeight derives the weight of a stake of the given value locked between
// lockedFrom and lockedUntil. A flexible stake passes zero for both bounds
// and receives the base multiplier. All divisions truncate toward zero.
func LockWeight(value *big.Int, lockedFrom, lockedUntil uint64) *big.Int {
	if value == nil || value.Sign() == 0 {
		return big.NewInt(0)
	}
	mult := new(big.Int).SetUint64(lockedUntil - lockedFrom)
	mult.Mul(mult, weightMult)
	mult.Quo(mult, maxLock)
	mult.Add(mult, weightMult)
	return mult.Mul(mult, value)
}

// WeightToReward converts an accumulated weight into a reward amount under
// the supplied rewards-per-weight value.
func WeightToReward(weight, rpw *big.Int) *big.Int {
	if weight == nil || rpw == nil || weight.Sign() == 0 || rpw.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(weight, rpw)
	return out.Quo(out, rewardPerWeightMult)
}

// RewardPerWeight converts a reward amount into the scaled per-weight delta
// for the accumulator. Callers never invoke it with a zero global weight.
func RewardPerWeight(reward, globalWeight *big.Int) *big.Int {
	out := new(big.Int).Mul(reward, rewardPerWeightMult)
	return out.Quo(out, globalWeight)
}

// V1ToV2Weight translates a legacy v1 stake weight into the bonus weight it
// contributes during reward computation.
func V1ToV2Weight(weight *big.Int) *big.Int {
	if weight == nil || weight.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(weight, big.NewInt(v1WeightBonus*v1ToV2Numerator))
	return out.Quo(out, big.NewInt(v1ToV2Denominator))
}
