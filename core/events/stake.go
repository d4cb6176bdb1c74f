package events

import (
	"math/big"
	"strconv"

	"yieldhub/core/types"
)

const (
	// TypeStakedFlexible captures a deposit into the flexible balance.
	TypeStakedFlexible = "stake.stakedFlexible"
	// TypeStakedLocked captures a deposit opening a locked stake position.
	TypeStakedLocked = "stake.stakedLocked"
	// TypeUnstakedFlexible captures a withdrawal from the flexible balance.
	TypeUnstakedFlexible = "stake.unstakedFlexible"
	// TypeUnstakedLocked captures a full or partial locked unstake.
	TypeUnstakedLocked = "stake.unstakedLocked"
	// TypeLockExtended captures a lock extension on an existing position.
	TypeLockExtended = "stake.lockExtended"
	// TypeSynced is emitted when a pool advances its reward accumulator.
	TypeSynced = "stake.synced"
	// TypeRewardsProcessed captures the crystallisation of pending rewards.
	TypeRewardsProcessed = "stake.rewardsProcessed"
	// TypeRewardsClaimed captures a yield claim, compounded or escrowed.
	TypeRewardsClaimed = "stake.rewardsClaimed"
	// TypeUserMigrated captures a wholesale move of a user record.
	TypeUserMigrated = "stake.userMigrated"
	// TypeVaultRewardsReceived captures an external vault contribution.
	TypeVaultRewardsReceived = "stake.vaultRewardsReceived"
	// TypeLockedStakesMigratedFromV1 captures ingestion of legacy stakes.
	TypeLockedStakesMigratedFromV1 = "stake.lockedStakesMigratedFromV1"
	// TypeV1StakeFilled captures materialisation of a matured legacy stake.
	TypeV1StakeFilled = "stake.v1StakeFilled"
	// TypeV1YieldMinted captures minting of matured legacy yield.
	TypeV1YieldMinted = "stake.v1YieldMinted"
)

// StakedFlexible captures a flexible deposit credited to an account.
type StakedFlexible struct {
	Pool   string
	Addr   [20]byte
	Value  *big.Int
	Weight *big.Int
}

// EventType satisfies the Event interface.
func (StakedFlexible) EventType() string { return TypeStakedFlexible }

// Event converts the structured payload into a broadcastable event.
func (e StakedFlexible) Event() *types.Event {
	return &types.Event{Type: TypeStakedFlexible, Attributes: map[string]string{
		"pool":   e.Pool,
		"addr":   formatAddr(e.Addr),
		"value":  formatAmount(e.Value),
		"weight": formatAmount(e.Weight),
	}}
}

// StakedLocked captures a new locked stake position.
type StakedLocked struct {
	Pool        string
	Addr        [20]byte
	StakeID     int
	Value       *big.Int
	Weight      *big.Int
	LockedUntil uint64
}

// EventType satisfies the Event interface.
func (StakedLocked) EventType() string { return TypeStakedLocked }

// Event converts the structured payload into a broadcastable event.
func (e StakedLocked) Event() *types.Event {
	return &types.Event{Type: TypeStakedLocked, Attributes: map[string]string{
		"pool":        e.Pool,
		"addr":        formatAddr(e.Addr),
		"stakeId":     strconv.Itoa(e.StakeID),
		"value":       formatAmount(e.Value),
		"weight":      formatAmount(e.Weight),
		"lockedUntil": strconv.FormatUint(e.LockedUntil, 10),
	}}
}

// UnstakedFlexible captures a flexible withdrawal.
type UnstakedFlexible struct {
	Pool  string
	Addr  [20]byte
	Value *big.Int
}

// EventType satisfies the Event interface.
func (UnstakedFlexible) EventType() string { return TypeUnstakedFlexible }

// Event converts the structured payload into a broadcastable event.
func (e UnstakedFlexible) Event() *types.Event {
	return &types.Event{Type: TypeUnstakedFlexible, Attributes: map[string]string{
		"pool":  e.Pool,
		"addr":  formatAddr(e.Addr),
		"value": formatAmount(e.Value),
	}}
}

// UnstakedLocked captures removal of value from locked stake positions.
type UnstakedLocked struct {
	Pool    string
	Addr    [20]byte
	Value   *big.Int
	IsYield bool
	Stakes  int
}

// EventType satisfies the Event interface.
func (UnstakedLocked) EventType() string { return TypeUnstakedLocked }

// Event converts the structured payload into a broadcastable event.
func (e UnstakedLocked) Event() *types.Event {
	attrs := map[string]string{
		"pool":    e.Pool,
		"addr":    formatAddr(e.Addr),
		"value":   formatAmount(e.Value),
		"isYield": strconv.FormatBool(e.IsYield),
	}
	if e.Stakes > 1 {
		attrs["stakes"] = strconv.Itoa(e.Stakes)
	}
	return &types.Event{Type: TypeUnstakedLocked, Attributes: attrs}
}

// LockExtended captures a lock extension and the resulting weight delta.
type LockExtended struct {
	Pool        string
	Addr        [20]byte
	StakeID     int
	LockedUntil uint64
	WeightDelta *big.Int
}

// EventType satisfies the Event interface.
func (LockExtended) EventType() string { return TypeLockExtended }

// Event converts the structured payload into a broadcastable event.
func (e LockExtended) Event() *types.Event {
	return &types.Event{Type: TypeLockExtended, Attributes: map[string]string{
		"pool":        e.Pool,
		"addr":        formatAddr(e.Addr),
		"stakeId":     strconv.Itoa(e.StakeID),
		"lockedUntil": strconv.FormatUint(e.LockedUntil, 10),
		"weightDelta": formatAmount(e.WeightDelta),
	}}
}

// Synced captures an accumulator advance.
type Synced struct {
	Pool                  string
	YieldRewardsPerWeight *big.Int
	LastYieldDistribution uint64
}

// EventType satisfies the Event interface.
func (Synced) EventType() string { return TypeSynced }

// Event converts the structured payload into a broadcastable event.
func (e Synced) Event() *types.Event {
	return &types.Event{Type: TypeSynced, Attributes: map[string]string{
		"pool":                  e.Pool,
		"yieldRewardsPerWeight": formatAmount(e.YieldRewardsPerWeight),
		"lastYieldDistribution": strconv.FormatUint(e.LastYieldDistribution, 10),
	}}
}

// RewardsProcessed captures pending reward crystallisation for an account.
type RewardsProcessed struct {
	Pool        string
	Addr        [20]byte
	YieldAmount *big.Int
	VaultAmount *big.Int
}

// EventType satisfies the Event interface.
func (RewardsProcessed) EventType() string { return TypeRewardsProcessed }

// Event converts the structured payload into a broadcastable event.
func (e RewardsProcessed) Event() *types.Event {
	attrs := map[string]string{
		"pool": e.Pool,
		"addr": formatAddr(e.Addr),
	}
	if e.YieldAmount != nil && e.YieldAmount.Sign() > 0 {
		attrs["yield"] = formatAmount(e.YieldAmount)
	}
	if e.VaultAmount != nil && e.VaultAmount.Sign() > 0 {
		attrs["vault"] = formatAmount(e.VaultAmount)
	}
	return &types.Event{Type: TypeRewardsProcessed, Attributes: attrs}
}

// RewardsClaimed captures a claim, either escrowed or compounded.
type RewardsClaimed struct {
	Pool      string
	Addr      [20]byte
	Value     *big.Int
	UseEscrow bool
}

// EventType satisfies the Event interface.
func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e RewardsClaimed) Event() *types.Event {
	return &types.Event{Type: TypeRewardsClaimed, Attributes: map[string]string{
		"pool":      e.Pool,
		"addr":      formatAddr(e.Addr),
		"value":     formatAmount(e.Value),
		"useEscrow": strconv.FormatBool(e.UseEscrow),
	}}
}

// UserMigrated captures a wholesale record move between accounts.
type UserMigrated struct {
	Pool string
	From [20]byte
	To   [20]byte
}

// EventType satisfies the Event interface.
func (UserMigrated) EventType() string { return TypeUserMigrated }

// Event converts the structured payload into a broadcastable event.
func (e UserMigrated) Event() *types.Event {
	return &types.Event{Type: TypeUserMigrated, Attributes: map[string]string{
		"pool": e.Pool,
		"from": formatAddr(e.From),
		"to":   formatAddr(e.To),
	}}
}

// VaultRewardsReceived captures an external revenue deposit.
type VaultRewardsReceived struct {
	Pool   string
	Vault  [20]byte
	Amount *big.Int
}

// EventType satisfies the Event interface.
func (VaultRewardsReceived) EventType() string { return TypeVaultRewardsReceived }

// Event converts the structured payload into a broadcastable event.
func (e VaultRewardsReceived) Event() *types.Event {
	return &types.Event{Type: TypeVaultRewardsReceived, Attributes: map[string]string{
		"pool":   e.Pool,
		"vault":  formatAddr(e.Vault),
		"amount": formatAmount(e.Amount),
	}}
}

// LockedStakesMigratedFromV1 captures ingestion of legacy stake references.
type LockedStakesMigratedFromV1 struct {
	Pool     string
	Addr     [20]byte
	StakeIDs []*big.Int
}

// EventType satisfies the Event interface.
func (LockedStakesMigratedFromV1) EventType() string { return TypeLockedStakesMigratedFromV1 }

// Event converts the structured payload into a broadcastable event.
func (e LockedStakesMigratedFromV1) Event() *types.Event {
	ids := ""
	for i, id := range e.StakeIDs {
		if i > 0 {
			ids += ","
		}
		ids += formatAmount(id)
	}
	return &types.Event{Type: TypeLockedStakesMigratedFromV1, Attributes: map[string]string{
		"pool":     e.Pool,
		"addr":     formatAddr(e.Addr),
		"stakeIds": ids,
	}}
}

// V1StakeFilled captures materialisation of a matured legacy stake.
type V1StakeFilled struct {
	Pool    string
	Addr    [20]byte
	V1ID    *big.Int
	StakeID int
	Value   *big.Int
	Weight  *big.Int
}

// EventType satisfies the Event interface.
func (V1StakeFilled) EventType() string { return TypeV1StakeFilled }

// Event converts the structured payload into a broadcastable event.
func (e V1StakeFilled) Event() *types.Event {
	return &types.Event{Type: TypeV1StakeFilled, Attributes: map[string]string{
		"pool":    e.Pool,
		"addr":    formatAddr(e.Addr),
		"v1Id":    formatAmount(e.V1ID),
		"stakeId": strconv.Itoa(e.StakeID),
		"value":   formatAmount(e.Value),
		"weight":  formatAmount(e.Weight),
	}}
}

// V1YieldMinted captures minting of matured legacy yield value.
type V1YieldMinted struct {
	Pool  string
	Addr  [20]byte
	Value *big.Int
	IDs   int
}

// EventType satisfies the Event interface.
func (V1YieldMinted) EventType() string { return TypeV1YieldMinted }

// Event converts the structured payload into a broadcastable event.
func (e V1YieldMinted) Event() *types.Event {
	return &types.Event{Type: TypeV1YieldMinted, Attributes: map[string]string{
		"pool":  e.Pool,
		"addr":  formatAddr(e.Addr),
		"value": formatAmount(e.Value),
		"ids":   strconv.Itoa(e.IDs),
	}}
}
