package events

import (
	"math/big"
	"strconv"

	"yieldhub/core/types"
)

const (
	// TypePoolRegistered is emitted when the factory records a new pool.
	TypePoolRegistered = "factory.poolRegistered"
	// TypePoolWeightChanged is emitted when a pool's emission share changes.
	TypePoolWeightChanged = "factory.poolWeightChanged"
	// TypeRewardPerSecondUpdated captures a decay step of the emission rate.
	TypeRewardPerSecondUpdated = "factory.rewardPerSecondUpdated"
	// TypeEndTimeUpdated captures an adjustment of the emission horizon.
	TypeEndTimeUpdated = "factory.endTimeUpdated"
	// TypeVaultSet captures configuration of the external revenue vault.
	TypeVaultSet = "factory.vaultSet"
)

// PoolRegistered captures the registration of a pool with the factory.
type PoolRegistered struct {
	Caller    [20]byte
	PoolToken string
	Weight    uint32
	IsFlash   bool
}

// EventType satisfies the Event interface.
func (PoolRegistered) EventType() string { return TypePoolRegistered }

// Event converts the structured payload into a broadcastable event.
func (e PoolRegistered) Event() *types.Event {
	return &types.Event{Type: TypePoolRegistered, Attributes: map[string]string{
		"caller":    formatAddr(e.Caller),
		"poolToken": e.PoolToken,
		"weight":    strconv.FormatUint(uint64(e.Weight), 10),
		"isFlash":   strconv.FormatBool(e.IsFlash),
	}}
}

// PoolWeightChanged captures an emission share change. The weight field is
// overwritten before the event is formed, so both values report the new
// weight; downstream consumers rely on the shape as-is.
type PoolWeightChanged struct {
	Caller    [20]byte
	PoolToken string
	From      uint32
	To        uint32
}

// EventType satisfies the Event interface.
func (PoolWeightChanged) EventType() string { return TypePoolWeightChanged }

// Event converts the structured payload into a broadcastable event.
func (e PoolWeightChanged) Event() *types.Event {
	return &types.Event{Type: TypePoolWeightChanged, Attributes: map[string]string{
		"caller":    formatAddr(e.Caller),
		"poolToken": e.PoolToken,
		"from":      strconv.FormatUint(uint64(e.From), 10),
		"to":        strconv.FormatUint(uint64(e.To), 10),
	}}
}

// RewardPerSecondUpdated captures one 3% decay step.
type RewardPerSecondUpdated struct {
	RewardPerSecond *big.Int
	UpdatedAt       uint64
}

// EventType satisfies the Event interface.
func (RewardPerSecondUpdated) EventType() string { return TypeRewardPerSecondUpdated }

// Event converts the structured payload into a broadcastable event.
func (e RewardPerSecondUpdated) Event() *types.Event {
	return &types.Event{Type: TypeRewardPerSecondUpdated, Attributes: map[string]string{
		"rewardPerSecond": formatAmount(e.RewardPerSecond),
		"updatedAt":       strconv.FormatUint(e.UpdatedAt, 10),
	}}
}

// EndTimeUpdated captures an emission horizon change.
type EndTimeUpdated struct {
	Caller  [20]byte
	EndTime uint64
}

// EventType satisfies the Event interface.
func (EndTimeUpdated) EventType() string { return TypeEndTimeUpdated }

// Event converts the structured payload into a broadcastable event.
func (e EndTimeUpdated) Event() *types.Event {
	return &types.Event{Type: TypeEndTimeUpdated, Attributes: map[string]string{
		"caller":  formatAddr(e.Caller),
		"endTime": strconv.FormatUint(e.EndTime, 10),
	}}
}

// VaultSet captures configuration of the vault address on a pool.
type VaultSet struct {
	Caller [20]byte
	Pool   string
	Vault  [20]byte
}

// EventType satisfies the Event interface.
func (VaultSet) EventType() string { return TypeVaultSet }

// Event converts the structured payload into a broadcastable event.
func (e VaultSet) Event() *types.Event {
	return &types.Event{Type: TypeVaultSet, Attributes: map[string]string{
		"caller": formatAddr(e.Caller),
		"pool":   e.Pool,
		"vault":  formatAddr(e.Vault),
	}}
}
