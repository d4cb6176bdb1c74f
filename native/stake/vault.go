package stake

import (
	"math/big"

	"yieldhub/core/events"
)

// SetVault configures the address allowed to inject external revenue into
// the pool. Only the factory owner may set it.
func (p *Pool) SetVault(caller Address, vault Address) error {
	if caller != p.factory.owner {
		return ErrAccessDenied
	}
	p.vault = vault
	p.emit(events.VaultSet{Caller: caller, Pool: p.poolTokenName, Vault: vault})
	return nil
}

// Vault returns the configured revenue vault address.
func (p *Pool) Vault() Address { return p.vault }

// ReceiveVaultRewards pulls an external reward deposit from the vault and
// spreads it over the stakers present at receive time through the second
// accumulator.
func (p *Pool) ReceiveVaultRewards(caller Address, amount *big.Int) error {
	if caller != p.vault || p.vault == (Address{}) {
		return ErrNotVault
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroValue
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	p.sync()
	if p.globalWeight.Sign() == 0 {
		return ErrNoPoolWeight
	}
	if err := p.factory.rewardToken.TransferFrom(p.address, caller, p.address, amount); err != nil {
		return err
	}
	p.vaultRewardsPerWeight.Add(p.vaultRewardsPerWeight, RewardPerWeight(amount, p.globalWeight))
	p.emit(events.VaultRewardsReceived{Pool: p.poolTokenName, Vault: caller, Amount: copyBigInt(amount)})
	return nil
}
