package token

import (
	"errors"
	"math/big"
)

// Address identifies a ledger account.
type Address = [20]byte

const feeDenominator = 10_000

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrNotMinter             = errors.New("token: caller may not mint")
	ErrInvalidAmount         = errors.New("token: amount must be positive")
	ErrInvalidFee            = errors.New("token: transfer fee out of range")
)

// Ledger is an in-process token ledger covering the collaborator surface the
// staking engine needs: balances, transfers, allowances and an owner-gated
// mint. An optional transfer fee burns a slice of every transfer, modelling
// deflationary deposit tokens.
type Ledger struct {
	name        string
	minter      Address
	feeBps      uint32
	totalSupply *big.Int
	balances    map[Address]*big.Int
	allowances  map[Address]map[Address]*big.Int
}

// NewLedger constructs an empty ledger whose mint entry is gated to minter.
func NewLedger(name string, minter Address) *Ledger {
	return &Ledger{
		name:        name,
		minter:      minter,
		totalSupply: big.NewInt(0),
		balances:    make(map[Address]*big.Int),
		allowances:  make(map[Address]map[Address]*big.Int),
	}
}

// Name returns the token denomination.
func (l *Ledger) Name() string { return l.name }

// SetTransferFee configures the burn applied to every transfer, in basis
// points.
func (l *Ledger) SetTransferFee(bps uint32) error {
	if bps >= feeDenominator {
		return ErrInvalidFee
	}
	l.feeBps = bps
	return nil
}

// TotalSupply returns the outstanding supply.
func (l *Ledger) TotalSupply() *big.Int { return new(big.Int).Set(l.totalSupply) }

// BalanceOf returns the balance held by owner.
func (l *Ledger) BalanceOf(owner Address) *big.Int {
	if bal, ok := l.balances[owner]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Mint credits freshly created supply to an account. Only the configured
// minter may call it.
func (l *Ledger) Mint(caller, to Address, value *big.Int) error {
	if caller != l.minter {
		return ErrNotMinter
	}
	if value == nil || value.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.credit(to, value)
	l.totalSupply.Add(l.totalSupply, value)
	return nil
}

// Approve grants spender the right to move up to value from owner.
func (l *Ledger) Approve(owner, spender Address, value *big.Int) {
	grants, ok := l.allowances[owner]
	if !ok {
		grants = make(map[Address]*big.Int)
		l.allowances[owner] = grants
	}
	grants[spender] = new(big.Int).Set(value)
}

// Allowance returns the remaining grant from owner to spender.
func (l *Ledger) Allowance(owner, spender Address) *big.Int {
	if grants, ok := l.allowances[owner]; ok {
		if v, ok := grants[spender]; ok {
			return new(big.Int).Set(v)
		}
	}
	return big.NewInt(0)
}

// Transfer moves value from one account to another, burning the configured
// fee slice.
func (l *Ledger) Transfer(from, to Address, value *big.Int) error {
	return l.move(from, to, value)
}

// TransferFrom moves value on behalf of spender, consuming the allowance
// unless the spender moves its own funds.
func (l *Ledger) TransferFrom(spender, from, to Address, value *big.Int) error {
	if spender != from {
		allowance := l.Allowance(from, spender)
		if allowance.Cmp(value) < 0 {
			return ErrInsufficientAllowance
		}
		if err := l.move(from, to, value); err != nil {
			return err
		}
		l.allowances[from][spender] = allowance.Sub(allowance, value)
		return nil
	}
	return l.move(from, to, value)
}

func (l *Ledger) move(from, to Address, value *big.Int) error {
	if value == nil || value.Sign() <= 0 {
		return ErrInvalidAmount
	}
	bal, ok := l.balances[from]
	if !ok || bal.Cmp(value) < 0 {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, value)
	received := new(big.Int).Set(value)
	if l.feeBps > 0 {
		fee := new(big.Int).Mul(value, new(big.Int).SetUint64(uint64(l.feeBps)))
		fee.Quo(fee, big.NewInt(feeDenominator))
		received.Sub(received, fee)
		l.totalSupply.Sub(l.totalSupply, fee)
	}
	l.credit(to, received)
	return nil
}

func (l *Ledger) credit(to Address, value *big.Int) {
	bal, ok := l.balances[to]
	if !ok {
		bal = big.NewInt(0)
		l.balances[to] = bal
	}
	bal.Add(bal, value)
}
