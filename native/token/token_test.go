package token

import (
	"errors"
	"math/big"
	"testing"
)

func addrOf(b byte) Address {
	var a Address
	a[19] = b
	return a
}

func TestMintGatedToMinter(t *testing.T) {
	minter := addrOf(1)
	holder := addrOf(2)
	l := NewLedger("YLD", minter)
	if err := l.Mint(holder, holder, big.NewInt(10)); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("err = %v, want ErrNotMinter", err)
	}
	if err := l.Mint(minter, holder, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := l.BalanceOf(holder); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("balance = %s, want 10", got)
	}
	if got := l.TotalSupply(); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("supply = %s, want 10", got)
	}
}

func TestTransferChecksBalance(t *testing.T) {
	minter := addrOf(1)
	a, b := addrOf(2), addrOf(3)
	l := NewLedger("YLD", minter)
	if err := l.Transfer(a, b, big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if err := l.Mint(minter, a, big.NewInt(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(a, b, big.NewInt(3)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := l.BalanceOf(b); got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("balance = %s, want 3", got)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	minter := addrOf(1)
	owner, spender, sink := addrOf(2), addrOf(3), addrOf(4)
	l := NewLedger("YLD", minter)
	if err := l.Mint(minter, owner, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.TransferFrom(spender, owner, sink, big.NewInt(4)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("err = %v, want ErrInsufficientAllowance", err)
	}
	l.Approve(owner, spender, big.NewInt(4))
	if err := l.TransferFrom(spender, owner, sink, big.NewInt(4)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if got := l.Allowance(owner, spender); got.Sign() != 0 {
		t.Fatalf("allowance = %s, want 0", got)
	}
	// Moving one's own funds needs no allowance.
	if err := l.TransferFrom(sink, sink, owner, big.NewInt(1)); err != nil {
		t.Fatalf("self transfer from: %v", err)
	}
}

func TestTransferFeeBurns(t *testing.T) {
	minter := addrOf(1)
	a, b := addrOf(2), addrOf(3)
	l := NewLedger("SLP", minter)
	if err := l.SetTransferFee(10_000); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("err = %v, want ErrInvalidFee", err)
	}
	if err := l.SetTransferFee(100); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if err := l.Mint(minter, a, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(a, b, big.NewInt(1000)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := l.BalanceOf(b); got.Cmp(big.NewInt(990)) != 0 {
		t.Fatalf("received = %s, want 990", got)
	}
	if got := l.TotalSupply(); got.Cmp(big.NewInt(990)) != 0 {
		t.Fatalf("supply = %s, want 990", got)
	}
}
