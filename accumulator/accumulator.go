// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accumulator implements the rewards-per-share bookkeeping shared by the single staker
// coordinator and the multi pool distributor.
//
// A holder with balance b and debt d is entitled to b*acc/scale - d. The debt is checkpointed to
// b*acc/scale every time b changes, so only rewards distributed after the change accrue to it.
package accumulator

import (
	"math/big"
)

// Pending returns balance*acc/scale - debt. The result is signed; floor division is used for the
// product, which is never negative.
func Pending(balance, debt, acc, scale *big.Int) *big.Int {
	earned := mulDiv(balance, acc, scale)
	return earned.Sub(earned, debt)
}

// Shave takes one unit off a positive entitlement and clamps anything else to zero.
//
// The custodian's own reward accounting rounds in its favour, so the coordinator can end up
// promising one unit more than it received. Shaving at every read keeps payouts within what is
// actually held. This compensates an external quirk; it is not a general rounding rule.
func Shave(pending *big.Int) *big.Int {
	if pending.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(pending, big.NewInt(1))
}

// Debt is the canonical checkpoint for a balance at the current accumulator value. Callers
// recompute it after every balance mutation rather than adjusting the old value.
func Debt(balance, acc, scale *big.Int) *big.Int {
	return mulDiv(balance, acc, scale)
}

// OnIncrease returns debt + delta*acc/scale.
func OnIncrease(debt, delta, acc, scale *big.Int) *big.Int {
	return new(big.Int).Add(debt, mulDiv(delta, acc, scale))
}

// OnDecrease returns debt - delta*acc/scale.
func OnDecrease(debt, delta, acc, scale *big.Int) *big.Int {
	return new(big.Int).Sub(debt, mulDiv(delta, acc, scale))
}

// Distribute returns acc + amount*scale/total. When total is zero nothing can be credited and the
// unchanged accumulator is returned with ok=false; the caller keeps the amount.
func Distribute(amount, total, acc, scale *big.Int) (next *big.Int, ok bool) {
	if total.Sign() == 0 {
		return new(big.Int).Set(acc), false
	}
	return new(big.Int).Add(acc, mulDiv(amount, scale, total)), true
}

// Accumulator is a stateful rewards-per-share value with a fixed scale.
type Accumulator struct {
	value *big.Int
	scale *big.Int
}

func New(scale *big.Int) *Accumulator {
	return &Accumulator{
		value: new(big.Int),
		scale: new(big.Int).Set(scale),
	}
}

// Value returns a copy of the current rewards per share.
func (a *Accumulator) Value() *big.Int {
	return new(big.Int).Set(a.value)
}

func (a *Accumulator) Scale() *big.Int {
	return new(big.Int).Set(a.scale)
}

// Pending is the signed entitlement of balance against debt.
func (a *Accumulator) Pending(balance, debt *big.Int) *big.Int {
	return Pending(balance, debt, a.value, a.scale)
}

// Debt is the checkpoint for balance at the current value.
func (a *Accumulator) Debt(balance *big.Int) *big.Int {
	return Debt(balance, a.value, a.scale)
}

// Distribute credits amount across total shares. It reports false, leaving the value untouched,
// when total is zero.
func (a *Accumulator) Distribute(amount, total *big.Int) bool {
	next, ok := Distribute(amount, total, a.value, a.scale)
	if ok {
		a.value = next
	}
	return ok
}

// Preview returns the value Distribute would produce without applying it.
func (a *Accumulator) Preview(amount, total *big.Int) *big.Int {
	next, _ := Distribute(amount, total, a.value, a.scale)
	return next
}

// Set overwrites the value. Only used to commit a previewed value.
func (a *Accumulator) Set(value *big.Int) {
	a.value = new(big.Int).Set(value)
}

func mulDiv(x, y, d *big.Int) *big.Int {
	z := new(big.Int).Mul(x, y)
	return z.Div(z, d)
}
