// Package account is the append-only cash ledger a broker posts realized PnL to.
package account

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one realized cash movement.
type Transaction struct {
	Instant time.Time       `json:"instant"`
	Value   decimal.Decimal `json:"value"`
}

// Account holds a balance and the ledger that produced it.
// Balance always equals the initial balance plus the sum of all transactions.
//
// Reads are safe from any goroutine; only the owning broker writes.
type Account struct {
	mu           sync.RWMutex
	initial      decimal.Decimal
	balance      decimal.Decimal
	transactions []Transaction
	subscribers  map[int]func(Transaction)
	nextSub      int
}

// New creates an account with an initial balance and no transactions.
func New(initialBalance decimal.Decimal) *Account {
	return &Account{
		initial:     initialBalance,
		balance:     initialBalance,
		subscribers: make(map[int]func(Transaction)),
	}
}

// AddTransaction appends to the ledger and moves the balance by value.
func (a *Account) AddTransaction(instant time.Time, value decimal.Decimal) {
	tx := Transaction{Instant: instant, Value: value}

	a.mu.Lock()
	a.transactions = append(a.transactions, tx)
	a.balance = a.balance.Add(value)
	subs := make([]func(Transaction), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(tx)
	}
}

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balance
}

// InitialBalance returns the balance the account was created with.
func (a *Account) InitialBalance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initial
}

// Transactions returns a copy of the ledger in posting order.
func (a *Account) Transactions() []Transaction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Transaction, len(a.transactions))
	copy(out, a.transactions)
	return out
}

// Subscribe calls fn after every posted transaction, outside the lock.
func (a *Account) Subscribe(fn func(Transaction)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subscribers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subscribers, id)
		a.mu.Unlock()
	}
}
