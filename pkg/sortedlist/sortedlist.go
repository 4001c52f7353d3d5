// Package sortedlist implements the matching queue: a doubly linked list of
// (user, amount) pairs kept in descending amount order, with a bounded
// insertion scan so one insert never costs more than maxIterations steps.
package sortedlist

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound remove of an absent user
var ErrNotFound = errors.New("sortedlist: user not found")

type node struct {
	user   string
	amount decimal.Decimal
	prev   *node
	next   *node
}

// List descending ordered list keyed by user
type List struct {
	head  *node
	tail  *node
	index map[string]*node
}

// New new empty list
func New() *List {
	return &List{index: make(map[string]*node)}
}

// Len number of entries
func (l *List) Len() int {
	return len(l.index)
}

// Head returns the user with the largest amount, empty string when the
// list is empty
func (l *List) Head() string {
	if l.head == nil {
		return ""
	}
	return l.head.user
}

// Get returns the amount stored for user, zero when absent
func (l *List) Get(user string) decimal.Decimal {
	if n, ok := l.index[user]; ok {
		return n.amount
	}
	return decimal.Zero
}

// Put inserts or moves user so the list stays sorted descending. The scan
// walks from the head for at most maxIterations steps; when the budget runs
// out before the slot is found the entry goes to the tail, trading exact
// order beyond the scan horizon for a hard cost bound. A non-positive amount
// removes the entry: zero-value entries must never stay listed.
func (l *List) Put(user string, amount decimal.Decimal, maxIterations int64) {
	if _, ok := l.index[user]; ok {
		l.unlink(l.index[user])
		delete(l.index, user)
	}

	if !amount.IsPositive() {
		return
	}

	n := &node{user: user, amount: amount}
	l.index[user] = n

	cur := l.head
	for i := int64(0); cur != nil && i < maxIterations; i++ {
		if cur.amount.LessThan(amount) {
			l.insertBefore(n, cur)
			return
		}
		cur = cur.next
	}

	l.insertTail(n)
}

// Remove removes user from the list. Failing here means a position and its
// queue entry already went out of sync.
func (l *List) Remove(user string) error {
	n, ok := l.index[user]
	if !ok {
		return ErrNotFound
	}

	l.unlink(n)
	delete(l.index, user)
	return nil
}

// Walk visits entries head to tail until fn returns false
func (l *List) Walk(fn func(user string, amount decimal.Decimal) bool) {
	for n := l.head; n != nil; n = n.next {
		if !fn(n.user, n.amount) {
			return
		}
	}
}

func (l *List) insertBefore(n, at *node) {
	n.prev = at.prev
	n.next = at
	if at.prev != nil {
		at.prev.next = n
	} else {
		l.head = n
	}
	at.prev = n
}

func (l *List) insertTail(n *node) {
	n.prev = l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
}

func (l *List) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}
