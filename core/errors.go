package core

import (
	"errors"
	"strconv"
)

var (
	// ErrUserNotListed remove of an absent queue entry: the position and
	// the queue already went out of sync, fail loudly
	ErrUserNotListed = errors.New("matching: user not listed")
	// ErrIndexDecreased a freshly computed p2p index went backwards
	ErrIndexDecreased = errors.New("matching: p2p index decreased")
	// ErrInvalidAmount negative amount input
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientBalance position smaller than the requested amount
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNotifyFailed webhook rejected a position event
	ErrNotifyFailed = errors.New("notify failed")
)

// ErrorCode rest api error code
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrMarketNotFound no market
	ErrMarketNotFound ErrorCode = 100100
	// ErrBadAmount invalid amount
	ErrBadAmount ErrorCode = 100101
	// ErrSupplyNotFound no supply position
	ErrSupplyNotFound ErrorCode = 100102
	// ErrBorrowNotFound no borrow position
	ErrBorrowNotFound ErrorCode = 100103
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}
