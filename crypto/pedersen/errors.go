package pedersen

import "errors"

// ErrAmountOutOfRange is returned when an amount does not fit the unsigned
// 64-bit range the range-check circuit enforces.
var ErrAmountOutOfRange = errors.New("amount out of 64-bit range")
