// README: Common money value object used across modules. All amounts are whole XOF.
package types

import "math"

const CurrencyXOF = "XOF"

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func XOF(amount int64) Money {
	return Money{Amount: amount, Currency: CurrencyXOF}
}

// RoundXOF rounds to the nearest whole unit, ties to even.
func RoundXOF(v float64) int64 {
	return int64(math.RoundToEven(v))
}
