package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
)

// Amount is a token quantity in base units. Token contracts commonly use
// 18 decimal places, so base-unit quantities overflow int64 for modest
// balances; Amount keeps arbitrary precision with integer-only arithmetic.
//
// The zero value is a valid zero amount. All operations return new values
// and never mutate their receiver.
type Amount struct {
	v *big.Int
}

// NewAmount creates an Amount from an int64 number of base units.
func NewAmount(units int64) Amount {
	return Amount{v: big.NewInt(units)}
}

// ZeroAmount returns the zero amount.
func ZeroAmount() Amount {
	return Amount{}
}

// ParseAmount parses a base-10 string into an Amount.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return Amount{v: v}, nil
}

// MustParseAmount parses a base-10 string and panics on failure.
// Intended for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) value() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.value(), b.value())}
}

// Sub returns a - b. The result may be negative.
func (a Amount) Sub(b Amount) Amount {
	return Amount{v: new(big.Int).Sub(a.value(), b.value())}
}

// MulInt returns a multiplied by n.
func (a Amount) MulInt(n int64) Amount {
	return Amount{v: new(big.Int).Mul(a.value(), big.NewInt(n))}
}

// DivInt returns a divided by n, truncated toward zero. It panics when
// n is zero, matching integer division.
func (a Amount) DivInt(n int64) Amount {
	return Amount{v: new(big.Int).Quo(a.value(), big.NewInt(n))}
}

// Cmp compares a and b: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.value().Cmp(b.value())
}

// Equal reports whether a and b represent the same quantity.
func (a Amount) Equal(b Amount) bool { return a.Cmp(b) == 0 }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.value().Sign() == 0 }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.value().Sign() > 0 }

// IsNegative reports whether the amount is less than zero.
func (a Amount) IsNegative() bool { return a.value().Sign() < 0 }

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.value().String()
}

// MarshalJSON implements json.Marshaler. Amounts serialize as strings to
// survive JSON number precision limits.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer so amounts persist as decimal text.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		parsed, err := ParseAmount(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case int64:
		*a = NewAmount(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
}
