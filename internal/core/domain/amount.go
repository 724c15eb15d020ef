package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Amount is an integer token amount in the smallest unit (wei for EVM chains).
// The zero value is 0. Amounts are immutable: arithmetic returns new values.
type Amount struct {
	v *big.Int
}

// NewAmount returns an Amount holding v.
func NewAmount(v int64) Amount {
	return Amount{v: big.NewInt(v)}
}

// ParseAmount parses a decimal or 0x-prefixed hex integer. Integral values in
// exponent notation ("2e18") are accepted too.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return Amount{}, fmt.Errorf("invalid hex amount: %s", s)
		}
		return Amount{v: n}, nil
	}
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return Amount{v: n}, nil
	}
	f, ok := new(big.Float).SetPrec(256).SetString(s)
	if !ok || !f.IsInt() {
		return Amount{}, fmt.Errorf("invalid amount: %s", s)
	}
	n, _ := f.Int(nil)
	return Amount{v: n}, nil
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Big returns a copy of the underlying integer.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(a.big())
}

func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.big(), b.big())}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{v: new(big.Int).Sub(a.big(), b.big())}
}

func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

func (a Amount) Sign() int {
	return a.big().Sign()
}

func (a Amount) IsZero() bool {
	return a.Sign() == 0
}

// Max returns the larger of a and b.
func (a Amount) Max(b Amount) Amount {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func (a Amount) String() string {
	return a.big().String()
}

// Units converts the amount to whole units given the token decimals.
func (a Amount) Units(decimals int) float64 {
	f := new(big.Float).SetInt(a.big())
	if decimals > 0 {
		scale := new(big.Float).SetFloat64(math.Pow10(decimals))
		f.Quo(f, scale)
	}
	out, _ := f.Float64()
	return out
}

// MarshalJSON encodes the amount as a decimal string to keep full precision.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal/hex string, a JSON number or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
