package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a string representation
// of the big number. Note that a nil pointer value marshals as the empty
// string.
type BigInt big.Int

// NewInt returns a new BigInt set to x.
func NewInt(x int64) *BigInt {
	return (*BigInt)(big.NewInt(x))
}

// NewBigInt wraps a copy of the given math/big integer.
func NewBigInt(x *big.Int) *BigInt {
	if x == nil {
		return new(BigInt)
	}
	return (*BigInt)(new(big.Int).Set(x))
}

// MarshalText returns the decimal string representation of the big number.
// If the receiver is nil, we return "0".
func (i *BigInt) MarshalText() ([]byte, error) {
	if i == nil {
		return []byte("0"), nil
	}
	return (*big.Int)(i).MarshalText()
}

// UnmarshalText parses the text representation into the big number. It
// accepts decimal strings and 0x prefixed hexadecimal strings.
func (i *BigInt) UnmarshalText(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		(*big.Int)(i).SetUint64(0)
		return nil
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	if _, ok := (*big.Int)(i).SetString(s, base); !ok {
		return fmt.Errorf("invalid big number %q", string(data))
	}
	return nil
}

// MarshalCBOR encodes the number as a CBOR bignum.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	if i == nil {
		return cbor.Marshal(new(big.Int))
	}
	return cbor.Marshal((*big.Int)(i))
}

// UnmarshalCBOR decodes a CBOR bignum (or plain integer) into the receiver.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	bi := new(big.Int)
	if err := cbor.Unmarshal(data, bi); err != nil {
		return err
	}
	(*big.Int)(i).Set(bi)
	return nil
}

// String returns the decimal representation.
func (i *BigInt) String() string {
	if i == nil {
		return "0"
	}
	return (*big.Int)(i).String()
}

// MathBigInt converts the receiver into a *big.Int. The returned value shares
// the memory of the receiver.
func (i *BigInt) MathBigInt() *big.Int {
	if i == nil {
		return new(big.Int)
	}
	return (*big.Int)(i)
}

// Bytes returns the big endian absolute value.
func (i *BigInt) Bytes() []byte {
	return i.MathBigInt().Bytes()
}

// SetBytes interprets buf as a big endian unsigned integer.
func (i *BigInt) SetBytes(buf []byte) *BigInt {
	(*big.Int)(i).SetBytes(buf)
	return i
}

// SetUint64 sets the value of x into the receiver and returns it.
func (i *BigInt) SetUint64(x uint64) *BigInt {
	(*big.Int)(i).SetUint64(x)
	return i
}

// SetBigInt sets a copy of x into the receiver and returns it.
func (i *BigInt) SetBigInt(x *big.Int) *BigInt {
	(*big.Int)(i).Set(x)
	return i
}

// Add sets the receiver to x+y and returns it.
func (i *BigInt) Add(x, y *BigInt) *BigInt {
	(*big.Int)(i).Add(x.MathBigInt(), y.MathBigInt())
	return i
}

// Sub sets the receiver to x-y and returns it.
func (i *BigInt) Sub(x, y *BigInt) *BigInt {
	(*big.Int)(i).Sub(x.MathBigInt(), y.MathBigInt())
	return i
}

// Cmp compares the receiver with y and returns -1, 0 or +1.
func (i *BigInt) Cmp(y *BigInt) int {
	return i.MathBigInt().Cmp(y.MathBigInt())
}

// Sign returns -1, 0 or +1 depending on the sign of the receiver.
func (i *BigInt) Sign() int {
	return i.MathBigInt().Sign()
}

// Equal returns true if both numbers hold the same value.
func (i *BigInt) Equal(y *BigInt) bool {
	return i.Cmp(y) == 0
}

// Clone returns a deep copy of the receiver.
func (i *BigInt) Clone() *BigInt {
	return NewBigInt(i.MathBigInt())
}

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	return i.UnmarshalText(data)
}
