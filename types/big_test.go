package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

func TestBigMarshalUnmarshalJSON(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(1234567890))
	jsonBigInt := map[string]*BigInt{
		"bi": bi,
	}
	bBigInt, err := json.Marshal(jsonBigInt)
	c.Assert(err, qt.IsNil)

	var unmarshaled map[string]*BigInt
	c.Assert(json.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["bi"], qt.DeepEquals, bi)
}

func TestBigMarshalUnmarshalCBOR(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(1234567890))
	cborBigInt := map[string]*BigInt{
		"bi": bi,
	}
	bBigInt, err := cbor.Marshal(cborBigInt)
	c.Assert(err, qt.IsNil)

	var unmarshaled map[string]*BigInt
	c.Assert(cbor.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["bi"], qt.DeepEquals, bi)
}

func TestBigUnmarshalJSONNumberAndHex(t *testing.T) {
	c := qt.New(t)
	var v struct {
		A *BigInt `json:"a"`
		B *BigInt `json:"b"`
	}
	c.Assert(json.Unmarshal([]byte(`{"a":1000000000000000,"b":"0xff"}`), &v), qt.IsNil)
	c.Assert(v.A.String(), qt.Equals, "1000000000000000")
	c.Assert(v.B.String(), qt.Equals, "255")

	c.Assert(json.Unmarshal([]byte(`{"a":"12ab"}`), &v), qt.ErrorMatches, `invalid big number.*`)
}

func TestBigArithmetic(t *testing.T) {
	c := qt.New(t)
	a := NewInt(30)
	b := NewInt(12)
	c.Assert(new(BigInt).Sub(a, b).String(), qt.Equals, "18")
	c.Assert(new(BigInt).Add(a, b).String(), qt.Equals, "42")
	c.Assert(a.Cmp(b), qt.Equals, 1)

	clone := a.Clone()
	clone.SetUint64(1)
	c.Assert(a.String(), qt.Equals, "30")

	var nilInt *BigInt
	c.Assert(nilInt.String(), qt.Equals, "0")
	c.Assert(nilInt.Sign(), qt.Equals, 0)
}
