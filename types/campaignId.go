package types

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// CampaignIDLen is the length in bytes of a marshaled CampaignID.
const CampaignIDLen = 8

// CampaignID identifies a relief campaign. Identifiers are assigned
// sequentially starting at 1 and never reused.
type CampaignID uint64

// Marshal encodes the CampaignID as 8 big endian bytes, so the byte order of
// the keys follows the numeric order of the identifiers.
func (id CampaignID) Marshal() []byte {
	b := make([]byte, CampaignIDLen)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// Unmarshal decodes a CampaignID from its 8 bytes representation.
func (id *CampaignID) Unmarshal(data []byte) error {
	if len(data) != CampaignIDLen {
		return fmt.Errorf("invalid CampaignID length: %d", len(data))
	}
	*id = CampaignID(binary.BigEndian.Uint64(data))
	return nil
}

// MarshalBinary implements the BinaryMarshaler interface
func (id CampaignID) MarshalBinary() ([]byte, error) {
	return id.Marshal(), nil
}

// UnmarshalBinary implements the BinaryUnmarshaler interface
func (id *CampaignID) UnmarshalBinary(data []byte) error {
	return id.Unmarshal(data)
}

// String returns the decimal representation of the identifier.
func (id CampaignID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseCampaignID parses a decimal campaign identifier. Zero is not a valid
// identifier.
func ParseCampaignID(s string) (CampaignID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid campaign id %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("invalid campaign id %q: must be positive", s)
	}
	return CampaignID(v), nil
}
