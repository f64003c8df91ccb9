package market

// ShareListing account decoding. Account layout (little-endian):
// - discriminator: 8 bytes
// - pool: Pubkey (32 bytes)
// - seller: Pubkey (32 bytes)
// - shareholder: Pubkey (32 bytes)
// - numberOfShares: u64 (8 bytes)
// - pricePerShare: u64 (8 bytes)
// - listingId: String (4-byte length + data)

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/mr-tron/base58"
)

// ListingDiscriminator is the 8-byte account discriminator for
// ShareListing accounts. Earlier deployments filtered on the first two
// bytes only (0x26 0xdb); the full 8-byte value is canonical.
var ListingDiscriminator = [8]byte{38, 219, 182, 80, 137, 29, 254, 143}

// DiscriminatorBase58 returns the discriminator in the base58 form the
// RPC memcmp filter expects.
func DiscriminatorBase58() string {
	return base58.Encode(ListingDiscriminator[:])
}

const (
	discriminatorLen = 8
	pubkeyLen        = 32
	// fixedHeaderLen covers everything before the listing id bytes.
	fixedHeaderLen = discriminatorLen + 3*pubkeyLen + 2*8 + 4
)

var (
	// ErrTruncatedInput means the blob ended before a field could be read.
	ErrTruncatedInput = errors.New("truncated listing account data")
	// ErrInvalidEncoding means the listing id bytes are not valid UTF-8.
	ErrInvalidEncoding = errors.New("listing id is not valid UTF-8")
	// ErrZeroShares means the decoded listing offers no shares.
	ErrZeroShares = errors.New("listing has zero shares")
)

// Listing is one secondary-market offer decoded from on-chain data.
type Listing struct {
	Pool           [32]byte
	Seller         [32]byte
	Shareholder    [32]byte
	NumberOfShares uint64
	PricePerShare  uint64
	ListingID      string
}

// TotalPrice is derived, not stored on chain.
func (l Listing) TotalPrice() uint64 {
	return l.NumberOfShares * l.PricePerShare
}

// PoolAddress returns the pool key in display form.
func (l Listing) PoolAddress() string { return base58.Encode(l.Pool[:]) }

// SellerAddress returns the seller key in display form.
func (l Listing) SellerAddress() string { return base58.Encode(l.Seller[:]) }

// ShareholderAddress returns the shareholder key in display form.
func (l Listing) ShareholderAddress() string { return base58.Encode(l.Shareholder[:]) }

// DecodeListing decodes a raw (already base64-decoded) ShareListing
// account blob. The discriminator length is skipped without validating
// its value; callers are expected to have filtered on it. Returns
// ErrTruncatedInput or ErrInvalidEncoding on malformed input, never a
// partial Listing.
func DecodeListing(data []byte) (Listing, error) {
	var l Listing

	if len(data) < fixedHeaderLen {
		return Listing{}, fmt.Errorf("%w: have %d bytes, need at least %d", ErrTruncatedInput, len(data), fixedHeaderLen)
	}

	offset := discriminatorLen
	offset += copy(l.Pool[:], data[offset:offset+pubkeyLen])
	offset += copy(l.Seller[:], data[offset:offset+pubkeyLen])
	offset += copy(l.Shareholder[:], data[offset:offset+pubkeyLen])

	l.NumberOfShares = binary.LittleEndian.Uint64(data[offset:])
	offset += 8
	l.PricePerShare = binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	idLen := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	if len(data)-offset < idLen {
		return Listing{}, fmt.Errorf("%w: listing id declares %d bytes, %d remain", ErrTruncatedInput, idLen, len(data)-offset)
	}

	idBytes := data[offset : offset+idLen]
	if !utf8.Valid(idBytes) {
		return Listing{}, ErrInvalidEncoding
	}
	l.ListingID = string(idBytes)

	if l.NumberOfShares == 0 {
		return Listing{}, ErrZeroShares
	}

	return l, nil
}
