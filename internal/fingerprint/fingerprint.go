package fingerprint

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CID returns a CIDv1 (raw codec, sha2-256) for a serialized container.
func CID(data []byte) string {
	c, err := CIDOf(data)
	if err != nil {
		// multihash.Sum only errors for unknown codes or bad lengths.
		return ""
	}
	return c.String()
}

func CIDOf(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Matches reports whether s is the CID of data.
func Matches(s string, data []byte) bool {
	want, err := cid.Decode(s)
	if err != nil {
		return false
	}
	got, err := CIDOf(data)
	if err != nil {
		return false
	}
	return want.Equals(got)
}
