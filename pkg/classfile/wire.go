package classfile

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so the same class always encodes
// to the same bytes, which keeps image dumps diffable and cacheable by
// content hash.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("classfile: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a parsed Class to canonical CBOR bytes.
func Marshal(c *Class) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// Unmarshal deserializes a Class from CBOR bytes produced by Marshal.
func Unmarshal(data []byte) (*Class, error) {
	var c Class
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding class image: %w", err)
	}
	return &c, nil
}
