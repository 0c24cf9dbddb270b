package database

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// StoredIdentity is an enrolled person and their template descriptor.
type StoredIdentity struct {
	ID             int64
	Name           string
	NormalizedName string
	Descriptor     []float32
	CreatedAt      time.Time
}

// IdentityMatch pairs an identity with its distance to a probe descriptor.
type IdentityMatch struct {
	Identity StoredIdentity
	Distance float64
}

// EncodeDescriptor packs a descriptor as little-endian float32 values.
func EncodeDescriptor(d []float32) []byte {
	buf := make([]byte, len(d)*4)
	for i, v := range d {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeDescriptor unpacks a descriptor written by EncodeDescriptor.
func DecodeDescriptor(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("descriptor blob length %d is not a multiple of 4", len(b))
	}
	d := make([]float32, len(b)/4)
	for i := range d {
		d[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return d, nil
}
