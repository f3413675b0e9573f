package meta

import (
	"math"

	"github.com/twmb/murmur3"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// BloomFilter answers "might this series exist in the file" without
// touching the index tree. Keys are tableName || deviceID || measurement.
type BloomFilter struct {
	bits   []byte
	size   uint64 // size in bits
	hashes uint32
}

const (
	minBloomSize   = 256
	minBloomHashes = 1
	maxBloomHashes = 8
)

// NewBloomFilter sizes the filter for n expected series at the given
// false-positive rate:
//
//	m = ceil(-n ln(p) / ln(2)^2),  k = ceil((m/n) ln 2)
func NewBloomFilter(n int, fpRate float64) *BloomFilter {
	if n < 1 {
		n = 1
	}
	m := uint64(math.Ceil(-float64(n) * math.Log(fpRate) / (math.Ln2 * math.Ln2)))
	if m < minBloomSize {
		m = minBloomSize
	}
	k := uint32(math.Ceil(float64(m) / float64(n) * math.Ln2))
	if k < minBloomHashes {
		k = minBloomHashes
	}
	if k > maxBloomHashes {
		k = maxBloomHashes
	}
	return &BloomFilter{
		bits:   make([]byte, (m+7)/8),
		size:   m,
		hashes: k,
	}
}

// SeriesKey builds the hashed key for one series.
func SeriesKey(table string, device model.DeviceID, measurement string) []byte {
	key := make([]byte, 0, len(table)+len(measurement)+16)
	key = append(key, table...)
	key = append(key, 0)
	key = append(key, device.Bytes()...)
	key = append(key, 0)
	key = append(key, measurement...)
	return key
}

// Add marks a series key present.
func (bf *BloomFilter) Add(key []byte) {
	for i := uint32(0); i < bf.hashes; i++ {
		bit := bf.hash(key, i)
		bf.bits[bit/8] |= 1 << (bit % 8)
	}
}

// MightContain reports whether the key might be present. A false result
// is definitive.
func (bf *BloomFilter) MightContain(key []byte) bool {
	if bf == nil || bf.size == 0 {
		return false
	}
	for i := uint32(0); i < bf.hashes; i++ {
		bit := bf.hash(key, i)
		if bf.bits[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// hash derives the i-th hash function from a seeded 128-bit murmur3.
func (bf *BloomFilter) hash(key []byte, seed uint32) uint64 {
	h1, h2 := murmur3.SeedSum128(uint64(seed+1), uint64(seed+1), key)
	return (h1 ^ h2) % bf.size
}

// Serialize appends {size uvarint, k uvarint, bitmap bytes}.
func (bf *BloomFilter) Serialize(buf []byte) []byte {
	buf = serialize.AppendUvarint(buf, bf.size)
	buf = serialize.AppendUvarint(buf, uint64(bf.hashes))
	return append(buf, bf.bits...)
}

// DeserializeBloomFilter parses a filter, returning bytes consumed.
// A leading zero size denotes an absent filter (nil, 1, nil).
func DeserializeBloomFilter(data []byte) (*BloomFilter, int, error) {
	size, n := serialize.ReadUvarint(data)
	if n == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated bloom filter")
	}
	if size == 0 {
		return nil, n, nil
	}
	off := n
	k, n := serialize.ReadUvarint(data[off:])
	if n == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated bloom filter hash count")
	}
	off += n
	byteLen := int((size + 7) / 8)
	if len(data)-off < byteLen {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated bloom filter bitmap")
	}
	bf := &BloomFilter{
		bits:   append([]byte(nil), data[off:off+byteLen]...),
		size:   size,
		hashes: uint32(k),
	}
	return bf, off + byteLen, nil
}
