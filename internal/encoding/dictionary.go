package encoding

import (
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// dictionaryEncoder maps binary values to dense ids. Worth it when a
// column holds few distinct values (status codes, labels).
//
// Sealed layout:
//
//	[dictSize: uvarint]
//	[entries: dictSize length-prefixed byte sequences, in first-seen order]
//	[count: uvarint]
//	[ids: count uvarints]
type dictionaryEncoder struct {
	baseEncoder
	index   map[string]uint64
	entries []string
	ids     []uint64
	byteLen int
}

func newDictionaryEncoder() *dictionaryEncoder {
	return &dictionaryEncoder{index: make(map[string]uint64, 8)}
}

func (e *dictionaryEncoder) EncodeBinary(v []byte) {
	s := string(v)
	id, ok := e.index[s]
	if !ok {
		id = uint64(len(e.entries))
		e.index[s] = id
		e.entries = append(e.entries, s)
		e.byteLen += len(s) + 5
	}
	e.ids = append(e.ids, id)
}

func (e *dictionaryEncoder) Size() int { return e.byteLen + len(e.ids)*5 + 10 }

func (e *dictionaryEncoder) Flush(buf []byte) []byte {
	buf = serialize.AppendUvarint(buf, uint64(len(e.entries)))
	for _, s := range e.entries {
		buf = serialize.AppendString(buf, s)
	}
	buf = serialize.AppendUvarint(buf, uint64(len(e.ids)))
	for _, id := range e.ids {
		buf = serialize.AppendUvarint(buf, id)
	}
	e.Reset()
	return buf
}

func (e *dictionaryEncoder) Reset() {
	e.index = make(map[string]uint64, 8)
	e.entries = e.entries[:0]
	e.ids = e.ids[:0]
	e.byteLen = 0
}

type dictionaryDecoder struct {
	baseDecoder
	entries   [][]byte
	data      []byte
	off       int
	remaining uint64
}

func newDictionaryDecoder(data []byte) (*dictionaryDecoder, error) {
	d := &dictionaryDecoder{}
	dictSize, n := serialize.ReadUvarint(data)
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated DICTIONARY header")
	}
	off := n
	d.entries = make([][]byte, 0, dictSize)
	for i := uint64(0); i < dictSize; i++ {
		entry, n, err := serialize.ReadBytes(data[off:])
		if err != nil {
			return nil, err
		}
		off += n
		d.entries = append(d.entries, entry)
	}
	count, n := serialize.ReadUvarint(data[off:])
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated DICTIONARY id count")
	}
	d.remaining = count
	d.data = data
	d.off = off + n
	return d, nil
}

func (d *dictionaryDecoder) HasNext() bool { return d.remaining > 0 }

func (d *dictionaryDecoder) NextBinary() ([]byte, error) {
	if d.remaining == 0 {
		return nil, tserr.NoMoreData
	}
	id, n := serialize.ReadUvarint(d.data[d.off:])
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated DICTIONARY id stream")
	}
	d.off += n
	d.remaining--
	if id >= uint64(len(d.entries)) {
		return nil, tserr.New(tserr.CodeCorrupted, "DICTIONARY id %d out of range", id)
	}
	return d.entries[id], nil
}
