package meta

import (
	"sort"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// TsFileMeta is the footer: per-table index roots, table schemas, the
// start of the metadata section, the bloom filter, and free-form
// properties.
type TsFileMeta struct {
	TableIndexRoots map[string]*IndexNode
	TableSchemas    map[string]*model.TableSchema
	MetaOffset      int64
	Bloom           *BloomFilter
	Properties      map[string]string
}

// Serialize appends the footer form:
//
//	uvarint numTables,      repeated varstring tableName + IndexNode
//	uvarint numSchemas,     repeated varstring tableName + TableSchema
//	int64 LE metaOffset
//	BloomFilter or a single 0x00 when absent
//	varint numProperties,   repeated varstring key + varstring value
func (m *TsFileMeta) Serialize(buf []byte) []byte {
	buf = serialize.AppendUvarint(buf, uint64(len(m.TableIndexRoots)))
	for _, name := range sortedKeys(m.TableIndexRoots) {
		buf = serialize.AppendString(buf, name)
		buf = m.TableIndexRoots[name].Serialize(buf)
	}

	buf = serialize.AppendUvarint(buf, uint64(len(m.TableSchemas)))
	names := make([]string, 0, len(m.TableSchemas))
	for name := range m.TableSchemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		buf = serialize.AppendString(buf, name)
		buf = m.TableSchemas[name].Serialize(buf)
	}

	buf = serialize.AppendI64(buf, m.MetaOffset)

	if m.Bloom != nil {
		buf = m.Bloom.Serialize(buf)
	} else {
		buf = append(buf, 0x00)
	}

	buf = serialize.AppendVarint(buf, int64(len(m.Properties)))
	for _, k := range sortedStrKeys(m.Properties) {
		buf = serialize.AppendString(buf, k)
		buf = serialize.AppendString(buf, m.Properties[k])
	}
	return buf
}

// DeserializeTsFileMeta parses a footer region in full. Trailing garbage
// marks corruption.
func DeserializeTsFileMeta(data []byte) (*TsFileMeta, error) {
	m := &TsFileMeta{
		TableIndexRoots: make(map[string]*IndexNode),
		TableSchemas:    make(map[string]*model.TableSchema),
	}
	cnt, off := serialize.ReadUvarint(data)
	if off == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated footer")
	}
	for i := uint64(0); i < cnt; i++ {
		name, n, err := serialize.ReadString(data[off:])
		if err != nil {
			return nil, err
		}
		off += n
		node, n, err := DeserializeIndexNode(data[off:], true)
		if err != nil {
			return nil, err
		}
		off += n
		m.TableIndexRoots[name] = node
	}

	cnt, n := serialize.ReadUvarint(data[off:])
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated footer schema count")
	}
	off += n
	for i := uint64(0); i < cnt; i++ {
		name, n, err := serialize.ReadString(data[off:])
		if err != nil {
			return nil, err
		}
		off += n
		schema, n, err := model.DeserializeTableSchema(data[off:])
		if err != nil {
			return nil, err
		}
		off += n
		schema.TableName = name
		m.TableSchemas[name] = schema
	}

	var k int
	if m.MetaOffset, k = serialize.ReadI64(data[off:]); k == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated footer meta offset")
	}
	off += 8

	bloom, n, err := DeserializeBloomFilter(data[off:])
	if err != nil {
		return nil, err
	}
	m.Bloom = bloom
	off += n

	propCnt, n := serialize.ReadVarint(data[off:])
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated footer property count")
	}
	off += n
	if propCnt > 0 {
		m.Properties = make(map[string]string, propCnt)
		for i := int64(0); i < propCnt; i++ {
			key, n, err := serialize.ReadString(data[off:])
			if err != nil {
				return nil, err
			}
			off += n
			val, n, err := serialize.ReadString(data[off:])
			if err != nil {
				return nil, err
			}
			off += n
			m.Properties[key] = val
		}
	}

	if off != len(data) {
		return nil, tserr.New(tserr.CodeCorrupted,
			"footer has %d trailing bytes", len(data)-off)
	}
	return m, nil
}

func sortedKeys(m map[string]*IndexNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStrKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
