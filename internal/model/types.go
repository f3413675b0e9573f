package model

import "fmt"

// DataType is the one-byte primitive type tag persisted on disk.
type DataType uint8

const (
	Boolean   DataType = 0
	Int32     DataType = 1
	Int64     DataType = 2
	Float     DataType = 3
	Double    DataType = 4
	Text      DataType = 5 // legacy bytes
	Vector    DataType = 6 // time-only surrogate for aligned groups
	Timestamp DataType = 8
	Date      DataType = 9
	Blob      DataType = 10
	String    DataType = 11
)

func (t DataType) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case Text:
		return "TEXT"
	case Vector:
		return "VECTOR"
	case Timestamp:
		return "TIMESTAMP"
	case Date:
		return "DATE"
	case Blob:
		return "BLOB"
	case String:
		return "STRING"
	default:
		return fmt.Sprintf("DATATYPE(%d)", uint8(t))
	}
}

// Valid reports whether t is a known tag.
func (t DataType) Valid() bool {
	switch t {
	case Boolean, Int32, Int64, Float, Double, Text, Vector, Timestamp, Date, Blob, String:
		return true
	}
	return false
}

// IsBinary reports whether values of t carry variable-length bytes.
func (t DataType) IsBinary() bool {
	return t == Text || t == Blob || t == String
}

// IsIntLike reports whether t stores int64-representable values.
func (t DataType) IsIntLike() bool {
	return t == Int32 || t == Int64 || t == Timestamp || t == Date
}

// Encoding is the one-byte value-encoding tag persisted in chunk headers.
type Encoding uint8

const (
	EncPlain      Encoding = 0
	EncDictionary Encoding = 1
	EncRLE        Encoding = 2
	EncDiff       Encoding = 3
	EncTS2Diff    Encoding = 4
	EncBitmap     Encoding = 5
	EncGorillaV1  Encoding = 6
	EncRegular    Encoding = 7
	EncGorilla    Encoding = 8
	EncZigzag     Encoding = 9
	EncFreq       Encoding = 10
)

func (e Encoding) String() string {
	switch e {
	case EncPlain:
		return "PLAIN"
	case EncDictionary:
		return "DICTIONARY"
	case EncRLE:
		return "RLE"
	case EncDiff:
		return "DIFF"
	case EncTS2Diff:
		return "TS_2DIFF"
	case EncBitmap:
		return "BITMAP"
	case EncGorillaV1:
		return "GORILLA_V1"
	case EncRegular:
		return "REGULAR"
	case EncGorilla:
		return "GORILLA"
	case EncZigzag:
		return "ZIGZAG"
	case EncFreq:
		return "FREQ"
	default:
		return fmt.Sprintf("ENCODING(%d)", uint8(e))
	}
}

// Compression is the one-byte block-compressor tag persisted in chunk headers.
type Compression uint8

const (
	CompUncompressed Compression = 0
	CompSnappy       Compression = 1
	CompGzip         Compression = 2
	CompLZO          Compression = 3
	CompSDT          Compression = 4
	CompPAA          Compression = 5
	CompPLA          Compression = 6
	CompLZ4          Compression = 7
	CompZstd         Compression = 8
)

func (c Compression) String() string {
	switch c {
	case CompUncompressed:
		return "UNCOMPRESSED"
	case CompSnappy:
		return "SNAPPY"
	case CompGzip:
		return "GZIP"
	case CompLZO:
		return "LZO"
	case CompSDT:
		return "SDT"
	case CompPAA:
		return "PAA"
	case CompPLA:
		return "PLA"
	case CompLZ4:
		return "LZ4"
	case CompZstd:
		return "ZSTD"
	default:
		return fmt.Sprintf("COMPRESSION(%d)", uint8(c))
	}
}

// ColumnCategory distinguishes device-identifying columns from measured ones.
type ColumnCategory uint8

const (
	CategoryTag   ColumnCategory = 0
	CategoryField ColumnCategory = 1
)

func (c ColumnCategory) String() string {
	switch c {
	case CategoryTag:
		return "TAG"
	case CategoryField:
		return "FIELD"
	default:
		return fmt.Sprintf("CATEGORY(%d)", uint8(c))
	}
}
