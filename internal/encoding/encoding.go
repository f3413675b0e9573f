package encoding

import (
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// Encoder buffers values of a single series column and seals them into a
// self-describing byte stream. Implementations accept only the typed calls
// matching their data type; the page writer routes by declared type.
type Encoder interface {
	// EncodeBool/EncodeInt32/... append one value.
	EncodeBool(v bool)
	EncodeInt32(v int32)
	EncodeInt64(v int64)
	EncodeFloat32(v float32)
	EncodeFloat64(v float64)
	EncodeBinary(v []byte)

	// Size returns a conservative upper bound of the sealed byte length.
	Size() int

	// Flush appends the sealed stream to buf and resets the encoder.
	Flush(buf []byte) []byte

	// Reset drops all buffered values.
	Reset()
}

// Decoder iterates a sealed stream. Only the typed reader matching the
// stream's data type returns values; the others fail with INVALID_ARG.
type Decoder interface {
	HasNext() bool
	NextBool() (bool, error)
	NextInt32() (int32, error)
	NextInt64() (int64, error)
	NextFloat32() (float32, error)
	NextFloat64() (float64, error)
	NextBinary() ([]byte, error)
}

// baseDecoder supplies INVALID_ARG defaults so concrete decoders only
// implement the readers for their type.
type baseDecoder struct{}

func (baseDecoder) NextBool() (bool, error) {
	return false, tserr.New(tserr.CodeInvalidArg, "stream holds no BOOLEAN values")
}
func (baseDecoder) NextInt32() (int32, error) {
	return 0, tserr.New(tserr.CodeInvalidArg, "stream holds no INT32 values")
}
func (baseDecoder) NextInt64() (int64, error) {
	return 0, tserr.New(tserr.CodeInvalidArg, "stream holds no INT64 values")
}
func (baseDecoder) NextFloat32() (float32, error) {
	return 0, tserr.New(tserr.CodeInvalidArg, "stream holds no FLOAT values")
}
func (baseDecoder) NextFloat64() (float64, error) {
	return 0, tserr.New(tserr.CodeInvalidArg, "stream holds no DOUBLE values")
}
func (baseDecoder) NextBinary() ([]byte, error) {
	return nil, tserr.New(tserr.CodeInvalidArg, "stream holds no binary values")
}

// baseEncoder panics on typed writes the codec does not accept. The page
// writer validates (encoding, dataType) before construction, so reaching
// one of these is a programming error, not user input.
type baseEncoder struct{}

func (baseEncoder) EncodeBool(bool)       { panic("encoding: bool not accepted by this codec") }
func (baseEncoder) EncodeInt32(int32)     { panic("encoding: int32 not accepted by this codec") }
func (baseEncoder) EncodeInt64(int64)     { panic("encoding: int64 not accepted by this codec") }
func (baseEncoder) EncodeFloat32(float32) { panic("encoding: float32 not accepted by this codec") }
func (baseEncoder) EncodeFloat64(float64) { panic("encoding: float64 not accepted by this codec") }
func (baseEncoder) EncodeBinary([]byte)   { panic("encoding: binary not accepted by this codec") }

// Supports reports whether enc can carry values of dt.
func Supports(enc model.Encoding, dt model.DataType) bool {
	switch enc {
	case model.EncPlain:
		return dt.Valid() && dt != model.Vector
	case model.EncRLE:
		return dt == model.Boolean || dt.IsIntLike()
	case model.EncTS2Diff:
		return dt.IsIntLike()
	case model.EncGorilla, model.EncGorillaV1:
		return dt == model.Float || dt == model.Double || dt.IsIntLike()
	case model.EncDictionary:
		return dt.IsBinary()
	case model.EncZigzag:
		return dt.IsIntLike()
	default:
		return false
	}
}

// GetEncoder constructs an encoder for (enc, dt). Reserved tags with no
// write-side definition return NOT_SUPPORTED.
func GetEncoder(enc model.Encoding, dt model.DataType) (Encoder, error) {
	switch enc {
	case model.EncDiff, model.EncBitmap, model.EncRegular, model.EncFreq:
		return nil, tserr.New(tserr.CodeNotSupported, "encoding %s has no write-side definition", enc)
	}
	if !Supports(enc, dt) {
		return nil, tserr.New(tserr.CodeInvalidArg, "encoding %s cannot carry %s values", enc, dt)
	}
	switch enc {
	case model.EncPlain:
		return newPlainEncoder(dt), nil
	case model.EncRLE:
		return newRLEEncoder(dt), nil
	case model.EncTS2Diff:
		return newTS2DiffEncoder(dt), nil
	case model.EncGorilla, model.EncGorillaV1:
		return newGorillaEncoder(dt), nil
	case model.EncDictionary:
		return newDictionaryEncoder(), nil
	case model.EncZigzag:
		return newZigzagEncoder(dt), nil
	}
	return nil, tserr.New(tserr.CodeNotSupported, "encoding %s", enc)
}

// GetDecoder constructs a decoder over a sealed stream. Reserved tags
// decode to NOT_SUPPORTED rather than a plausible but invented layout.
func GetDecoder(enc model.Encoding, dt model.DataType, data []byte) (Decoder, error) {
	switch enc {
	case model.EncDiff, model.EncBitmap, model.EncRegular, model.EncFreq:
		return nil, tserr.New(tserr.CodeNotSupported, "encoding %s has no stable decoding", enc)
	}
	if !Supports(enc, dt) {
		return nil, tserr.New(tserr.CodeInvalidArg, "encoding %s cannot carry %s values", enc, dt)
	}
	switch enc {
	case model.EncPlain:
		return newPlainDecoder(dt, data), nil
	case model.EncRLE:
		return newRLEDecoder(dt, data)
	case model.EncTS2Diff:
		return newTS2DiffDecoder(dt, data)
	case model.EncGorilla, model.EncGorillaV1:
		return newGorillaDecoder(dt, data)
	case model.EncDictionary:
		return newDictionaryDecoder(data)
	case model.EncZigzag:
		return newZigzagDecoder(dt, data)
	}
	return nil, tserr.New(tserr.CodeNotSupported, "encoding %s", enc)
}
