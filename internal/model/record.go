package model

// DataPoint is one (measurement, value) pair inside a record. A nil Value
// with IsNull set contributes a null cell on the aligned path.
type DataPoint struct {
	Measurement string
	DataType    DataType
	Value       interface{}
	IsNull      bool
}

// TsRecord is a single row for one device.
type TsRecord struct {
	Device    DeviceID
	Timestamp int64
	Points    []DataPoint
}

// NewTsRecord builds an empty record.
func NewTsRecord(device DeviceID, timestamp int64) *TsRecord {
	return &TsRecord{Device: device, Timestamp: timestamp}
}

// Add appends a point.
func (r *TsRecord) Add(measurement string, dt DataType, value interface{}) *TsRecord {
	r.Points = append(r.Points, DataPoint{Measurement: measurement, DataType: dt, Value: value})
	return r
}

// AddNull appends a null point for the aligned path.
func (r *TsRecord) AddNull(measurement string, dt DataType) *TsRecord {
	r.Points = append(r.Points, DataPoint{Measurement: measurement, DataType: dt, IsNull: true})
	return r
}
