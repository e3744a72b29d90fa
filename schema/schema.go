package schema

// Measurement is a single voltage/current reading.
type Measurement struct {
	Voltage float64 // volts
	Current float64 // amps
}

func (m Measurement) Name() string {
	return "measurement"
}

// LengthPair holds the two user supplied lengths, in meters.
type LengthPair struct {
	Length              float64
	SmallerRadiusLength float64
}

// Point is one calculated result: X is the length, Y the resistivity in Ohm·m.
type Point struct {
	X float64
	Y float64
}

// Series is kept sorted ascending by X.
type Series []Point

func (s Series) Clone() Series {
	if s == nil {
		return Series{}
	}
	result := make(Series, len(s))
	copy(result, s)
	return result
}

// Update is published after every successful calculation.
type Update struct {
	Series Series
	Latest Point
}

func (u Update) Name() string {
	return "update"
}
