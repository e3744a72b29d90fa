package storage

import (
	"math"

	jsoniter "github.com/json-iterator/go"
	"github.com/minor-industries/ermc/schema"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// point is the persisted form of schema.Point. JSON has no representation
// for ±Inf or NaN, so those are written as null.
type point struct {
	X float64  `json:"x"`
	Y *float64 `json:"y"`
}

func EncodeSeries(series schema.Series) ([]byte, error) {
	rows := make([]point, len(series))
	for i, p := range series {
		rows[i].X = p.X
		if !math.IsInf(p.Y, 0) && !math.IsNaN(p.Y) {
			y := p.Y
			rows[i].Y = &y
		}
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return nil, errors.Wrap(err, "marshal series")
	}
	return data, nil
}

func DecodeSeries(data []byte) (schema.Series, error) {
	var rows []point
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshal series")
	}

	result := make(schema.Series, len(rows))
	for i, row := range rows {
		result[i].X = row.X
		if row.Y == nil {
			result[i].Y = math.NaN()
		} else {
			result[i].Y = *row.Y
		}
	}
	return result, nil
}
