package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Feature is one optional numeric feature value. The zero value is missing,
// which is what the extraction service reports when a rule did not run.
type Feature struct {
	v     float64
	valid bool
}

// Num returns a present feature value.
func Num(v float64) Feature {
	return Feature{v: v, valid: true}
}

// Null returns a missing feature value.
func Null() Feature {
	return Feature{}
}

// IsMissing reports whether the value is absent.
func (f Feature) IsMissing() bool {
	return !f.valid
}

// Float returns the value and whether it is present.
func (f Feature) Float() (float64, bool) {
	return f.v, f.valid
}

func (f Feature) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f.v, 'g', -1, 64), nil
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Feature{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Num(v)
	return nil
}

// NodeFeatures is the feature row for one examined DOM node. Index i of
// Features corresponds to the i-th coeff of the run's trainee.
type NodeFeatures struct {
	Features []Feature `json:"features"`
}

// FeatureVector is the extraction service's output for one page.
type FeatureVector struct {
	Nodes []NodeFeatures `json:"nodes"`
}
