package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Trainee identifies a trained model. The key order of Coeffs is the
// canonical index-to-name mapping for every feature vector produced under it.
type Trainee struct {
	ID string `json:"id,omitempty"`

	// Coeffs maps feature name to weight, in the order the extraction
	// service declared them.
	Coeffs *orderedmap.OrderedMap[string, float64] `json:"coeffs"`

	// ViewportSize is the tab size the ruleset was trained against.
	ViewportSize *Viewport `json:"viewportSize,omitempty"`
}

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Coeff is one named feature weight.
type Coeff struct {
	Name   string
	Weight float64
}

// NewTrainee builds a Trainee whose coeffs keep the given order.
func NewTrainee(id string, coeffs ...Coeff) *Trainee {
	m := orderedmap.New[string, float64]()
	for _, c := range coeffs {
		m.Set(c.Name, c.Weight)
	}
	return &Trainee{ID: id, Coeffs: m}
}

// FeatureNames returns the coeff keys in declaration order.
func (t *Trainee) FeatureNames() []string {
	if t == nil || t.Coeffs == nil {
		return nil
	}
	names := make([]string, 0, t.Coeffs.Len())
	for pair := t.Coeffs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}
