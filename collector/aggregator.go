package collector

import (
	"errors"

	"github.com/use-agent/corpus/models"
)

// ErrAlreadyBuilt is returned by a second Build in the same run.
var ErrAlreadyBuilt = errors.New("collector: report already built for this run")

// Aggregator accumulates clean vectors in the order pages completed.
// The list only grows until Reset.
type Aggregator struct {
	vectors []models.FeatureVector
	built   bool
}

// Record appends a vector.
func (a *Aggregator) Record(v *models.FeatureVector) {
	a.vectors = append(a.vectors, *v)
}

// Len is the number of recorded vectors.
func (a *Aggregator) Len() int {
	return len(a.vectors)
}

// Reset drops everything recorded so far and allows a new Build.
func (a *Aggregator) Reset() {
	a.vectors = nil
	a.built = false
}

// Build assembles the corpus report. It may be called once per run.
func (a *Aggregator) Build(featureNames []string) (*models.CorpusReport, error) {
	if a.built {
		return nil, ErrAlreadyBuilt
	}
	a.built = true

	pages := make([]models.FeatureVector, len(a.vectors))
	copy(pages, a.vectors)
	names := make([]string, len(featureNames))
	copy(names, featureNames)

	return &models.CorpusReport{
		Header: models.ReportHeader{
			Version:      models.ReportVersion,
			FeatureNames: names,
		},
		Pages: pages,
	}, nil
}
