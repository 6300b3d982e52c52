package vectorize

import (
	"reflect"
	"testing"

	"github.com/use-agent/corpus/models"
)

func abcTrainee() *models.Trainee {
	return models.NewTrainee("t",
		models.Coeff{Name: "a", Weight: 1},
		models.Coeff{Name: "b", Weight: 2},
		models.Coeff{Name: "c", Weight: 3},
	)
}

func row(fs ...models.Feature) models.NodeFeatures {
	return models.NodeFeatures{Features: fs}
}

func TestFindNullFeatures(t *testing.T) {
	n, x := models.Num, models.Null()

	tests := []struct {
		name string
		vec  *models.FeatureVector
		want []string
	}{
		{
			name: "nil vector",
			vec:  nil,
			want: nil,
		},
		{
			name: "no nodes",
			vec:  &models.FeatureVector{},
			want: nil,
		},
		{
			name: "clean",
			vec:  &models.FeatureVector{Nodes: []models.NodeFeatures{row(n(1), n(0), n(3))}},
			want: nil,
		},
		{
			name: "middle feature missing",
			vec:  &models.FeatureVector{Nodes: []models.NodeFeatures{row(n(1), x, n(3))}},
			want: []string{"b"},
		},
		{
			name: "several missing in order",
			vec:  &models.FeatureVector{Nodes: []models.NodeFeatures{row(x, n(2), x)}},
			want: []string{"a", "c"},
		},
		{
			name: "only first offending node reported",
			vec: &models.FeatureVector{Nodes: []models.NodeFeatures{
				row(n(1), n(2), n(3)),
				row(n(1), n(2), x),
				row(x, x, n(3)),
			}},
			want: []string{"c"},
		},
		{
			name: "index beyond trainee names",
			vec:  &models.FeatureVector{Nodes: []models.NodeFeatures{row(n(1), n(2), n(3), x)}},
			want: []string{"#3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindNullFeatures(tt.vec, abcTrainee())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindNullFeatures = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindNullFeatures_Idempotent(t *testing.T) {
	vec := &models.FeatureVector{Nodes: []models.NodeFeatures{row(models.Num(1), models.Null(), models.Num(3))}}
	tr := abcTrainee()

	first := FindNullFeatures(vec, tr)
	second := FindNullFeatures(vec, tr)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between calls: %v vs %v", first, second)
	}
	if !vec.Nodes[0].Features[1].IsMissing() {
		t.Error("input vector was modified")
	}
}
