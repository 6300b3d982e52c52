package vectorize

import (
	"strconv"

	"github.com/use-agent/corpus/models"
)

// FindNullFeatures returns the names of the missing features of the first
// node that has any, or nil when every feature of every node is present.
// Later nodes are not inspected once one bad node is found.
func FindNullFeatures(vec *models.FeatureVector, trainee *models.Trainee) []string {
	if vec == nil {
		return nil
	}
	for _, node := range vec.Nodes {
		if !hasMissing(node) {
			continue
		}
		names := trainee.FeatureNames()
		var missing []string
		for i, f := range node.Features {
			if !f.IsMissing() {
				continue
			}
			if i < len(names) {
				missing = append(missing, names[i])
			} else {
				missing = append(missing, "#"+strconv.Itoa(i))
			}
		}
		return missing
	}
	return nil
}

func hasMissing(node models.NodeFeatures) bool {
	for _, f := range node.Features {
		if f.IsMissing() {
			return true
		}
	}
	return false
}
