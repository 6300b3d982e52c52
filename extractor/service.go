package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/use-agent/corpus/models"
)

// Service is the typed client of the extraction service protocol.
type Service struct {
	transport Transport
}

// NewService wraps a Transport.
func NewService(t Transport) *Service {
	return &Service{transport: t}
}

// Trainee fetches the trainee with the given id.
func (s *Service) Trainee(ctx context.Context, traineeID string) (*models.Trainee, error) {
	raw, err := s.transport.Send(ctx, Message{Type: TypeTrainee, TraineeID: traineeID})
	if err != nil {
		return nil, asTransportError(TypeTrainee, err)
	}
	if isEmpty(raw) {
		return nil, fmt.Errorf("trainee %q: empty response", traineeID)
	}

	var t models.Trainee
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("trainee %q: decode: %w", traineeID, err)
	}
	if t.Coeffs == nil || t.Coeffs.Len() == 0 {
		return nil, fmt.Errorf("trainee %q: no coeffs", traineeID)
	}
	if t.ID == "" {
		t.ID = traineeID
	}
	return &t, nil
}

// VectorizeTab asks the service to vectorize the page loaded in tabID.
// A response that cannot be decoded counts as a failed round-trip.
func (s *Service) VectorizeTab(ctx context.Context, tabID, traineeID string) (*models.FeatureVector, error) {
	raw, err := s.transport.Send(ctx, Message{
		Type:      TypeVectorizeTab,
		TabID:     tabID,
		TraineeID: traineeID,
	})
	if err != nil {
		return nil, asTransportError(TypeVectorizeTab, err)
	}
	if isEmpty(raw) {
		return nil, &TransportError{Op: TypeVectorizeTab, Err: errors.New("empty response")}
	}

	var v models.FeatureVector
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &TransportError{Op: TypeVectorizeTab, Err: fmt.Errorf("decode vector: %w", err)}
	}
	return &v, nil
}

func isEmpty(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
