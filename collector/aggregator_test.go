package collector

import (
	"errors"
	"reflect"
	"testing"

	"github.com/use-agent/corpus/models"
)

func TestAggregator_Build(t *testing.T) {
	var a Aggregator
	a.Record(vec(models.Num(1)))
	a.Record(vec(models.Num(2)))

	names := []string{"x"}
	report, err := a.Build(names)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Header.Version != models.ReportVersion {
		t.Errorf("version = %d", report.Header.Version)
	}
	if !reflect.DeepEqual(report.Header.FeatureNames, []string{"x"}) {
		t.Errorf("featureNames = %v", report.Header.FeatureNames)
	}
	if len(report.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(report.Pages))
	}

	names[0] = "changed"
	if report.Header.FeatureNames[0] != "x" {
		t.Error("report shares the caller's featureNames slice")
	}

	if _, err := a.Build(names); !errors.Is(err, ErrAlreadyBuilt) {
		t.Errorf("second Build = %v, want ErrAlreadyBuilt", err)
	}
}

func TestAggregator_Reset(t *testing.T) {
	var a Aggregator
	a.Record(vec(models.Num(1)))
	if _, err := a.Build(nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	a.Reset()
	if a.Len() != 0 {
		t.Errorf("Len after Reset = %d", a.Len())
	}
	report, err := a.Build(nil)
	if err != nil {
		t.Fatalf("Build after Reset: %v", err)
	}
	if len(report.Pages) != 0 || report.Header.FeatureNames == nil {
		t.Errorf("empty report = %+v", report)
	}
}

func TestMultiChannel(t *testing.T) {
	var got []string
	ch := MultiChannel{
		FuncChannel{OnStatus: func(s models.PageStatus) { got = append(got, "a:"+s.Message) }},
		FuncChannel{OnDone: func(bool) { got = append(got, "b:done") }},
		FuncChannel{},
	}
	ch.Emit(models.PageStatus{Message: "vectorized"})
	ch.EmitDone(true)

	want := []string{"a:vectorized", "b:done"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
