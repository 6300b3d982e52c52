package sink

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/use-agent/corpus/models"
)

func sampleReport() *models.CorpusReport {
	return &models.CorpusReport{
		Header: models.ReportHeader{Version: 1, FeatureNames: []string{"a", "b"}},
		Pages: []models.FeatureVector{
			{Nodes: []models.NodeFeatures{{Features: []models.Feature{models.Num(1), models.Num(0.5)}}}},
		},
	}
}

func TestEncode_WireShape(t *testing.T) {
	data, err := Encode(sampleReport())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"header":{"version":1,"featureNames":["a","b"]},"pages":[{"nodes":[{"features":[1,0.5]}]}]}`
	if string(data) != want {
		t.Errorf("Encode =\n%s\nwant\n%s", data, want)
	}
}

func TestFileSink_Deliver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := FileSink{Dir: dir}

	if err := s.Deliver(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if s.Path() != filepath.Join(dir, "vectors.json") {
		t.Errorf("Path = %s", s.Path())
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got models.CorpusReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("written file is not valid JSON: %v", err)
	}
	if got.Header.Version != 1 || len(got.Pages) != 1 {
		t.Errorf("report = %+v", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, temp file left behind", len(entries))
	}
}

func TestFileSink_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := FileSink{Dir: t.TempDir()}
	if err := s.Deliver(ctx, sampleReport()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("report written despite canceled context")
	}
}

type failingSink struct{ err error }

func (f failingSink) Deliver(context.Context, *models.CorpusReport) error { return f.err }

func TestMulti_DeliversToAll(t *testing.T) {
	first := errors.New("first")
	var mem MemorySink
	m := Multi{failingSink{first}, &mem, failingSink{errors.New("second")}}

	err := m.Deliver(context.Background(), sampleReport())
	if !errors.Is(err, first) {
		t.Errorf("err = %v, want first error", err)
	}
	if mem.Bytes() == nil {
		t.Error("memory sink skipped after an earlier failure")
	}
}
