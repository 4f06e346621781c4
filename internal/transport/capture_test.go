package transport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecorderFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	rec, path, err := OpenRecorder(dir)
	if err != nil {
		t.Fatalf("OpenRecorder() error = %v", err)
	}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	if err := rec.Record("gw", DirectionInbound, []byte(`~m~2~m~{}`)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := rec.Record("gw", DirectionOutbound, nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	records, err := ReadCapture(f)
	if err != nil {
		t.Fatalf("ReadCapture() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if !records[0].Timestamp.Equal(fixed) || records[0].Payload != `~m~2~m~{}` {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].Seq != 2 || records[1].Payload != "" || records[1].PayloadLen != 0 {
		t.Errorf("record 1 = %+v", records[1])
	}
}

func TestReadCapture(t *testing.T) {
	input := `{"seq":1,"direction":"server->client","payload":"a"}` + "\n\n" +
		`{"seq":2,"direction":"client->server","payload":"b"}` + "\n"
	records, err := ReadCapture(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCapture() error = %v", err)
	}
	if len(records) != 2 || records[1].Payload != "b" {
		t.Errorf("records = %+v", records)
	}

	if _, err := ReadCapture(strings.NewReader("{not json}\n")); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("ReadCapture() error = %v, want line 1 parse error", err)
	}
}
