package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	FileSize uint64 `json:"file_size"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, sample{ID: 1, Filename: "a.txt", FileSize: 5}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := `{"id":1,"filename":"a.txt","file_size":5}` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected json output: %q", buf.String())
	}
}

func TestYAMLFormatterUsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	payload := []sample{{ID: 1, Filename: "a.txt", FileSize: 5}}
	if err := (YAMLFormatter{}).Write(&buf, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"- ", "id: 1", "filename: a.txt", "file_size: 5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in yaml output:\n%s", want, out)
		}
	}
}
