package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"notebrief/internal/query"
)

type recordingMirror struct {
	keys []string
	err  error
}

func (m *recordingMirror) Upload(_ context.Context, key, _ string) error {
	m.keys = append(m.keys, key)
	return m.err
}

func one(answer string) []query.Result {
	return []query.Result{{Prompt: "p", Answer: answer}}
}

func TestKey(t *testing.T) {
	if got := Key(`Talk: A/B "final"?`); got != "Talk_AB_final" {
		t.Fatalf("Key = %q", got)
	}
	if Key("Part 1") == Key("Part 2") {
		t.Fatal("distinct identities collided")
	}
}

func TestPathsByLayout(t *testing.T) {
	w := NewWriter("/out", nil)
	tests := []struct {
		subject Subject
		want    string
	}{
		{Subject{Layout: LayoutURL, Identity: "My Video: 1"}, "/out/My_Video_1_analysis_result.md"},
		{Subject{Layout: LayoutFile, Identity: "talk.final.mp3"}, "/out/talk.final_analysis.md"},
		{Subject{Layout: LayoutDocument, Identity: "TalkA.pdf"}, "/out/TalkA_analysis.md"},
		{Subject{Layout: LayoutDigest, Identity: "YouTube Playlist Analysis"}, "/out/analysis_results.md"},
	}
	for _, tt := range tests {
		if got := w.Path(tt.subject); got != tt.want {
			t.Errorf("Path(%v) = %q, want %q", tt.subject.Layout, got, tt.want)
		}
	}
	if got := NewWriter("/out", nil, WithDigestName("digest.md")).Path(Subject{Layout: LayoutDigest}); got != "/out/digest.md" {
		t.Errorf("digest override = %q", got)
	}
}

func TestPersistURLReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w := NewWriter(dir, nil)
	subject := Subject{Layout: LayoutURL, Identity: "深度學習 入門", Source: "https://youtu.be/x"}

	rep, err := w.Persist(context.Background(), subject, one("內容"))
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, err := os.ReadFile(rep.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "# 分析報告：深度學習 入門\n\n**來源影片**: [深度學習 入門](https://youtu.be/x)\n\n內容"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if !w.Exists(subject) {
		t.Fatal("expected Exists after Persist")
	}
}

func TestPersistFileReportWithLabeledSections(t *testing.T) {
	w := NewWriter(t.TempDir(), nil)
	subject := Subject{Layout: LayoutFile, Identity: "TalkA.pdf"}
	results := []query.Result{{Prompt: "one", Answer: "A"}, {Prompt: "two", Answer: "B"}}

	rep, err := w.Persist(context.Background(), subject, results)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, _ := os.ReadFile(rep.Path)
	want := "# 檔案分析報告：TalkA.pdf\n\n**來源檔案**: TalkA.pdf\n\n## Query: one\n\nA\n\n## Query: two\n\nB\n\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestPersistDigest(t *testing.T) {
	w := NewWriter(t.TempDir(), nil)
	subject := Subject{Layout: LayoutDigest, Identity: "YouTube Playlist Analysis"}
	rep, err := w.Persist(context.Background(), subject, []query.Result{{Prompt: "q1", Answer: "a1"}})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, _ := os.ReadFile(rep.Path)
	want := "# Analysis Results for YouTube Playlist Analysis\n\n## Query: q1\n\na1\n\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Fatalf("digest mismatch (-want +got):\n%s", diff)
	}
}

func TestPersistOverwritesSilently(t *testing.T) {
	w := NewWriter(t.TempDir(), nil)
	subject := Subject{Layout: LayoutURL, Identity: "T", Source: "u"}
	if _, err := w.Persist(context.Background(), subject, one("old")); err != nil {
		t.Fatal(err)
	}
	rep, err := w.Persist(context.Background(), subject, one("new"))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(rep.Path)
	if !strings.HasSuffix(string(got), "new") {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestEncodingsRoundTrip(t *testing.T) {
	for _, name := range []string{EncodingUTF8, EncodingUTF8BOM, EncodingUTF16LE} {
		t.Run(name, func(t *testing.T) {
			w := NewWriter(t.TempDir(), nil, WithEncoding(name))
			subject := Subject{Layout: LayoutFile, Identity: "講座.mp3"}
			rep, err := w.Persist(context.Background(), subject, one("繁體中文 😀"))
			if err != nil {
				t.Fatalf("Persist: %v", err)
			}
			data, err := os.ReadFile(rep.Path)
			if err != nil {
				t.Fatal(err)
			}
			text, err := Decode(name, data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(rep.Markdown(), text); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUTF16LEHasBOM(t *testing.T) {
	w := NewWriter(t.TempDir(), nil, WithEncoding("UTF-16LE"))
	rep, err := w.Persist(context.Background(), Subject{Layout: LayoutFile, Identity: "a.txt"}, one("x"))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(rep.Path)
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xFE {
		t.Fatalf("expected little-endian BOM, got % x", data[:2])
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	w := NewWriter(t.TempDir(), nil, WithEncoding("latin1"))
	if _, err := w.Persist(context.Background(), Subject{Layout: LayoutFile, Identity: "a.txt"}, one("x")); err == nil {
		t.Fatal("expected encoding error")
	}
}

func TestMirrorFailureIsNotFatal(t *testing.T) {
	mirror := &recordingMirror{err: errors.New("bucket gone")}
	w := NewWriter(t.TempDir(), nil, WithMirror(mirror))
	rep, err := w.Persist(context.Background(), Subject{Layout: LayoutURL, Identity: "T", Source: "u"}, one("x"))
	if err != nil {
		t.Fatalf("mirror failure must not fail persist: %v", err)
	}
	if len(mirror.keys) != 1 || mirror.keys[0] != filepath.Base(rep.Path) {
		t.Fatalf("unexpected mirror keys %v", mirror.keys)
	}
}
