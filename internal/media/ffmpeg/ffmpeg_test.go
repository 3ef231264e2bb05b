package ffmpeg

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConcatListEscapesQuotes(t *testing.T) {
	got := ConcatList([]string{"/tmp/seg-001.aiff", "/tmp/it's here.aiff"})
	want := "file '/tmp/seg-001.aiff'\nfile '/tmp/it'\\''s here.aiff'\n"
	if got != want {
		t.Fatalf("unexpected concat list:\n%s", cmp.Diff(want, got))
	}
}

func TestConcatArgsSelectsCodec(t *testing.T) {
	cases := map[string]string{
		"out.mp3":  "libmp3lame",
		"out.M4A":  "aac",
		"out.wav":  "pcm_s16le",
		"out.aiff": "pcm_s16be",
	}
	for output, codec := range cases {
		args, err := ConcatArgs("list.txt", output)
		if err != nil {
			t.Fatalf("ConcatArgs(%s): %v", output, err)
		}
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "-c:a "+codec) {
			t.Fatalf("expected codec %s for %s, got %v", codec, output, args)
		}
		if args[len(args)-1] != output {
			t.Fatalf("expected output last, got %v", args)
		}
	}
}

func TestConcatArgsMP3(t *testing.T) {
	args, err := ConcatArgs("/w/list.txt", "/w/narration.mp3")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-f", "concat", "-safe", "0", "-i", "/w/list.txt",
		"-vn", "-c:a", "libmp3lame", "-q:a", "2",
		"/w/narration.mp3",
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestConcatArgsRejectsUnknownExtension(t *testing.T) {
	if _, err := ConcatArgs("list.txt", "out.ogg"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestExecReportsMissingBinary(t *testing.T) {
	err := Exec(context.Background(), "definitely-not-ffmpeg-here")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsMissingBinary(err) {
		t.Fatalf("expected missing binary classification, got %v", err)
	}
}

func TestExecIncludesStderr(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	err := Exec(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
