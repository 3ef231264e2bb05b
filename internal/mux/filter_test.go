package mux

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilterGraphPad(t *testing.T) {
	plan := Reconcile(45, 72, DefaultOptions)
	got := FilterGraph(plan, "")
	want := "[0:v]setpts=PTS-STARTPTS,split=2[main][tail];" +
		"[main]fade=t=out:st=44:d=1[body];" +
		"[tail]tpad=stop_mode=clone:stop_duration=27,trim=start=45,setpts=PTS-STARTPTS,fade=t=in:st=0:d=1[hold];" +
		"[body][hold]concat=n=2:v=1:a=0[v]"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pad graph mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterGraphPadWithoutFade(t *testing.T) {
	plan := Reconcile(45, 72, Options{Tolerance: 1})
	got := FilterGraph(plan, "crop=1440:900:0:80")
	if strings.Contains(got, "fade=") {
		t.Fatalf("expected no fades, got %s", got)
	}
	if !strings.HasPrefix(got, "[0:v]crop=1440:900:0:80,setpts=PTS-STARTPTS,split=2") {
		t.Fatalf("expected crop before split, got %s", got)
	}
	if !strings.Contains(got, "[main]null[body]") {
		t.Fatalf("expected passthrough main chain, got %s", got)
	}
}

func TestFilterGraphTrim(t *testing.T) {
	plan := Reconcile(120, 90, DefaultOptions)
	got := FilterGraph(plan, "")
	want := "[0:v]trim=duration=90,setpts=PTS-STARTPTS,fade=t=out:st=89:d=1[v]"
	if got != want {
		t.Fatalf("trim graph = %q, want %q", got, want)
	}
}

func TestFilterGraphPass(t *testing.T) {
	plan := Reconcile(60, 60.5, DefaultOptions)
	if got := FilterGraph(plan, ""); got != "" {
		t.Fatalf("expected no filter for pass, got %q", got)
	}
	if got := FilterGraph(plan, "crop=100:100:0:0,"); got != "[0:v]crop=100:100:0:0[v]" {
		t.Fatalf("unexpected pass graph with crop: %q", got)
	}
}

func TestArgsPassCopiesVideo(t *testing.T) {
	plan := Reconcile(60, 60, DefaultOptions)
	got := Args(plan, "capture.mp4", "narration.mp3", "out.mp4", "", DefaultEncoding)
	want := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-i", "capture.mp4", "-i", "narration.mp3",
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		"out.mp4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestArgsPassReencodesWebM(t *testing.T) {
	plan := Reconcile(60, 60, DefaultOptions)
	got := strings.Join(Args(plan, "capture.webm", "narration.mp3", "out.mp4", "", DefaultEncoding), " ")
	if strings.Contains(got, "-c:v copy") {
		t.Fatalf("webm input must be re-encoded for mp4 output: %s", got)
	}
	if !strings.Contains(got, "-c:v libx264 -crf 23 -preset medium -pix_fmt yuv420p") {
		t.Fatalf("expected libx264 encode, got %s", got)
	}
}

func TestArgsPadUsesFilterComplex(t *testing.T) {
	plan := Reconcile(45, 72, DefaultOptions)
	args := Args(plan, "capture.mp4", "narration.mp3", "out.mp4", "", DefaultEncoding)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-filter_complex ") || !strings.Contains(joined, "-map [v]") {
		t.Fatalf("expected filter_complex mapping, got %s", joined)
	}
	if strings.Contains(joined, "-shortest") {
		t.Fatalf("pad output must not be cut to the shortest stream: %s", joined)
	}
	if strings.Contains(joined, "-c:v copy") {
		t.Fatalf("filtered output cannot stream copy: %s", joined)
	}
}
