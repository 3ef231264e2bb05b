package testsupport

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Fake media tools keep each file's duration in a "<path>.duration" sidecar:
//   - ffprobe prints the sidecar value (1 when absent) as the format duration.
//   - ffmpeg writes its last argument; when the first input is a concat list
//     the output sidecar holds the sum of the listed files' sidecars.
//   - say and espeak-ng/espeak write their output file with a 3 second sidecar.
const (
	fakeFFprobe = `#!/bin/sh
for last; do :; done
d=1
if [ -f "$last.duration" ]; then d=$(cat "$last.duration"); fi
printf '{"streams":[{"codec_type":"video","width":1280,"height":720}],"format":{"duration":"%s"}}\n' "$d"
`
	fakeFFmpeg = `#!/bin/sh
out=""
list=""
prev=""
for arg; do
  if [ "$prev" = "-i" ] && [ -z "$list" ]; then list="$arg"; fi
  prev="$arg"
  out="$arg"
done
if [ -n "$FAKE_FFMPEG_FAIL" ]; then echo "fake ffmpeg failure" >&2; exit 1; fi
printf 'fake media\n' > "$out"
case "$list" in
  *.txt)
    total=0
    while IFS= read -r line; do
      p=${line#file \'}
      p=${p%\'}
      if [ -f "$p.duration" ]; then
        total=$(awk -v a="$total" -v b="$(cat "$p.duration")" 'BEGIN { print a + b }')
      fi
    done < "$list"
    printf '%s' "$total" > "$out.duration"
    ;;
esac
exit 0
`
	fakeTTS = `#!/bin/sh
out=""
prev=""
for arg; do
  case "$prev" in
    -o|-w) out="$arg" ;;
  esac
  prev="$arg"
done
[ -n "$out" ] || exit 2
printf 'fake speech\n' > "$out"
printf '3' > "$out.duration"
exit 0
`
)

// InstallFakeTools writes the fakes into dir and prepends it to PATH.
func InstallFakeTools(t testing.TB, dir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake media tools require a POSIX shell")
	}
	WriteScript(t, filepath.Join(dir, "ffprobe"), fakeFFprobe)
	WriteScript(t, filepath.Join(dir, "ffmpeg"), fakeFFmpeg)
	for _, name := range []string{"say", "espeak-ng", "espeak"} {
		WriteScript(t, filepath.Join(dir, name), fakeTTS)
	}
	PrependPath(t, dir)
}

// WriteScript writes an executable script, creating parent directories.
func WriteScript(t testing.TB, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
}
