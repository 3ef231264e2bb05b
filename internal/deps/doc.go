// Package deps reports whether the external binaries demoreel shells out to
// (ffmpeg, ffprobe, the text-to-speech engine, Chrome) can be found.
package deps
