// Package logs reads and follows the demoreel log file.
//
// Read returns the last lines of the file, optionally narrowed to one run or
// any other substring, together with the byte offset just past them. Follow
// picks up from that offset and streams complete lines as they are appended,
// waking on fsnotify events with a slow poll as backstop. A truncated or
// recreated file restarts from the beginning.
package logs
