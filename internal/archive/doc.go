// Package archive keeps an AV1 copy of finished demo videos, encoded by the
// Drapto library into archive.dir.
package archive
