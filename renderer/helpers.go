// Package renderer renders tax reports for the terminal.
package renderer

import (
	"bytes"
	"io"
)

// ConditionalBlock writes a section to a buffer and copies it to w only if
// block reports that the section has content.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}
