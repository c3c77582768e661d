package core

// streaming.go prepares delimited-text input for the CSV reader.
//
// Files exported from spreadsheet tools regularly carry a UTF-8 byte order
// mark and stray bytes from legacy encodings. Both are removed on the fly,
// without loading the whole file:
//
//   - a leading UTF-8 BOM (0xEF 0xBB 0xBF) is discarded
//   - invalid UTF-8 bytes are replaced with '?'

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// textInput is an io.Reader that skips a BOM and sanitizes UTF-8.
type textInput struct {
	r          *bufio.Reader
	bomChecked bool
}

// wrapTextInput wraps r for consumption by encoding/csv.
func wrapTextInput(r io.Reader) io.Reader {
	return &textInput{r: bufio.NewReader(r)}
}

func (t *textInput) Read(p []byte) (int, error) {
	if !t.bomChecked {
		t.bomChecked = true
		if head, _ := t.r.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
			if _, err := t.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}

	n := 0
	for n < len(p) {
		r, size, err := t.r.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if r == utf8.RuneError && size == 1 {
			r = '?'
		}
		if utf8.RuneLen(r) > len(p)-n {
			_ = t.r.UnreadRune()
			break
		}
		n += utf8.EncodeRune(p[n:], r)
	}
	if n == 0 {
		return 0, io.ErrShortBuffer
	}
	return n, nil
}
