package monitor

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	encunicode "golang.org/x/text/encoding/unicode"
)

// timestampLayout renders local wall-clock time as HH:MM:SS.
const timestampLayout = "15:04:05"

// LogLine is one received line stamped with the time it was read.
type LogLine struct {
	Time time.Time
	Text string
}

func (l LogLine) String() string {
	return fmt.Sprintf("[%s] %s", l.Time.Format(timestampLayout), l.Text)
}

// Decode turns raw serial bytes into text. Every byte that is not part of a
// valid UTF-8 sequence becomes U+FFFD, and trailing whitespace (including the
// line terminator) is removed.
func Decode(raw []byte) string {
	text, err := encunicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		text = []byte(strings.ToValidUTF8(string(raw), string(unicode.ReplacementChar)))
	}

	return strings.TrimRightFunc(string(text), unicode.IsSpace)
}
