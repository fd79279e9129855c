package download

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Disposition is a parsed Content-Disposition header (RFC 6266). Both the
// plain filename parameter and the RFC 5987 extended one are kept so the
// caller can prefer the extended value when it decodes.
type Disposition struct {
	Type     string
	Filename string // filename= parameter, quoted-string unescaped
	Ext      *ExtValue
}

// ExtValue is a filename*= parameter: charset'language'percent-encoded.
type ExtValue struct {
	Charset   string
	Language  string
	Value     string // decoded value, empty unless Decodable
	Decodable bool
}

// BestFilename returns the extended value when it decoded, else the plain
// filename, else empty.
func (d *Disposition) BestFilename() string {
	if d.Ext != nil && d.Ext.Decodable {
		return d.Ext.Value
	}
	return d.Filename
}

// ParseContentDisposition parses header. Parameters it cannot make sense
// of are skipped rather than failing the whole header; media hosts emit
// plenty of almost-correct ones.
func ParseContentDisposition(header string) (*Disposition, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("empty Content-Disposition header")
	}

	rest := header
	d := &Disposition{}
	if i := strings.IndexByte(rest, ';'); i >= 0 {
		d.Type = strings.ToLower(strings.TrimSpace(rest[:i]))
		rest = rest[i+1:]
	} else {
		d.Type = strings.ToLower(rest)
		rest = ""
	}

	for rest != "" {
		var param string
		param, rest = nextParam(rest)
		name, value, extended, ok := splitParam(param)
		if !ok {
			continue
		}
		switch {
		case name == "filename" && !extended:
			d.Filename = value
		case name == "filename" && extended:
			d.Ext = parseExtValue(value)
		}
	}
	return d, nil
}

// nextParam cuts the next ;-separated parameter off s, honoring quoted
// strings so an escaped or quoted semicolon does not split.
func nextParam(s string) (param, rest string) {
	inQuotes := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inQuotes:
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
		case c == ';' && !inQuotes:
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// splitParam breaks name=value, unescaping quoted-string values and
// flagging the *-suffixed extended form.
func splitParam(param string) (name, value string, extended, ok bool) {
	eq := strings.IndexByte(param, '=')
	if eq < 0 {
		return "", "", false, false
	}
	name = strings.ToLower(strings.TrimSpace(param[:eq]))
	value = strings.TrimSpace(param[eq+1:])
	if strings.HasSuffix(name, "*") {
		name = strings.TrimSuffix(name, "*")
		extended = true
	}
	if !extended && len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = unescapeQuoted(value[1 : len(value)-1])
	}
	return name, value, extended, true
}

func unescapeQuoted(s string) string {
	var b strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// parseExtValue decodes charset'language'percent-encoded per RFC 5987.
// Unknown charsets yield a non-decodable value rather than an error.
func parseExtValue(raw string) *ExtValue {
	parts := strings.SplitN(raw, "'", 3)
	if len(parts) != 3 {
		return &ExtValue{}
	}
	ev := &ExtValue{Charset: parts[0], Language: parts[1]}

	bytes, ok := percentDecode(parts[2])
	if !ok {
		return ev
	}
	decoded, ok := decodeCharset(ev.Charset, bytes)
	if !ok {
		return ev
	}
	ev.Value = decoded
	ev.Decodable = true
	return ev
}

func percentDecode(s string) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			out = append(out, c)
			continue
		}
		if i+2 >= len(s) {
			return nil, false
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return nil, false
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return out, true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// charsetEncodings covers the charsets seen on real media hosts. Anything
// else is reported as non-decodable.
var charsetEncodings = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-3":   charmap.ISO8859_3,
	"iso-8859-4":   charmap.ISO8859_4,
	"iso-8859-5":   charmap.ISO8859_5,
	"iso-8859-6":   charmap.ISO8859_6,
	"iso-8859-7":   charmap.ISO8859_7,
	"iso-8859-8":   charmap.ISO8859_8,
	"iso-8859-9":   charmap.ISO8859_9,
	"iso-8859-10":  charmap.ISO8859_10,
	"iso-8859-13":  charmap.ISO8859_13,
	"iso-8859-14":  charmap.ISO8859_14,
	"iso-8859-15":  charmap.ISO8859_15,
	"iso-8859-16":  charmap.ISO8859_16,
	"shift-jis":    japanese.ShiftJIS,
	"shift_jis":    japanese.ShiftJIS,
	"euc-jp":       japanese.EUCJP,
	"euc-kr":       korean.EUCKR,
	"koi8-r":       charmap.KOI8R,
	"big5":         traditionalchinese.Big5,
}

func decodeCharset(charset string, b []byte) (string, bool) {
	switch strings.ToLower(charset) {
	case "utf-8", "us-ascii", "":
		return string(b), true
	}
	enc, ok := charsetEncodings[strings.ToLower(charset)]
	if !ok {
		return "", false
	}
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
