package download

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// netscapeHeader is the magic line yt-dlp expects at the top of a cookie
// file.
const netscapeHeader = "# Netscape HTTP Cookie File"

// cookieTTL is how far in the future synthesized cookies expire. The file
// only lives for one yt-dlp invocation; the expiry just has to be far
// enough out not to be pruned.
const cookieTTL = 365 * 24 * time.Hour

// parseCookieHeader splits a Cookie header value into ordered k=v pairs.
func parseCookieHeader(header string) [][2]string {
	var pairs [][2]string
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(k), strings.TrimSpace(v)})
	}
	return pairs
}

// writeNetscapeCookies renders the pairs of a Cookie header into a
// Netscape cookie file at path, scoped to host.
func writeNetscapeCookies(path, host, cookieHeader string) error {
	expiry := time.Now().Add(cookieTTL).Unix()
	var b strings.Builder
	b.WriteString(netscapeHeader)
	b.WriteByte('\n')
	for _, kv := range parseCookieHeader(cookieHeader) {
		fmt.Fprintf(&b, "%s\tFALSE\t/\tTRUE\t%d\t%s\t%s\n", host, expiry, kv[0], kv[1])
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}

// readNetscapeCookies parses a Netscape cookie file back into k=v pairs.
func readNetscapeCookies(path string) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var pairs [][2]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("malformed cookie line: %q", line)
		}
		if _, err := strconv.ParseInt(fields[4], 10, 64); err != nil {
			return nil, fmt.Errorf("malformed cookie expiry: %q", fields[4])
		}
		pairs = append(pairs, [2]string{fields[5], fields[6]})
	}
	return pairs, scanner.Err()
}
