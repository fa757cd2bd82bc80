package heuristics

import (
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

var unsafePathChars = regexp.MustCompile(`[^\w.\-/\\:]`)

// looksLikePath applies the cheap shape rules before touching the disk:
// path-safe characters only, short segments, at most one dot, no trailing
// dot and a colon only as a drive letter separator.
func looksLikePath(s string, length int) bool {
	if length >= 2048 || unsafePathChars.MatchString(s) {
		return false
	}
	for _, seg := range strings.Split(strings.ReplaceAll(s, `\`, "/"), "/") {
		if len(seg) >= 128 {
			return false
		}
	}
	if strings.Count(s, ".") > 1 || strings.HasSuffix(s, ".") {
		return false
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		drive := i == 1 && isLetter(s[0]) && len(s) > 2 && (s[2] == '/' || s[2] == '\\')
		if !drive || strings.Count(s, ":") > 1 {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (a *Analyzer) checkFile(s string, length int) (Match, bool) {
	if !looksLikePath(s, length) {
		return Match{}, false
	}
	info, err := os.Lstat(s)
	if err != nil {
		return Match{}, false
	}
	text := Permissions(info.Mode())
	if !info.IsDir() {
		text += " " + humanize.IBytes(uint64(info.Size()))
	}
	return Match{Kind: KindFile, Text: text}, true
}

// Permissions renders mode the way ls -l does, e.g. "-rw-r--r--".
func Permissions(mode fs.FileMode) string {
	var b [10]byte
	switch {
	case mode&fs.ModeSocket != 0:
		b[0] = 's'
	case mode&fs.ModeSymlink != 0:
		b[0] = 'l'
	case mode.IsRegular():
		b[0] = '-'
	case mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice == 0:
		b[0] = 'b'
	case mode.IsDir():
		b[0] = 'd'
	case mode&fs.ModeCharDevice != 0:
		b[0] = 'c'
	case mode&fs.ModeNamedPipe != 0:
		b[0] = 'p'
	default:
		b[0] = 'u'
	}

	perm := mode.Perm()
	rwx := func(i int, shift uint, special bool, set, unset byte) {
		bits := perm >> shift
		b[i] = '-'
		if bits&4 != 0 {
			b[i] = 'r'
		}
		b[i+1] = '-'
		if bits&2 != 0 {
			b[i+1] = 'w'
		}
		switch {
		case bits&1 != 0 && special:
			b[i+2] = set
		case bits&1 != 0:
			b[i+2] = 'x'
		case special:
			b[i+2] = unset
		default:
			b[i+2] = '-'
		}
	}
	rwx(1, 6, mode&fs.ModeSetuid != 0, 's', 'S')
	rwx(4, 3, mode&fs.ModeSetgid != 0, 's', 'S')
	rwx(7, 0, mode&fs.ModeSticky != 0, 't', 'T')
	return string(b[:])
}
