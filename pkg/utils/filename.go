package utils

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var windowsDeviceNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// Extension returns the lower-cased text after the last dot, or "" when there is none.
func Extension(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// AllowedFile reports whether filename ends in one of the allowed extensions.
func AllowedFile(filename string, allowed []string) bool {
	if !strings.Contains(filename, ".") {
		return false
	}
	ext := Extension(filename)
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// SecureFilename reduces a client supplied name to a flat ASCII filename.
// The result can be empty.
func SecureFilename(filename string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(filename) {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	name := b.String()

	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	if name != "" {
		base := strings.ToUpper(strings.SplitN(name, ".", 2)[0])
		if _, ok := windowsDeviceNames[base]; ok {
			name = "_" + name
		}
	}

	return name
}

// StoredFilename is the sanitized name used on disk and in responses.
// It is SecureFilename's result unless that comes out empty.
func StoredFilename(filename string) string {
	if name := SecureFilename(filename); name != "" {
		return name
	}
	return "upload"
}
