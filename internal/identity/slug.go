package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// UIDLength is the hex length of a project UID.
const UIDLength = 20

// FingerprintUID derives a project UID from a normalized remote and default
// branch: the first 20 hex characters of SHA-1("host/owner/repo@branch").
func FingerprintUID(normalizedRemote, branch string) string {
	sum := sha1.Sum([]byte(normalizedRemote + "@" + branch))
	return hex.EncodeToString(sum[:])[:UIDLength]
}

// DirSlug derives a filesystem-safe slug from a canonical path: a sanitized
// basename plus a short path digest so unrelated directories with the same
// name stay distinct.
func DirSlug(canonicalPath string) string {
	base := sanitize(filepath.Base(canonicalPath))
	if base == "" {
		base = "project"
	}
	sum := sha1.Sum([]byte(canonicalPath))
	return base + "-" + hex.EncodeToString(sum[:])[:10]
}

func sanitize(s string) string {
	var b strings.Builder
	lastDash := true // trim leading dashes
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// NormalizeRemoteURL reduces a remote URL to lowercase host/owner/repo.
// Supported forms: https://, ssh://, and SCP-style user@host:owner/repo.
func NormalizeRemoteURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty remote url")
	}

	hadScheme := false
	for _, scheme := range []string{"https://", "http://", "ssh://", "git://"} {
		if strings.HasPrefix(s, scheme) {
			s = strings.TrimPrefix(s, scheme)
			hadScheme = true
			break
		}
	}
	if at := strings.Index(s, "@"); at >= 0 {
		s = s[at+1:]
	}
	if !hadScheme {
		// SCP form host:owner/repo uses a colon where a URL has a slash.
		if colon := strings.Index(s, ":"); colon >= 0 && (strings.Index(s, "/") < 0 || colon < strings.Index(s, "/")) {
			s = s[:colon] + "/" + s[colon+1:]
		}
	}

	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	s = strings.ToLower(s)
	if !strings.Contains(s, "/") {
		return "", fmt.Errorf("unrecognized remote url %q", raw)
	}
	return s, nil
}
