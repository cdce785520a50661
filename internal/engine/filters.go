package engine

import (
	"path/filepath"
	"strings"
)

var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"coverage":     true,
	"bin":          true,
	"obj":          true,
}

// suffixes treated as non-text/big or noisy artifacts when default excludes enabled
var defaultExcludeFileSuffixes = []string{
	".min.js", ".map",
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg",
	".pdf", ".zip", ".gz", ".tar", ".tgz", ".7z",
	".jar", ".class", ".exe", ".dll", ".so",
	".wasm", ".pyc",
	// common generated code outputs
	".pb.go", ".gen.go",
}

// exact filenames commonly safe to exclude when default excludes enabled
var defaultExcludeFileNames = map[string]bool{
	// lockfiles (package managers)
	"yarn.lock":         true,
	"package-lock.json": true,
	"pnpm-lock.yaml":    true,
	"composer.lock":     true,
	"poetry.lock":       true,
	// OS cruft
	".DS_Store": true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name] || strings.HasPrefix(name, ".git")
}

func isDefaultFileExcluded(lowerRel string) bool {
	// fast check for any *.lock
	if strings.HasSuffix(lowerRel, ".lock") {
		return true
	}
	for _, s := range defaultExcludeFileSuffixes {
		if strings.HasSuffix(lowerRel, s) {
			return true
		}
	}
	// generic generated artifacts pattern
	if strings.Contains(lowerRel, ".gen.") {
		return true
	}
	// exact filename checks (using lowerRel basename)
	parts := strings.Split(lowerRel, "/")
	if len(parts) > 0 {
		base := parts[len(parts)-1]
		if defaultExcludeFileNames[base] {
			return true
		}
	}
	return false
}

// filenames that are credentials by construction
var sensitiveFileNames = map[string]bool{
	".env":         true,
	".envrc":       true,
	".npmrc":       true,
	".pypirc":      true,
	".netrc":       true,
	"id_rsa":       true,
	"id_dsa":       true,
	"id_ecdsa":     true,
	"id_ed25519":   true,
	"credentials":  true, // ~/.aws/credentials and friends
	"htpasswd":     true,
	".htpasswd":    true,
	"secrets.yml":  true,
	"secrets.yaml": true,
}

var sensitiveFileSuffixes = []string{
	".pem", ".key", ".p12", ".pfx", ".jks", ".keystore", ".kdbx",
}

// isSensitivePath reports whether a file's name alone marks it as likely
// credential material.
func isSensitivePath(rel string) bool {
	base := strings.ToLower(filepath.Base(rel))
	if sensitiveFileNames[base] {
		return true
	}
	if strings.HasPrefix(base, ".env.") && base != ".env.example" && base != ".env.sample" && base != ".env.template" {
		return true
	}
	for _, s := range sensitiveFileSuffixes {
		if strings.HasSuffix(base, s) {
			return true
		}
	}
	return false
}
