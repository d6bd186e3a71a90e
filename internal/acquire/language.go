package acquire

import (
	"path/filepath"
	"strings"
)

// languageByExtension maps file extensions to the lowercase language tags the
// detection rules are keyed on.
var languageByExtension = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".c":    "c",
	".h":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".java": "java",
	".rb":   "ruby",
	".php":  "php",
	".cs":   "csharp",
	".rs":   "rust",
	".sh":   "shell",
	".sql":  "sql",
}

// LanguageForPath guesses the language tag from a file path or URL.
// It returns an empty string when the extension is not recognized.
func LanguageForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return languageByExtension[ext]
}

// IsSupportedPath reports whether the path has a recognized source extension.
func IsSupportedPath(path string) bool {
	return LanguageForPath(path) != ""
}
