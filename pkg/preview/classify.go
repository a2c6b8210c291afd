package preview

import (
	"bytes"
	"path"
	"strings"
	"unicode/utf8"
)

// SniffBytes is how much content is inspected when the name alone does
// not decide between text and binary.
const SniffBytes = 8192

var textExtensions = setOf(
	// code
	".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".c", ".cpp", ".h", ".hpp",
	".cs", ".go", ".rs", ".rb", ".php", ".swift", ".kt", ".scala", ".pl", ".pm",
	".lua", ".r", ".m", ".mm",
	// web
	".html", ".htm", ".css", ".scss", ".sass", ".less", ".vue", ".svelte",
	// data
	".json", ".jsonl", ".yaml", ".yml", ".xml", ".toml", ".ini", ".cfg", ".conf",
	".properties", ".csv", ".tsv",
	// docs
	".md", ".markdown", ".rst", ".txt", ".text", ".rtf",
	// shell
	".sh", ".bash", ".zsh", ".fish", ".ps1", ".bat", ".cmd",
	// dotfiles
	".env", ".gitignore", ".gitattributes", ".editorconfig", ".dockerignore",
	".eslintrc", ".prettierrc",
	// misc
	".log", ".sql", ".graphql", ".gql", ".proto", ".tf", ".hcl", ".makefile",
	".dockerfile", ".cmake",
)

var textNames = setOf(
	"Makefile", "Dockerfile", "Jenkinsfile", "Vagrantfile", "Gemfile", "Rakefile",
	"Procfile", "README", "LICENSE", "CHANGELOG", "AUTHORS", "CONTRIBUTORS",
	"COPYING", "INSTALL", "TODO", "NOTICE",
)

var binaryExtensions = setOf(
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".webp", ".svg", ".pdf",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".tar", ".gz", ".bz2", ".xz", ".zst", ".7z", ".rar",
	".exe", ".dll", ".so", ".dylib", ".bin", ".dat",
	".mp3", ".mp4", ".avi", ".mov", ".wav", ".flac", ".ogg",
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	".pyc", ".pyo", ".class", ".o", ".obj", ".a", ".lib",
	".parquet", ".avro", ".orc",
)

var lexers = map[string]string{
	".py": "python", ".js": "javascript", ".ts": "typescript", ".jsx": "jsx",
	".tsx": "tsx", ".java": "java", ".c": "c", ".cpp": "cpp", ".h": "c",
	".hpp": "cpp", ".cs": "csharp", ".go": "go", ".rs": "rust", ".rb": "ruby",
	".php": "php", ".swift": "swift", ".kt": "kotlin", ".scala": "scala",
	".lua": "lua", ".r": "r", ".html": "html", ".htm": "html", ".css": "css",
	".scss": "scss", ".sass": "sass", ".less": "less", ".vue": "vue",
	".json": "json", ".jsonl": "json", ".yaml": "yaml", ".yml": "yaml",
	".xml": "xml", ".toml": "toml", ".ini": "ini", ".md": "markdown",
	".markdown": "markdown", ".rst": "rst", ".sh": "bash", ".bash": "bash",
	".zsh": "zsh", ".ps1": "powershell", ".bat": "batch", ".sql": "sql",
	".graphql": "graphql", ".proto": "protobuf", ".tf": "terraform",
	".dockerfile": "dockerfile", ".makefile": "makefile",
}

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// Class is the outcome of text/binary classification.
type Class int

const (
	// Unknown means the name alone does not decide; sniff the content.
	Unknown Class = iota
	Text
	Binary
)

func (c Class) String() string {
	switch c {
	case Text:
		return "text"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

func baseName(key string) string {
	return path.Base(strings.TrimSuffix(key, "/"))
}

func extension(key string) string {
	return strings.ToLower(path.Ext(baseName(key)))
}

// ClassifyName decides text or binary from the key alone.
func ClassifyName(key string) Class {
	base := baseName(key)
	if _, ok := textNames[base]; ok {
		return Text
	}
	// Dotfiles like ".gitignore" have no extension of their own.
	if _, ok := textExtensions[strings.ToLower(base)]; ok {
		return Text
	}
	ext := extension(key)
	if _, ok := textExtensions[ext]; ok {
		return Text
	}
	if _, ok := binaryExtensions[ext]; ok {
		return Binary
	}
	return Unknown
}

// ClassifyContent inspects up to SniffBytes of data. Content with a NUL
// byte is binary; anything else is text, decoded as UTF-8 when valid and
// as Latin-1 otherwise.
func ClassifyContent(data []byte) Class {
	if len(data) > SniffBytes {
		data = data[:SniffBytes]
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return Binary
	}
	return Text
}

// Classify combines name and content classification. A nil data slice
// with an unknown name is treated as binary.
func Classify(key string, data []byte) Class {
	if c := ClassifyName(key); c != Unknown {
		return c
	}
	if data == nil {
		return Binary
	}
	return ClassifyContent(data)
}

// Lexer returns a syntax highlighting hint for key, or "" if none.
func Lexer(key string) string {
	switch strings.ToLower(baseName(key)) {
	case "dockerfile":
		return "dockerfile"
	case "makefile":
		return "makefile"
	}
	return lexers[extension(key)]
}

// decodeText returns data as a Go string, converting Latin-1 when the
// bytes are not valid UTF-8.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	// A truncated preview may cut a multi-byte rune; drop the partial tail.
	if trimmed := trimPartialRune(data); len(trimmed) > 0 && len(trimmed) < len(data) && utf8.Valid(trimmed) {
		return string(trimmed)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func trimPartialRune(data []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(data); i++ {
		if utf8.RuneStart(data[len(data)-i]) {
			if !utf8.FullRune(data[len(data)-i:]) {
				return data[:len(data)-i]
			}
			break
		}
	}
	return data
}
