package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// SourceExt is the extension of BAML source files.
const SourceExt = ".baml"

// Manifest is a loaded baml.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the sections of baml.toml.
type Config struct {
	Package PackageConfig     `toml:"package"`
	Run     RunConfig         `toml:"run"`
	Env     map[string]string `toml:"env"`
	LLM     Responses         `toml:"llm"`
	Net     Responses         `toml:"net"`
	Trace   TraceConfig       `toml:"trace"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// RunConfig says what `bamlvm run` executes without arguments. Main is a
// .baml file or a directory of them, relative to the manifest.
type RunConfig struct {
	Main  string `toml:"main"`
	Entry string `toml:"entry"`
	Args  []any  `toml:"args"`
}

// Responses are canned future results: LLM responses keyed by function
// name, network responses keyed by URL.
type Responses struct {
	Responses map[string]string `toml:"responses"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

// DefaultEntry is run when [run].entry is empty.
const DefaultEntry = "main"

var (
	// ErrPackageSectionMissing indicates that [package] is missing.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrPackageNameMissing indicates that [package].name is missing.
	ErrPackageNameMissing = errors.New("missing [package].name")
)

// Load finds baml.toml starting at startDir and loads it. ok is false when
// there is no manifest.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadFile(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// LoadFile parses the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageNameMissing)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if strings.TrimSpace(cfg.Run.Entry) == "" {
		cfg.Run.Entry = DefaultEntry
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// MainPath resolves [run].main. An empty main means the project root.
func (m *Manifest) MainPath() (string, error) {
	rel := strings.TrimSpace(m.Config.Run.Main)
	if rel == "" {
		return m.Root, nil
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s: [run].main %q must be relative", m.Path, rel)
	}
	p := filepath.Join(m.Root, filepath.FromSlash(rel))
	if !pathWithin(m.Root, p) {
		return "", fmt.Errorf("%s: [run].main %q escapes the project root", m.Path, rel)
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: [run].main path does not exist: %s", m.Path, p)
		}
		return "", fmt.Errorf("%s: failed to stat [run].main: %w", m.Path, err)
	}
	return p, nil
}

// Environ merges the [env] table over base. base usually comes from
// os.Environ and may be nil.
func (m *Manifest) Environ(base map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(m.Config.Env))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range m.Config.Env {
		out[k] = v
	}
	return out
}

// OSEnviron returns the process environment as a map.
func OSEnviron() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// CollectSources lists the .baml files of path: the file itself, or every
// .baml file below a directory, sorted. Hidden directories are skipped.
// A path with glob metacharacters ("src/**/*.baml") is expanded instead.
func CollectSources(path string) ([]string, error) {
	if strings.ContainsAny(path, "*?[{") {
		return globSources(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(path) != SourceExt {
			return nil, fmt.Errorf("%s: not a %s file", path, SourceExt)
		}
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) == SourceExt {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: no %s files", path, SourceExt)
	}
	slices.Sort(files)
	return files, nil
}

func globSources(pattern string) ([]string, error) {
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("%s: %w", pattern, doublestar.ErrBadPattern)
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	files := slices.DeleteFunc(matches, func(p string) bool { return filepath.Ext(p) != SourceExt })
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: no %s files", pattern, SourceExt)
	}
	slices.Sort(files)
	return files, nil
}

// Template is the manifest written by `bamlvm init`.
func Template(name string) string {
	return fmt.Sprintf(`[package]
name = %q

[run]
main = "src"
entry = "main"

[env]

[llm.responses]

[net.responses]
`, name)
}

func pathWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
