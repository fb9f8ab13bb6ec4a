// Package envfile loads KEY=VALUE files into the process environment.
package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultCandidates are tried in order; the first existing file wins.
var DefaultCandidates = []string{".env", ".env.local", ".env.development", ".env.example"}

// ExampleFile is the template checked into the repository. Loading it means
// no real secrets were supplied.
const ExampleFile = ".env.example"

// Result describes which file, if any, was loaded.
type Result struct {
	Path string
	// Set lists the keys that were applied. Keys already present in the
	// environment are never overridden.
	Set []string
}

// Loaded reports whether a file was found.
func (r Result) Loaded() bool { return r.Path != "" }

// FromExample reports whether the template file supplied the environment.
func (r Result) FromExample() bool { return filepath.Base(r.Path) == ExampleFile }

// LoadFirst loads the first existing candidate under dir.
func LoadFirst(dir string, candidates ...string) (Result, error) {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		res, err := Load(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return res, err
	}
	return Result{}, nil
}

// Load applies the file at path. A missing file yields an error wrapping
// os.ErrNotExist.
func Load(path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer file.Close()

	values, err := Parse(file)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	res := Result{Path: path}
	for _, kv := range values {
		if _, exists := os.LookupEnv(kv[0]); exists {
			continue
		}
		if err := os.Setenv(kv[0], kv[1]); err != nil {
			return res, fmt.Errorf("set env %s: %w", kv[0], err)
		}
		res.Set = append(res.Set, kv[0])
	}
	return res, nil
}

// Parse reads KEY=VALUE pairs in file order. Blank lines, lines starting with
// '#' and lines without '=' are skipped. A value wrapped in matching single
// or double quotes is unwrapped.
func Parse(r io.Reader) ([][2]string, error) {
	var out [][2]string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		out = append(out, [2]string{key, value})
	}
	return out, scanner.Err()
}
