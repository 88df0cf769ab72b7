package rpath

import (
	"fmt"
	"os"
	"path/filepath"
)

// Path standing for stdin or stdout
const Std = "-"

func ExecutableDir() (string, error) {
	exe_path, err := os.Executable()
	if err != nil {
		return "",
			fmt.Errorf("Can't find executable's location. Error: %w", err)
	}
	return filepath.Dir(exe_path), nil
}

// Returns path if it's absolute, empty or Std, converts
// path to absolute relative to base_dir otherwise
func Convert(base_dir, path string) string {
	if path == "" || path == Std || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base_dir, path)
}

// Resolves path relative to the directory of file_path
func NextTo(file_path, path string) string {
	return Convert(filepath.Dir(file_path), path)
}
