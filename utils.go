package yolokit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// imageExtensions are the file extensions recognised as images, lower case.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp"}

// filesByExtInDir returns all regular files found directly in directory dirPath whose extension
// matches one of exts (case-insensitive), sorted by name. All files are returned if exts is empty.
func filesByExtInDir(fs afero.Fs, dirPath string, exts ...string) ([]string, error) {
	infos, err := afero.ReadDir(fs, dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %w", dirPath, err)
	}

	files := make([]string, 0, len(infos))
	for _, info := range infos {
		// Must be a regular file or a symlink and have one of the requested extensions.
		if !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		name := info.Name()
		if len(exts) > 0 && !hasExt(name, exts) {
			continue
		}
		files = append(files, filepath.Join(dirPath, name))
	}

	return files, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// dirExists reports whether path exists and is a directory.
func dirExists(fs afero.Fs, path string) bool {
	ok, err := afero.DirExists(fs, path)
	return err == nil && ok
}

// splitPath splits the given file path into the dir name, the base name without extension and the
// extension (without the dot).
func splitPath(path string) (dir, baseNoExt, ext string, err error) {
	dir, file := filepath.Split(path)
	ext = filepath.Ext(file)
	if ext == "" {
		return "", "", "", fmt.Errorf("missing file extension in %q", path)
	}

	dir = strings.TrimSuffix(dir, string(os.PathSeparator))
	baseNoExt = file[0 : len(file)-len(ext)]
	ext = ext[1:]

	return dir, baseNoExt, ext, nil
}

// readLines returns a slice of lines read from the file at path.
func readLines(fs afero.Fs, path string) (lines []string, err error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %q: %w", path, err)
	}
	defer closeWithErrCheck(file, &err)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %q as lines: %w", path, err)
	}

	return lines, nil
}

// writeFile writes the output of write to path, truncating any existing file.
func writeFile(fs afero.Fs, path string, write func(w io.Writer) error) (err error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("cannot create file %q: %w", path, err)
	}
	defer closeWithErrCheck(f, &err)

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return fmt.Errorf("cannot write file %q: %w", path, err)
	}
	return bw.Flush()
}

// copyFile copies the file at src to dst, replacing dst if it exists.
func copyFile(fs afero.Fs, src, dst string) (err error) {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(in, &err)

	return writeFile(fs, dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
