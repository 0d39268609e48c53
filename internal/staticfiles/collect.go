// Package staticfiles gathers static assets into STATIC_ROOT.
package staticfiles

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Collect copies every file below each source directory into dst, keeping
// relative paths. Earlier sources win when two provide the same path.
// Missing sources are skipped. It returns the number of files copied.
func Collect(sources []string, dst string) (int, error) {
	seen := map[string]bool{}
	copied := 0
	for _, src := range sources {
		info, err := os.Stat(src)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return copied, err
		}
		if !info.IsDir() {
			return copied, fmt.Errorf("%s is not a directory", src)
		}
		if same, err := samePath(src, dst); err != nil {
			return copied, err
		} else if same {
			return copied, fmt.Errorf("source %s is the static root", src)
		}

		err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			if seen[rel] {
				return nil
			}
			seen[rel] = true
			if err := copyFile(path, filepath.Join(dst, rel)); err != nil {
				return err
			}
			copied++
			return nil
		})
		if err != nil {
			return copied, err
		}
	}
	return copied, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
