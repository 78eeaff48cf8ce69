package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ScanInputs expands command-line inputs into the list of XML files to
// process. File arguments are kept as given, in the order given. Directory
// arguments are walked recursively in lexical order, collecting *.xml files.
//
// Edge cases:
//   - Dot-files and dot-directories inside a walked tree are skipped; an
//     explicitly listed file or directory is never skipped, whatever its name.
//   - A directory containing no XML files contributes nothing; that is not an
//     error.
func ScanInputs(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", in, err)
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}

		err = filepath.WalkDir(in, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != in && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(d.Name()), ".xml") {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", in, err)
		}
	}
	return files, nil
}
