package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"assetstore/internal/classifier"
	"assetstore/internal/models"
)

// Scan walks the legacy upload directories and produces one inventory
// entry per regular file. A directory that does not exist is a scan error,
// not a fatal one: the migration proceeds over the directories that do.
func Scan(dirs []string) (inventory []models.InventoryEntry, scanErrors []string) {
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		info, err := os.Stat(dir)
		if err != nil {
			scanErrors = append(scanErrors, fmt.Sprintf("%s: %v", dir, err))
			continue
		}
		if !info.IsDir() {
			scanErrors = append(scanErrors, fmt.Sprintf("%s: not a directory", dir))
			continue
		}

		walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				scanErrors = append(scanErrors, fmt.Sprintf("%s: %v", path, err))
				return nil
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				scanErrors = append(scanErrors, fmt.Sprintf("%s: %v", path, err))
				return nil
			}

			rel, err := filepath.Rel(dir, path)
			if err != nil {
				rel = d.Name()
			}
			ext := strings.ToLower(filepath.Ext(path))
			cls := classifier.ClassifyExtension(ext)

			inventory = append(inventory, models.InventoryEntry{
				AbsolutePath: path,
				RelativePath: filepath.ToSlash(rel),
				Size:         fi.Size(),
				Extension:    ext,
				Category:     cls.Category,
				ModifiedAt:   fi.ModTime(),
			})
			return nil
		})
		if walkErr != nil {
			scanErrors = append(scanErrors, fmt.Sprintf("%s: %v", dir, walkErr))
		}
	}
	return inventory, scanErrors
}
