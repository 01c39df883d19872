// Package scanner walks a directory and produces one metadata record per
// entry, parents before children.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openmined/syftmirror/internal/update"
)

const ignoreFileName = ".gitignore"

var ErrDirNotExist = errors.New("directory to scan does not exist")

// EmitFunc receives each scanned record. Returning an error stops the scan.
type EmitFunc func(*update.Update) error

// Scan walks rootDir in lexical order, emitting a record for every entry
// below it and, once done, an initial sync marker.
func Scan(ctx context.Context, rootDir string, emit EmitFunc) error {
	if err := Walk(ctx, rootDir, "", emit); err != nil {
		return err
	}
	return emit(update.NewInitialSyncMarker())
}

// Walk emits records for relDir (when not the root itself) and everything
// beneath it.
func Walk(ctx context.Context, rootDir, relDir string, emit EmitFunc) error {
	info, err := os.Stat(rootDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrDirNotExist, rootDir)
	}

	start := filepath.Join(rootDir, filepath.FromSlash(relDir))
	count := 0
	err = filepath.WalkDir(start, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("walk error: %w", walkErr)
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return fmt.Errorf("walk rel path: %w", err)
		}
		if relPath == "." {
			return nil
		}

		u, err := UpdateFor(rootDir, filepath.ToSlash(relPath))
		if err != nil {
			slog.Warn("scanner skipping entry", "path", path, "error", err)
			return nil
		}
		count++
		return emit(u)
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", start, err)
	}

	slog.Debug("scanner walk done", "root", rootDir, "dir", relDir, "entries", count)
	return nil
}

// UpdateFor builds the record for the slash separated relPath under rootDir.
// A missing path yields a delete record with no mod time, which the tree
// resolves from the previous record.
func UpdateFor(rootDir, relPath string) (*update.Update, error) {
	absPath := filepath.Join(rootDir, filepath.FromSlash(relPath))

	info, err := os.Lstat(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &update.Update{Path: relPath, Delete: true}, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", absPath, err)
	}

	u := &update.Update{
		Path:      relPath,
		Directory: info.IsDir(),
		ModTime:   info.ModTime().UnixMilli(),
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(absPath)
		if err != nil {
			return nil, fmt.Errorf("read symlink %s: %w", absPath, err)
		}
		u.Symlink = target
	} else if !u.Directory && filepath.Base(absPath) == ignoreFileName {
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", absPath, err)
		}
		u.IgnoreString = string(data)
	}

	return u, nil
}
