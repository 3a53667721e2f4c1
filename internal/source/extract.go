package source

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the archive's compression layer.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// DetectCompression maps an archive file name onto its compression.
func DetectCompression(name string) (Compression, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return CompressionGzip, nil
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return CompressionZstd, nil
	case strings.HasSuffix(lower, ".tar"):
		return CompressionNone, nil
	default:
		return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(name))
	}
}

// Extract unpacks a tar archive into dest. When every entry lives under one
// top-level directory, that directory is stripped so dest becomes the source
// root.
func Extract(archivePath, dest string) error {
	compression, err := DetectCompression(archivePath)
	if err != nil {
		return err
	}
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var reader io.Reader = file
	switch compression {
	case CompressionGzip:
		gz, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	case CompressionZstd:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("open zstd stream: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	staging, err := os.MkdirTemp(dest, ".extract-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	if err := untar(tar.NewReader(reader), staging); err != nil {
		return err
	}
	return promote(staging, dest)
}

// untar writes every entry through an os.Root opened on dest, so no path,
// including one that walks through symlinks the archive created earlier, can
// resolve outside it.
func untar(tr *tar.Reader, dest string) error {
	root, err := os.OpenRoot(dest)
	if err != nil {
		return err
	}
	defer root.Close()
	realDest, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return err
	}

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}
		name, err := entryPath(header.Name)
		if err != nil {
			return err
		}
		mode := os.FileMode(header.Mode).Perm()
		switch header.Typeflag {
		case tar.TypeDir:
			err = root.MkdirAll(name, mode|0o700)
		case tar.TypeReg:
			err = writeFile(root, name, tr, mode)
		case tar.TypeSymlink:
			err = symlink(root, realDest, name, header.Linkname)
		case tar.TypeLink:
			var oldname string
			if oldname, err = entryPath(header.Linkname); err == nil {
				if err = root.MkdirAll(filepath.Dir(name), 0o755); err == nil {
					err = root.Link(oldname, name)
				}
			}
		default:
			// pax/global headers and device nodes carry nothing a build needs
		}
		if err != nil {
			return fmt.Errorf("tar entry %q: %w", header.Name, err)
		}
	}
}

func writeFile(root *os.Root, name string, r io.Reader, mode os.FileMode) error {
	if err := root.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	out, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// symlink creates name -> target after checking the target against the
// parent directory's real location. A lexical check on the entry name alone
// misses parents that are themselves symlinks.
func symlink(root *os.Root, realDest, name, target string) error {
	if filepath.IsAbs(target) {
		return fmt.Errorf("absolute symlink %q", target)
	}
	parent := filepath.Dir(name)
	if err := root.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	realParent, err := filepath.EvalSymlinks(filepath.Join(realDest, parent))
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(realDest, realParent)
	if err != nil {
		return err
	}
	if _, err := entryPath(filepath.Join(rel, target)); err != nil {
		return fmt.Errorf("symlink %q escapes the archive", target)
	}
	return root.Symlink(target, name)
}

// entryPath cleans an archive path, rejecting absolute paths and any that
// climb above the archive root.
func entryPath(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("tar entry %q escapes the destination", name)
	}
	return cleaned, nil
}

// promote moves the extracted tree from staging into dest, dropping a single
// wrapping directory.
func promote(staging, dest string) error {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return err
	}
	root := staging
	if len(entries) == 1 && entries[0].IsDir() {
		root = filepath.Join(staging, entries[0].Name())
		entries, err = os.ReadDir(root)
		if err != nil {
			return err
		}
	}
	for _, entry := range entries {
		if err := os.Rename(filepath.Join(root, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
