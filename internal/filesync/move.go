package filesync

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// move renames src to dst, falling back to copy and remove when a rename is
// not possible (typically a staging directory on another device).
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := Copy(src, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

// Move renames src to dst like move, for use by the script file commands.
func Move(src, dst string) error {
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = joinBase(dst, src)
	}
	return move(src, dst)
}

// Copy copies the regular file src to dst, truncating dst. When dst is an
// existing directory the file keeps its base name inside it.
func Copy(src, dst string) error {
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = joinBase(dst, src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func joinBase(dir, src string) string {
	return filepath.Join(dir, filepath.Base(src))
}
