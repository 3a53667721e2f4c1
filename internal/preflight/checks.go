package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Category: CategoryFilesystem, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Category: CategoryFilesystem, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Category: CategoryFilesystem, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Category: CategoryFilesystem, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Category: CategoryFilesystem, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatable verifies that path is a writable directory or could be
// created, by checking its nearest existing ancestor.
func CheckCreatable(name, path string) Result {
	if !filepath.IsAbs(path) {
		return Result{Name: name, Category: CategoryFilesystem, Detail: fmt.Sprintf("%s (error: not absolute)", path)}
	}
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			break
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	result := CheckDirectoryAccess(name, current)
	if result.Passed && current != filepath.Clean(path) {
		result.Detail = fmt.Sprintf("%s (creatable under %s)", path, current)
	}
	return result
}
