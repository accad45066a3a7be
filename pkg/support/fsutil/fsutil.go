// Package fsutil resolves the paths of the array files given on the command line.
package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ExpandHome replaces a leading "~" or "~user" in filePath by the corresponding home directory.
// Other paths are returned unchanged.
func ExpandHome(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~") {
		return filePath, nil
	}
	userName, rest, _ := strings.Cut(filePath[1:], string(filepath.Separator))
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to find the home directory for %q", filePath)
	}
	return filepath.Join(usr.HomeDir, rest), nil
}

// ResolveFile expands the home directory in filePath and checks that it is an existing regular file.
func ResolveFile(filePath string) (string, error) {
	resolved, err := ExpandHome(filePath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errors.Errorf("file %q does not exist", filePath)
		}
		return "", errors.Wrapf(err, "failed to stat %q", filePath)
	}
	if info.IsDir() {
		return "", errors.Errorf("%q is a directory, an array file was expected", filePath)
	}
	return resolved, nil
}
