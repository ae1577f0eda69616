//go:build !windows

package global

import "github.com/restic/winposix/internal/errors"

func enableBackupPrivilege() error {
	return errors.Fatal("--backup-privilege is only supported on Windows")
}
