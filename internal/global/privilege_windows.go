package global

import (
	"github.com/Microsoft/go-winio"

	"github.com/restic/winposix/internal/errors"
)

func enableBackupPrivilege() error {
	err := winio.EnableProcessPrivileges([]string{winio.SeBackupPrivilege})
	if err != nil {
		return errors.Fatalf("enabling %v failed: %v", winio.SeBackupPrivilege, err)
	}
	return nil
}
