package posix

import (
	"strings"

	"github.com/restic/winposix/internal/fs"
)

// File type bits of st_mode.
const (
	S_IFMT  = 0170000
	S_IFDIR = 0040000
	S_IFREG = 0100000
	S_IFLNK = 0120000
)

const (
	regularPerm = 0644
	dirPerm     = 0755
	execPerm    = 0755
	linkPerm    = 0777
)

var executableSuffixes = []string{".exe", ".bat", ".cmd", ".com"}

// isExecutableName reports whether name ends in one of the suffixes cmd.exe
// runs directly, ignoring case.
func isExecutableName(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range executableSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// fileMode synthesizes st_mode. tag is the reparse tag if the entry was
// examined without following it, name may be empty if unknown.
func fileMode(attrs, tag uint32, name string) uint32 {
	switch {
	case attrs&fs.FILE_ATTRIBUTE_REPARSE_POINT != 0 && tag == fs.IO_REPARSE_TAG_SYMLINK:
		return S_IFLNK | linkPerm
	case attrs&fs.FILE_ATTRIBUTE_DIRECTORY != 0:
		return S_IFDIR | dirPerm
	case isExecutableName(name):
		return S_IFREG | execPerm
	}
	return S_IFREG | regularPerm
}
