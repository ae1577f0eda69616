package fs

// Win32 constants used by the metadata calls. They carry the values from the
// Windows SDK so that MemFS and Local interpret them identically.
const (
	FILE_ATTRIBUTE_READONLY      = 0x00000001
	FILE_ATTRIBUTE_HIDDEN        = 0x00000002
	FILE_ATTRIBUTE_SYSTEM        = 0x00000004
	FILE_ATTRIBUTE_DIRECTORY     = 0x00000010
	FILE_ATTRIBUTE_ARCHIVE       = 0x00000020
	FILE_ATTRIBUTE_NORMAL        = 0x00000080
	FILE_ATTRIBUTE_REPARSE_POINT = 0x00000400

	IO_REPARSE_TAG_SYMLINK     = 0xA000000C
	IO_REPARSE_TAG_MOUNT_POINT = 0xA0000003

	FILE_READ_ATTRIBUTES  = 0x00000080
	FILE_WRITE_ATTRIBUTES = 0x00000100

	FILE_FLAG_BACKUP_SEMANTICS   = 0x02000000
	FILE_FLAG_OPEN_REPARSE_POINT = 0x00200000

	// flags of GetFinalPathNameByHandle
	FILE_NAME_NORMALIZED = 0x0
	VOLUME_NAME_DOS      = 0x0
)
