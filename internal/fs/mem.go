package fs

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/filetime"
	"github.com/restic/winposix/internal/winpath"
)

// maxSymlinkHops mirrors the reparse point limit of NTFS.
const maxSymlinkHops = 63

// MemFS is an in-memory Win32 implementation with NTFS semantics: names are
// case-insensitive, hard links share one file index, FindFirstFile fails for
// volume roots, unprefixed paths longer than MAX_PATH are rejected and files
// cannot be deleted while a handle without delete sharing is open.
//
// Administrative shares on one of the local hosts (by default "localhost")
// map to the drive of the same letter.
type MemFS struct {
	// Now is the clock used for new files and change times. If nil,
	// time.Now is used.
	Now func() time.Time

	// Fail, if set, is called before every operation with the name of the
	// Win32 call and the path. A non-nil result is returned as the error of
	// the call.
	Fail func(op, path string) error

	// NoChangeTime makes GetFileInformationByHandle report a zero change
	// time, like FAT volumes do.
	NoChangeTime bool

	mu         sync.Mutex
	entries    map[string]*memEntry
	handles    map[uintptr]*memHandle
	volumes    map[string]uint32
	localHosts map[string]struct{}
	lastIndex  uint64
	lastFd     uintptr
}

// statically ensure that MemFS implements Win32.
var _ Win32 = &MemFS{}

type memEntry struct {
	name string // original case
	node *memNode
}

type memNode struct {
	index  uint64
	serial uint32
	attrs  uint32
	tag    uint32
	target string // symlink target

	size uint64

	creation, access, write, change filetime.Filetime

	nlink uint32
	locks int // open handles denying delete sharing
}

type memHandle struct {
	fs     *MemFS
	fd     uintptr
	node   *memNode
	path   string
	access uint32
	lock   bool
	closed bool
}

// NewMemFS returns an empty file system with the given volumes, e.g. "C:" or
// `\\server\share`. Each volume has a root directory.
func NewMemFS(volumes ...string) *MemFS {
	m := &MemFS{
		entries:    make(map[string]*memEntry),
		handles:    make(map[uintptr]*memHandle),
		volumes:    make(map[string]uint32),
		localHosts: map[string]struct{}{"localhost": {}},
		lastFd:     0x100,
	}
	for _, vol := range volumes {
		if err := m.AddVolume(vol); err != nil {
			panic(err)
		}
	}
	return m
}

// AddVolume creates the root directory of a drive or share.
func (m *MemFS) AddVolume(vol string) error {
	p, err := winpath.Parse(vol)
	if err != nil {
		return err
	}
	if !p.IsAbs() || p.Kind() == winpath.Device {
		return errors.Kindf(errors.InvalidArgument, "%v is not a volume", vol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(p.Volume())
	if _, ok := m.volumes[key]; ok {
		return nil
	}
	serial := uint32(0x5eed0000 + len(m.volumes))
	m.volumes[key] = serial

	root := m.newNode(serial, FILE_ATTRIBUTE_DIRECTORY)
	m.entries[strings.ToLower(p.Volume()+`\`)] = &memEntry{node: root}
	return nil
}

// AddLocalHost registers host as an alias of the local machine, so that its
// administrative shares resolve to local drives.
func (m *MemFS) AddLocalHost(host string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localHosts[strings.ToLower(host)] = struct{}{}
}

func (m *MemFS) now() filetime.Filetime {
	if m.Now != nil {
		return filetime.FromTime(m.Now())
	}
	return filetime.FromTime(time.Now())
}

func (m *MemFS) newNode(serial, attrs uint32) *memNode {
	m.lastIndex++
	now := m.now()
	return &memNode{
		index:    0x10000 + m.lastIndex,
		serial:   serial,
		attrs:    attrs,
		creation: now,
		access:   now,
		write:    now,
		change:   now,
		nlink:    1,
	}
}

func (m *MemFS) fail(op, path string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, path)
}

// memPath is a path resolved to its key in m.entries.
type memPath struct {
	path    winpath.Path
	key     string
	volume  string
	display string // as requested, before share mapping
}

func (m *MemFS) resolve(name string) (memPath, error) {
	p, err := winpath.Parse(name)
	if err != nil {
		return memPath{}, err
	}
	if !p.IsAbs() || p.Kind() == winpath.Device {
		return memPath{}, errors.Kindf(errors.InvalidArgument, "%v: not an absolute path", name)
	}
	if p.IsLong() && !p.Prefixed() {
		return memPath{}, errors.Kindf(errors.InvalidArgument, "%v: file name too long", name)
	}

	res := memPath{display: p.Display()}
	if letter, ok := p.AdminDrive(); ok {
		if _, local := m.localHosts[strings.ToLower(p.Host())]; local {
			mapped := string([]byte{letter, ':', '\\'}) + strings.Join(p.Elems(), `\`)
			p, err = winpath.Parse(extendedPrefix(mapped))
			if err != nil {
				return memPath{}, err
			}
		}
	}

	res.path = p
	res.volume = strings.ToLower(p.Volume())
	res.key = strings.ToLower(p.Display())
	return res, nil
}

// extendedPrefix adds \\?\ to an absolute drive path so that Parse accepts it
// regardless of its length.
func extendedPrefix(p string) string {
	return `\\?\` + p
}

func (m *MemFS) lookup(mp memPath) (*memEntry, error) {
	if _, ok := m.volumes[mp.volume]; !ok {
		return nil, errors.Kindf(errors.NotFound, "%v: network path not found", mp.display)
	}
	e, ok := m.entries[mp.key]
	if !ok {
		return nil, errors.Kindf(errors.NotFound, "%v: file not found", mp.display)
	}
	return e, nil
}

// follow resolves symlinks starting at e.
func (m *MemFS) follow(e *memEntry, display string) (*memEntry, string, error) {
	for i := 0; e.node.tag == IO_REPARSE_TAG_SYMLINK; i++ {
		if i == maxSymlinkHops {
			return nil, "", errors.Kindf(errors.IoError, "%v: too many levels of symbolic links", display)
		}
		mp, err := m.resolve(e.node.target)
		if err != nil {
			return nil, "", err
		}
		e, err = m.lookup(mp)
		if err != nil {
			return nil, "", err
		}
		display = mp.display
	}
	return e, display, nil
}

func (m *MemFS) parent(mp memPath) (*memEntry, error) {
	dir := mp.path.Dir()
	e, ok := m.entries[strings.ToLower(dir.Display())]
	if !ok || e.node.attrs&FILE_ATTRIBUTE_DIRECTORY == 0 {
		return nil, errors.Kindf(errors.NotFound, "%v: path not found", mp.display)
	}
	return e, nil
}

// FindFirstFile returns the entry for path.
func (m *MemFS) FindFirstFile(path string) (FindData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("FindFirstFile", path); err != nil {
		return FindData{}, err
	}
	mp, err := m.resolve(path)
	if err != nil {
		return FindData{}, err
	}
	if mp.path.IsRoot() {
		return FindData{}, errors.Kindf(errors.NotFound, "%v: file not found", path)
	}
	e, err := m.lookup(mp)
	if err != nil {
		return FindData{}, err
	}

	n := e.node
	return FindData{
		Attributes:     n.attrs,
		CreationTime:   n.creation,
		LastAccessTime: n.access,
		LastWriteTime:  n.write,
		Size:           n.size,
		ReparseTag:     n.tag,
		Name:           e.name,
	}, nil
}

// GetFileAttributesEx returns the attributes of path without following
// symlinks.
func (m *MemFS) GetFileAttributesEx(path string) (AttributeData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("GetFileAttributesEx", path); err != nil {
		return AttributeData{}, err
	}
	mp, err := m.resolve(path)
	if err != nil {
		return AttributeData{}, err
	}
	e, err := m.lookup(mp)
	if err != nil {
		return AttributeData{}, err
	}

	n := e.node
	return AttributeData{
		Attributes:     n.attrs,
		CreationTime:   n.creation,
		LastAccessTime: n.access,
		LastWriteTime:  n.write,
		Size:           n.size,
	}, nil
}

// CreateFile opens path. Directories need FILE_FLAG_BACKUP_SEMANTICS,
// symlinks are followed unless FILE_FLAG_OPEN_REPARSE_POINT is set.
func (m *MemFS) CreateFile(path string, access, flags uint32) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("CreateFile", path); err != nil {
		return nil, err
	}
	return m.open(path, access, flags, false)
}

// Lock opens path without sharing delete access, like most applications do.
// DeleteFile fails until the handle is closed.
func (m *MemFS) Lock(path string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.open(path, FILE_READ_ATTRIBUTES, FILE_FLAG_BACKUP_SEMANTICS, true)
}

func (m *MemFS) open(path string, access, flags uint32, lock bool) (Handle, error) {
	mp, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	e, err := m.lookup(mp)
	if err != nil {
		return nil, err
	}

	display := mp.display
	if flags&FILE_FLAG_OPEN_REPARSE_POINT == 0 {
		e, display, err = m.follow(e, display)
		if err != nil {
			return nil, err
		}
	}
	if e.node.attrs&FILE_ATTRIBUTE_DIRECTORY != 0 && flags&FILE_FLAG_BACKUP_SEMANTICS == 0 {
		return nil, errors.Kindf(errors.AccessDenied, "%v: access is denied", path)
	}

	m.lastFd += 4
	h := &memHandle{
		fs:     m,
		fd:     m.lastFd,
		node:   e.node,
		path:   display,
		access: access,
		lock:   lock,
	}
	if lock {
		e.node.locks++
	}
	m.handles[h.fd] = h
	return h, nil
}

func (h *memHandle) Fd() uintptr {
	return h.fd
}

func (h *memHandle) Close() error {
	m := h.fs
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.closed {
		return errors.Kindf(errors.InvalidArgument, "handle %#x already closed", h.fd)
	}
	h.closed = true
	if h.lock {
		h.node.locks--
	}
	delete(m.handles, h.fd)
	return nil
}

func (m *MemFS) handle(op string, fd uintptr) (*memHandle, error) {
	h, ok := m.handles[fd]
	if !ok {
		return nil, errors.Kindf(errors.InvalidArgument, "%v: invalid handle %#x", op, fd)
	}
	if err := m.fail(op, h.path); err != nil {
		return nil, err
	}
	return h, nil
}

// GetFileInformationByHandle returns the metadata of fd.
func (m *MemFS) GetFileInformationByHandle(fd uintptr) (HandleInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, err := m.handle("GetFileInformationByHandle", fd)
	if err != nil {
		return HandleInfo{}, err
	}

	n := h.node
	info := HandleInfo{
		Attributes:         n.attrs,
		CreationTime:       n.creation,
		LastAccessTime:     n.access,
		LastWriteTime:      n.write,
		ChangeTime:         n.change,
		VolumeSerialNumber: n.serial,
		Size:               n.size,
		NumberOfLinks:      n.nlink,
		FileIndex:          n.index,
	}
	if m.NoChangeTime {
		info.ChangeTime = 0
	}
	return info, nil
}

// GetFinalPathNameByHandle returns the path fd was opened with, after
// following symlinks, with the extended-length prefix.
func (m *MemFS) GetFinalPathNameByHandle(fd uintptr) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, err := m.handle("GetFinalPathNameByHandle", fd)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(h.path, `\\`) {
		return `\\?\UNC\` + h.path[2:], nil
	}
	return extendedPrefix(h.path), nil
}

// SetFileTime updates the times of fd, which must have been opened with
// FILE_WRITE_ATTRIBUTES.
func (m *MemFS) SetFileTime(fd uintptr, atime, mtime *filetime.Filetime) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, err := m.handle("SetFileTime", fd)
	if err != nil {
		return err
	}
	if h.access&FILE_WRITE_ATTRIBUTES == 0 {
		return errors.Kindf(errors.AccessDenied, "%v: handle lacks FILE_WRITE_ATTRIBUTES", h.path)
	}

	if atime != nil {
		h.node.access = *atime
	}
	if mtime != nil {
		h.node.write = *mtime
	}
	if atime != nil || mtime != nil {
		h.node.change = m.now()
	}
	return nil
}

// DeleteFile removes the directory entry for path.
func (m *MemFS) DeleteFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("DeleteFile", path); err != nil {
		return err
	}
	mp, err := m.resolve(path)
	if err != nil {
		return err
	}
	e, err := m.lookup(mp)
	if err != nil {
		return err
	}

	n := e.node
	switch {
	case n.attrs&FILE_ATTRIBUTE_DIRECTORY != 0 && n.tag == 0:
		return errors.Kindf(errors.AccessDenied, "%v: is a directory", path)
	case n.attrs&FILE_ATTRIBUTE_READONLY != 0:
		return errors.Kindf(errors.AccessDenied, "%v: file is read-only", path)
	case n.locks > 0:
		return errors.Kindf(errors.AccessDenied, "%v: file is being used by another process", path)
	}

	delete(m.entries, mp.key)
	n.nlink--
	now := m.now()
	n.change = now
	if dir, err := m.parent(mp); err == nil {
		dir.node.write, dir.node.change = now, now
	}
	return nil
}

// Mkdir creates a directory. The parent must exist.
func (m *MemFS) Mkdir(path string) error {
	return m.create(path, func(serial uint32) *memNode {
		return m.newNode(serial, FILE_ATTRIBUTE_DIRECTORY)
	})
}

// MkdirAll creates path and all missing parents.
func (m *MemFS) MkdirAll(path string) error {
	p, err := winpath.Parse(path)
	if err != nil {
		return err
	}
	if p.IsRoot() {
		return nil
	}
	if err := m.MkdirAll(p.Dir().Win32()); err != nil {
		return err
	}
	err = m.Mkdir(p.Win32())
	if errors.Is(err, errExist) {
		return nil
	}
	return err
}

// WriteFile creates a regular file of the given size.
func (m *MemFS) WriteFile(path string, size uint64) error {
	return m.create(path, func(serial uint32) *memNode {
		n := m.newNode(serial, FILE_ATTRIBUTE_ARCHIVE)
		n.size = size
		return n
	})
}

// Symlink creates link pointing to target. isDir selects a directory
// symlink, which carries FILE_ATTRIBUTE_DIRECTORY like on NTFS.
func (m *MemFS) Symlink(target, link string, isDir bool) error {
	return m.create(link, func(serial uint32) *memNode {
		attrs := uint32(FILE_ATTRIBUTE_REPARSE_POINT | FILE_ATTRIBUTE_ARCHIVE)
		if isDir {
			attrs = FILE_ATTRIBUTE_REPARSE_POINT | FILE_ATTRIBUTE_DIRECTORY
		}
		n := m.newNode(serial, attrs)
		n.tag = IO_REPARSE_TAG_SYMLINK
		n.target = target
		return n
	})
}

// Link creates a hard link newpath for the file oldpath.
func (m *MemFS) Link(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, err := m.resolve(oldpath)
	if err != nil {
		return err
	}
	e, err := m.lookup(old)
	if err != nil {
		return err
	}
	if e.node.attrs&FILE_ATTRIBUTE_DIRECTORY != 0 {
		return errors.Kindf(errors.AccessDenied, "%v: cannot link a directory", oldpath)
	}

	err = m.createLocked(newpath, func(uint32) *memNode { return e.node })
	if err != nil {
		return err
	}
	e.node.nlink++
	e.node.change = m.now()
	return nil
}

var errExist = errors.New("file exists")

func (m *MemFS) create(path string, mk func(serial uint32) *memNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createLocked(path, mk)
}

func (m *MemFS) createLocked(path string, mk func(serial uint32) *memNode) error {
	mp, err := m.resolve(path)
	if err != nil {
		return err
	}
	serial, ok := m.volumes[mp.volume]
	if !ok {
		return errors.Kindf(errors.NotFound, "%v: network path not found", path)
	}
	if _, ok := m.entries[mp.key]; ok {
		return errors.Wrap(errExist, path)
	}
	dir, err := m.parent(mp)
	if err != nil {
		return err
	}

	n := mk(serial)
	if n.serial != serial {
		return errors.Kindf(errors.IoError, "%v: not the same device", path)
	}
	m.entries[mp.key] = &memEntry{name: mp.path.Base(), node: n}
	now := m.now()
	dir.node.write, dir.node.change = now, now
	return nil
}

// SetAttributes replaces the attributes of path, keeping the directory and
// reparse point bits.
func (m *MemFS) SetAttributes(path string, attrs uint32) error {
	return m.update(path, func(n *memNode) {
		keep := n.attrs & (FILE_ATTRIBUTE_DIRECTORY | FILE_ATTRIBUTE_REPARSE_POINT)
		n.attrs = keep | attrs&^(FILE_ATTRIBUTE_DIRECTORY|FILE_ATTRIBUTE_REPARSE_POINT)
		n.change = m.now()
	})
}

// SetTimes sets all four times of path directly.
func (m *MemFS) SetTimes(path string, creation, access, write, change time.Time) error {
	return m.update(path, func(n *memNode) {
		n.creation = filetime.FromTime(creation)
		n.access = filetime.FromTime(access)
		n.write = filetime.FromTime(write)
		n.change = filetime.FromTime(change)
	})
}

func (m *MemFS) update(path string, fn func(*memNode)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, err := m.resolve(path)
	if err != nil {
		return err
	}
	e, err := m.lookup(mp)
	if err != nil {
		return err
	}
	fn(e.node)
	return nil
}

// Exists reports whether path has a directory entry.
func (m *MemFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, err := m.resolve(path)
	if err != nil {
		return false
	}
	_, err = m.lookup(mp)
	return err == nil
}

// OpenHandles returns the paths of all handles that are still open, sorted.
// It returns nil if no handle is open.
func (m *MemFS) OpenHandles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var paths []string
	for _, h := range m.handles {
		paths = append(paths, h.path)
	}
	sort.Strings(paths)
	return paths
}
