// Package winpath classifies Windows paths and produces the form accepted by
// the Win32 file APIs.
//
// It works on strings only and implements Windows semantics on every
// platform, so it never touches the file system.
package winpath

import (
	"strings"
	"unicode/utf16"

	"github.com/restic/winposix/internal/errors"
)

// MaxPath is the legacy Win32 path limit in UTF-16 code units, including
// the terminating NUL.
const MaxPath = 260

const (
	extendedPathPrefix = `\\?\`
	uncPathPrefix      = `\\?\UNC\`
	devicePathPrefix   = `\\.\`
)

// Kind is the class of a path.
type Kind int

const (
	// Relative is a path without a volume. Only Parse returns it, Resolve
	// always yields an absolute class.
	Relative Kind = iota
	// Drive is X:\... within MaxPath.
	Drive
	// UNC is \\host\share\... within MaxPath.
	UNC
	// LongDrive is a drive path needing the \\?\ prefix.
	LongDrive
	// LongUNC is a UNC path needing the \\?\UNC\ prefix.
	LongUNC
	// Device is a \\.\ or \\?\ path naming neither a drive nor a share. It
	// is passed through unchanged.
	Device
)

func (k Kind) String() string {
	switch k {
	case Drive:
		return "drive"
	case UNC:
		return "unc"
	case LongDrive:
		return "long-drive"
	case LongUNC:
		return "long-unc"
	case Device:
		return "device"
	default:
		return "relative"
	}
}

// Path is a parsed Windows path.
type Path struct {
	kind  Kind
	drive byte // upper case drive letter, 0 for UNC and others
	host  string
	share string
	elems []string

	// only for Relative
	rooted   bool // \foo: root of the current volume
	relDrive byte // X:foo: relative to the current directory of drive X

	raw      string // Device paths
	prefixed bool   // the input already carried \\?\
}

// Parse classifies p. Relative paths (including \foo and X:foo) keep the
// Relative class, use Resolve to make them absolute.
func Parse(p string) (Path, error) {
	if p == "" {
		return Path{}, errors.Kindf(errors.InvalidArgument, "empty path")
	}
	if strings.IndexByte(p, 0) >= 0 {
		return Path{}, errors.Kindf(errors.InvalidArgument, "path %q contains NUL", p)
	}

	s := strings.ReplaceAll(p, "/", `\`)

	switch {
	case hasPrefixFold(s, uncPathPrefix):
		path, err := parseUNC(p, s[len(uncPathPrefix):])
		if err != nil {
			return Path{}, err
		}
		path.prefixed = true
		return path.classify(), nil

	case strings.HasPrefix(s, extendedPathPrefix):
		rest := s[len(extendedPathPrefix):]
		if isDriveSpec(rest) {
			path := parseDrive(rest)
			if path.kind == Relative {
				// \\?\C:foo is not meaningful
				return Path{}, errors.Kindf(errors.InvalidArgument, "invalid extended path %q", p)
			}
			path.prefixed = true
			return path.classify(), nil
		}
		return Path{kind: Device, raw: s, prefixed: true}, nil

	case strings.HasPrefix(s, devicePathPrefix):
		return Path{kind: Device, raw: s}, nil

	case strings.HasPrefix(s, `\\`):
		path, err := parseUNC(p, s[2:])
		if err != nil {
			return Path{}, err
		}
		return path.classify(), nil

	case isDriveSpec(s):
		return parseDrive(s).classify(), nil

	case strings.HasPrefix(s, `\`):
		return Path{kind: Relative, rooted: true, elems: clean(nil, split(s))}, nil
	}

	return Path{kind: Relative, elems: split(s)}, nil
}

// Resolve parses p and makes it absolute against cwd, which must be an
// absolute drive or UNC path.
func Resolve(cwd, p string) (Path, error) {
	path, err := Parse(p)
	if err != nil {
		return Path{}, err
	}
	if path.kind != Relative {
		return path, nil
	}

	base, err := Parse(cwd)
	if err != nil {
		return Path{}, errors.Wrap(err, "working directory")
	}
	if base.kind == Relative || base.kind == Device {
		return Path{}, errors.Kindf(errors.InvalidArgument, "working directory %q is not absolute", cwd)
	}

	res := Path{kind: base.kind, drive: base.drive, host: base.host, share: base.share}
	switch {
	case path.relDrive != 0 && path.relDrive != base.drive:
		// X:foo with the working directory on another volume, the
		// per-drive working directory is not tracked
		res = Path{kind: Drive, drive: path.relDrive, elems: clean(nil, path.elems)}
	case path.rooted:
		res.elems = clean(nil, path.elems)
	default:
		res.elems = clean(base.elems, path.elems)
	}
	return res.classify(), nil
}

func parseDrive(s string) Path {
	letter := upper(s[0])
	rest := s[2:]

	if rest != "" && rest[0] != '\\' {
		return Path{kind: Relative, relDrive: letter, elems: split(rest)}
	}

	return Path{kind: Drive, drive: letter, elems: clean(nil, split(rest))}
}

func parseUNC(orig, s string) (Path, error) {
	parts := split(s)
	if len(parts) < 2 {
		return Path{}, errors.Kindf(errors.InvalidArgument, "UNC path %q has no share", orig)
	}
	if parts[0] == "." || parts[0] == "?" {
		return Path{}, errors.Kindf(errors.InvalidArgument, "invalid UNC host in %q", orig)
	}

	return Path{
		kind:  UNC,
		host:  parts[0],
		share: parts[1],
		elems: clean(nil, parts[2:]),
	}, nil
}

// classify promotes Drive and UNC paths to their long form when needed.
func (p Path) classify() Path {
	if p.kind != Drive && p.kind != UNC {
		return p
	}
	if p.prefixed || utf16Len(p.Display())+1 > MaxPath {
		if p.kind == Drive {
			p.kind = LongDrive
		} else {
			p.kind = LongUNC
		}
	}
	return p
}

// Kind returns the class of p.
func (p Path) Kind() Kind {
	return p.kind
}

// IsLong reports whether p needs (or carried) the extended-length prefix.
func (p Path) IsLong() bool {
	return p.kind == LongDrive || p.kind == LongUNC
}

// IsUNC reports whether p names a network share.
func (p Path) IsUNC() bool {
	return p.kind == UNC || p.kind == LongUNC
}

// IsAbs reports whether p is absolute.
func (p Path) IsAbs() bool {
	return p.kind != Relative
}

// Prefixed reports whether the input already carried \\?\.
func (p Path) Prefixed() bool {
	return p.prefixed
}

// DriveLetter returns the upper case drive letter of a drive path.
func (p Path) DriveLetter() (byte, bool) {
	if p.kind == Drive || p.kind == LongDrive {
		return p.drive, true
	}
	return 0, false
}

// Host returns the server name of a UNC path.
func (p Path) Host() string {
	return p.host
}

// Share returns the share name of a UNC path.
func (p Path) Share() string {
	return p.share
}

// AdminDrive returns the drive letter of an administrative share such as
// \\host\C$.
func (p Path) AdminDrive() (byte, bool) {
	if !p.IsUNC() || len(p.share) != 2 || p.share[1] != '$' || !isLetter(p.share[0]) {
		return 0, false
	}
	return upper(p.share[0]), true
}

// IsRoot reports whether p names the root of a drive or share.
func (p Path) IsRoot() bool {
	return p.kind != Relative && p.kind != Device && len(p.elems) == 0
}

// Base returns the last element of p, or "" for a volume root.
func (p Path) Base() string {
	if p.kind == Device {
		if i := strings.LastIndexByte(p.raw, '\\'); i >= 0 {
			return p.raw[i+1:]
		}
		return p.raw
	}
	if len(p.elems) == 0 {
		return ""
	}
	return p.elems[len(p.elems)-1]
}

// Dir returns the parent of p. The parent of a root is the root itself.
func (p Path) Dir() Path {
	if p.kind == Device || len(p.elems) == 0 {
		return p
	}
	d := p
	d.elems = p.elems[: len(p.elems)-1 : len(p.elems)-1]
	d.prefixed = false
	if d.kind == LongDrive {
		d.kind = Drive
	} else if d.kind == LongUNC {
		d.kind = UNC
	}
	return d.classify()
}

// Join appends name to p.
func (p Path) Join(name string) Path {
	if p.kind == Device {
		p.raw = strings.TrimRight(p.raw, `\`) + `\` + name
		return p
	}
	elems := make([]string, 0, len(p.elems)+1)
	elems = append(elems, p.elems...)
	p.elems = clean(elems, split(strings.ReplaceAll(name, "/", `\`)))
	return p.classify()
}

// Volume returns the volume part: "C:" or `\\host\share`.
func (p Path) Volume() string {
	switch p.kind {
	case Drive, LongDrive:
		return string([]byte{p.drive, ':'})
	case UNC, LongUNC:
		return `\\` + p.host + `\` + p.share
	case Relative:
		if p.relDrive != 0 {
			return string([]byte{p.relDrive, ':'})
		}
	}
	return ""
}

// Display returns the canonical form of p without the extended-length
// prefix, using backslashes.
func (p Path) Display() string {
	switch p.kind {
	case Device:
		return p.raw
	case Relative:
		s := strings.Join(p.elems, `\`)
		switch {
		case p.relDrive != 0:
			return p.Volume() + s
		case p.rooted:
			return `\` + s
		case s == "":
			return "."
		}
		return s
	}

	var sb strings.Builder
	sb.WriteString(p.Volume())
	sb.WriteByte('\\')
	sb.WriteString(strings.Join(p.elems, `\`))
	return sb.String()
}

// Win32 returns the string to hand to the Win32 file APIs. Long paths get
// the extended-length prefix; for UNC paths the leading \\ is replaced by
// \\?\UNC\.
func (p Path) Win32() string {
	switch p.kind {
	case LongDrive:
		return extendedPathPrefix + p.Display()
	case LongUNC:
		return uncPathPrefix + p.Display()[2:]
	}
	return p.Display()
}

// String implements fmt.Stringer.
func (p Path) String() string {
	return p.Display()
}

// Str returns the compact form used by the debug log.
func (p Path) Str() string {
	return p.kind.String() + ":" + p.Display()
}

// Elems returns the components below the volume.
func (p Path) Elems() []string {
	return append([]string(nil), p.elems...)
}

func split(s string) []string {
	var elems []string
	for _, e := range strings.Split(s, `\`) {
		if e == "" || e == "." {
			continue
		}
		elems = append(elems, e)
	}
	return elems
}

// clean appends elems to base, resolving "..". It never climbs above the
// volume root.
func clean(base, elems []string) []string {
	res := base
	for _, e := range elems {
		if e == ".." {
			if len(res) > 0 {
				res = res[:len(res)-1]
			}
			continue
		}
		res = append(res, e)
	}
	return res
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func isDriveSpec(s string) bool {
	return len(s) >= 2 && s[1] == ':' && isLetter(s[0])
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func upper(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
