package winpath

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// uncDeviceBit is set on all device ids derived from a share name, so they
// never collide with a drive index (0-25).
const uncDeviceBit = 1 << 31

// DeviceID returns the emulated st_dev of p.
//
// Drive paths use the letter index, A=0, so C: is 2. An administrative share
// \\host\X$ is treated like drive X. Other shares get a stable nonzero id
// derived from the lower case host and share names. Relative and device
// paths return 0.
func (p Path) DeviceID() uint64 {
	if letter, ok := p.DriveLetter(); ok {
		return uint64(letter - 'A')
	}
	if letter, ok := p.AdminDrive(); ok {
		return uint64(letter - 'A')
	}
	if p.IsUNC() {
		return ShareDeviceID(p.host, p.share)
	}
	return 0
}

// ShareDeviceID returns the device id used for \\host\share.
func ShareDeviceID(host, share string) uint64 {
	key := strings.ToLower(host) + `\` + strings.ToLower(share)
	return xxhash.Sum64String(key)&(uncDeviceBit-1) | uncDeviceBit
}
