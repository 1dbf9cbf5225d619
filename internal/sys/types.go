// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sys maps the "version made by" platform byte of a central
// directory header to the conventions of the system that wrote the entry.
package sys

// HostSystem represents the host system on which the ZIP entry was created,
// taken from the high byte of the "version made by" field.
type HostSystem uint8

// Host systems according to the ZIP specification.
const (
	HostSystemFAT       HostSystem = 0  // MS-DOS and OS/2 (FAT / VFAT / FAT32 file systems)
	HostSystemAmiga     HostSystem = 1  // Amiga
	HostSystemOpenVMS   HostSystem = 2  // OpenVMS
	HostSystemUNIX      HostSystem = 3  // UNIX
	HostSystemVMCMS     HostSystem = 4  // VM/CMS
	HostSystemAtariST   HostSystem = 5  // Atari ST
	HostSystemOS2HPFS   HostSystem = 6  // OS/2 H.P.F.S.
	HostSystemMacintosh HostSystem = 7  // Macintosh
	HostSystemZSystem   HostSystem = 8  // Z-System
	HostSystemCPM       HostSystem = 9  // CP/M
	HostSystemNTFS      HostSystem = 10 // Windows NTFS
	HostSystemMVS       HostSystem = 11 // MVS (OS/390 - Z/OS)
	HostSystemVSE       HostSystem = 12 // VSE
	HostSystemAcornRisc HostSystem = 13 // Acorn Risc
	HostSystemVFAT      HostSystem = 14 // VFAT
	HostSystemAltMVS    HostSystem = 15 // alternate MVS
	HostSystemBeOS      HostSystem = 16 // BeOS
	HostSystemTandem    HostSystem = 17 // Tandem
	HostSystemOS400     HostSystem = 18 // OS/400
	HostSystemDarwin    HostSystem = 19 // OS X (Darwin)
	// 20-255: unused
)

// IsWindows reports whether the entry was written under a DOS/Windows
// path convention, where backslash, forward slash and the drive colon
// all separate path components.
func (h HostSystem) IsWindows() bool {
	return h == HostSystemFAT || h == HostSystemNTFS || h == HostSystemVFAT || h == HostSystemOS2HPFS
}

// IsUnix reports whether the entry carries Unix mode bits in its external
// attributes.
func (h HostSystem) IsUnix() bool {
	return h == HostSystemUNIX || h == HostSystemDarwin || h == HostSystemBeOS
}

// Unix constants for file types (standard POSIX), as stored in the high
// 16 bits of the external attributes by Unix archivers.
const (
	S_IFMT   = 0170000 // File type mask
	S_IFREG  = 0100000 // Regular file
	S_IFDIR  = 0040000 // Directory
	S_IFLNK  = 0120000 // Symlink
	S_IFSOCK = 0140000 // Socket
	S_IFIFO  = 0010000 // FIFO
	S_IFCHR  = 0020000 // Character device
	S_IFBLK  = 0060000 // Block device
)
