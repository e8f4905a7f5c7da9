// Package romfat serves a fixed set of documents as a read-only FAT12 removable disk.
//
// A Volume precomputes the boot sector, both FATs, the root directory and the
// DROPHERE subdirectory for the three payloads COPYING, README and INDEX.HTM.
// A Resolver answers block reads from these tables and the payload buffers, so no
// image is ever held in memory. A write to the DROPHERE block clears a persisted
// "enabled" flag, which lets a user switch the device to its real function by
// dropping any file into that folder.
//
// Resolver and Passthrough both implement BlockDevice, which is what the SCSI
// layer in package msc talks to.
package romfat
