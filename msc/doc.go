// Package msc serves a romfat.BlockDevice to a USB mass storage host.
//
// Responder implements the SCSI commands a host issues to a removable disk,
// Server frames them with the Bulk-Only Transport on a pair of byte streams.
//
// Generated mock using mockgen:
//  mockgen -destination=device_mock_test.go -package msc github.com/aligator/romfat BlockDevice
package msc
