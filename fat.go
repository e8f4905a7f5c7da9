package romfat

import "github.com/aligator/romfat/fatfs"

// buildFAT packs the cluster map. DROPHERE is a single cluster and every file is a
// contiguous chain, so each entry points to the next cluster until the last one.
func buildFAT(files []FileEntry) []byte {
	table := make([]byte, SectorSize)
	fatfs.PutEntry12(table, 0, fatfs.Media12)
	fatfs.PutEntry12(table, 1, fatfs.EOC12)
	fatfs.PutEntry12(table, uint32(lbaToCluster(DropHereLBA)), fatfs.EOC12)

	for _, f := range files {
		blocks := blocksFor(int(f.Size))
		for i := uint32(0); i < blocks; i++ {
			cluster := uint32(f.StartCluster) + i
			next := uint16(cluster + 1)
			if i == blocks-1 {
				next = fatfs.EOC12
			}
			fatfs.PutEntry12(table, cluster, next)
		}
	}
	return table
}
