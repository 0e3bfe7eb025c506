package memmap

// FindRegion returns the region whose address range contains addr, or nil
// when the address falls outside every mapping. Region ends are exclusive,
// matching the procfs range notation.
func FindRegion(regions []Region, addr uint64) *Region {
	for i := range regions {
		if addr >= regions[i].Start && addr < regions[i].End {
			return &regions[i]
		}
	}
	return nil
}

// FileOffset translates addr into an offset within the region's backing
// file, the value addr2line wants. Only meaningful for file-backed regions
// that contain addr.
func (r Region) FileOffset(addr uint64) uint64 {
	return addr - r.Start + r.Offset
}
