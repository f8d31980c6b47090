package prowler

import "fmt"

func attach(pid int) (*handle, error) {
	regions, err := parseProcMaps(pid)
	if err != nil {
		return nil, fmt.Errorf("read memory map: %w", err)
	}

	region, ok := findRAMRegion(regions)
	if !ok {
		return nil, ErrRegionNotFound
	}

	return &handle{
		pid:    pid,
		base:   region.Start,
		size:   region.Size(),
		reader: processReader{pid: pid},
	}, nil
}
