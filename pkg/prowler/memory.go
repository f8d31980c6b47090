//go:build linux

package prowler

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ramMarker identifies the shared memory object Dolphin maps its emulated
// RAM from (/dev/shm/dolphin-emu.<pid> or memfd:dolphin-emu.<pid>).
const ramMarker = "dolphin-emu"

type MemoryRegion struct {
	Start  uint64
	End    uint64
	Perms  string
	Offset uint64
	Device string
	Inode  uint64
	Path   string
}

func (r MemoryRegion) Size() uint64 {
	return r.End - r.Start
}

// parseProcMaps parses /proc/[pid]/maps.
func parseProcMaps(pid int) ([]MemoryRegion, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseMaps(f)
}

func parseMaps(r io.Reader) ([]MemoryRegion, error) {
	var regions []MemoryRegion

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		addrs := strings.Split(fields[0], "-")
		if len(addrs) != 2 {
			continue
		}
		start, err := strconv.ParseUint(addrs[0], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(addrs[1], 16, 64)
		if err != nil {
			continue
		}

		region := MemoryRegion{
			Start:  start,
			End:    end,
			Perms:  fields[1],
			Offset: parseHex(fields[2]),
			Device: fields[3],
			Inode:  parseUint(fields[4]),
		}
		if len(fields) > 5 {
			region.Path = strings.Join(fields[5:], " ")
		}
		regions = append(regions, region)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

// findRAMRegion returns the first shared mapping of Dolphin's RAM object
// whose size is a whole number of RAM views.
func findRAMRegion(regions []MemoryRegion) (MemoryRegion, bool) {
	for _, r := range regions {
		if !strings.Contains(r.Path, ramMarker) || r.Offset != 0 {
			continue
		}

		size := r.Size()
		if size >= RAMSize && size%RAMSize == 0 {
			return r, true
		}
	}
	return MemoryRegion{}, false
}

func parseHex(s string) uint64 {
	if s == "0" {
		return 0
	}
	val, _ := strconv.ParseUint(s, 16, 64)
	return val
}

func parseUint(s string) uint64 {
	val, _ := strconv.ParseUint(s, 10, 64)
	return val
}
