package prowler

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	memMapped   = 0x40000
	stillActive = 259
)

func attach(pid int) (*handle, error) {
	ph, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("open process: %w", err)
	}

	if !isAlive(ph) {
		_ = windows.CloseHandle(ph)
		return nil, ErrProcessExited
	}

	base, size, err := findRAMRegion(ph)
	if err != nil {
		_ = windows.CloseHandle(ph)
		return nil, err
	}

	return &handle{
		pid:    pid,
		base:   base,
		size:   size,
		reader: processReader{process: ph},
		closer: func() error { return windows.CloseHandle(ph) },
	}, nil
}

func isAlive(ph windows.Handle) bool {
	var code uint32
	if err := windows.GetExitCodeProcess(ph, &code); err != nil {
		return false
	}
	return code == stillActive
}

// findRAMRegion walks the address space of ph for the mapped view Dolphin
// keeps emulated RAM in.
func findRAMRegion(ph windows.Handle) (uint64, uint64, error) {
	var (
		info windows.MemoryBasicInformation
		addr uintptr
	)

	for {
		if err := windows.VirtualQueryEx(ph, addr, &info, unsafe.Sizeof(info)); err != nil {
			return 0, 0, ErrRegionNotFound
		}

		size := uint64(info.RegionSize)
		if info.Type == memMapped && info.BaseAddress != 0 && size >= RAMSize && size%RAMSize == 0 {
			return uint64(info.BaseAddress), size, nil
		}

		next := info.BaseAddress + info.RegionSize
		if next <= addr {
			return 0, 0, ErrRegionNotFound
		}
		addr = next
	}
}

// processReader reads another process's memory with ReadProcessMemory.
type processReader struct {
	process windows.Handle
}

func (r processReader) ReadMemory(buf []byte, addr uint64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	var n uintptr
	err := windows.ReadProcessMemory(r.process, uintptr(addr), &buf[0], uintptr(len(buf)), &n)
	if err != nil {
		if !isAlive(r.process) {
			return int(n), ErrProcessExited
		}
		return int(n), err
	}
	return int(n), nil
}
