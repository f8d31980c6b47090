package prowler

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func readMemory(pid int, data []byte, ptr uintptr) (int, error) {
	localIov := []unix.Iovec{{Base: &data[0]}}
	localIov[0].SetLen(len(data))

	remoteIov := []unix.RemoteIovec{
		{
			Base: ptr,
			Len:  len(data),
		},
	}

	return unix.ProcessVMReadv(pid, localIov, remoteIov, 0)
}

// processReader reads another process's memory with process_vm_readv.
type processReader struct {
	pid int
}

func (r processReader) ReadMemory(buf []byte, addr uint64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	n, err := readMemory(r.pid, buf, uintptr(addr))
	if errors.Is(err, unix.ESRCH) {
		return n, fmt.Errorf("%w: pid %d", ErrProcessExited, r.pid)
	}
	return n, err
}
