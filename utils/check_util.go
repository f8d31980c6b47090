package utils

import (
	"strconv"

	"github.com/shirou/gopsutil/v4/process"
)

func CheckPid(pid string) bool {
	n, err := strconv.ParseInt(pid, 10, 32)
	if err != nil || n <= 0 {
		return false
	}

	exists, err := process.PidExists(int32(n))
	return err == nil && exists
}
