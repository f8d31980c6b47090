package utils

import (
	"fmt"
	"strconv"

	"dolphinmem/pkg/memory"
)

// FormatValue renders a scalar as zero-padded hex of its width and decimal.
func FormatValue(v uint32, size memory.ByteSize) string {
	return fmt.Sprintf("%#0*x (%d)", int(size)*2+2, v, v)
}

func FormatString(s string) string {
	return strconv.Quote(s)
}

func PrintValue(addr uint32, v uint32, size memory.ByteSize) {
	fmt.Printf("%#08x %s: %s\n", addr, size, FormatValue(v, size))
}

func PrintStringLine(s ...string) {
	for _, str := range s {
		fmt.Println(str)
	}
}
