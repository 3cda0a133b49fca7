package nnaccel

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// pageSize is the system page size, read once at startup.
var pageSize uintptr

// PageAlignedAlloc returns a size-byte buffer whose first byte is aligned
// to a page boundary — the layout the accelerator's DMA path expects for
// input tensors (§4.2).
func PageAlignedAlloc(size int) []byte {
	raw := make([]byte, size+int(pageSize))
	offset := pageSize - (uintptr(unsafe.Pointer(&raw[0])) % pageSize)
	return raw[offset : int(offset)+size]
}

// PageSize returns the system page size.
func PageSize() int {
	return int(pageSize)
}

// RoundUpToPageSize rounds size up to the nearest page-size multiple.
func RoundUpToPageSize(size int) int {
	return int((uintptr(size) + pageSize - 1) & ^(pageSize - 1))
}

func init() {
	pageSize = uintptr(unix.Getpagesize())
}
