// Package mmap provides read-only memory-mapped file access for tile blobs.
//
// Local tile directories hold one file per tile. Mapping them lets the tile decoder
// read nodes and edges without copying the file through kernel buffers:
//
//	m, err := mmap.Open("2/000/756/425.gph")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	_ = m.Advise(mmap.AccessSequential)
//
// Unix uses mmap(2)/madvise(2); Windows uses CreateFileMapping/MapViewOfFile and treats
// Advise as a no-op.
//
// A Mapping is safe for concurrent reads. Close is idempotent; callers must not touch
// the slice returned by Bytes after Close returns.
package mmap
