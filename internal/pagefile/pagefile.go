// Package pagefile implements the paged binary asset file: a fixed header
// followed by equally sized pages. Every persisted object occupies a singly
// linked chain of pages; unused pages form a free list threaded through the
// same next pointers.
//
// Layout (little-endian):
//
//	header: [4]magic [u32 dataSize] [u64 rootPage] [u64 rootKey] [u64 freeHead]
//	page:   [u64 next] [dataSize]data
//
// A page pointer is the byte offset of the page in the file; zero means none.
package pagefile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

const (
	// Magic tags every asset file.
	Magic = "INKG"

	// HeaderSize is the byte length of the file header; the first page
	// starts right after it.
	HeaderSize = 32

	// DefaultDataSize is the data bytes per page when Options leaves it zero.
	DefaultDataSize = 1024

	// MinDataSize keeps pages large enough to be useful.
	MinDataSize = 16

	ptrSize = 8

	// FreeFill overwrites the data region of freed pages.
	FreeFill byte = 0xDB
)

// Ptr is the file offset of a page.
type Ptr uint64

var (
	ErrBadMagic   = errors.New("pagefile: bad magic")
	ErrBadPointer = errors.New("pagefile: invalid page pointer")
	ErrCorrupt    = errors.New("pagefile: corrupt page chain")
	ErrClosed     = errors.New("pagefile: file closed")
)

// Options configures Create and Open.
type Options struct {
	// DataSize is the payload size of a page for new files. Existing files
	// keep the size recorded in their header.
	DataSize int
	Log      *zap.Logger
}

// Header mirrors the fixed header fields.
type Header struct {
	DataSize uint32
	RootPage Ptr
	RootKey  uint64
	FreeHead Ptr
}

func (h *Header) encode(buf []byte) {
	copy(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.DataSize)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.RootPage))
	binary.LittleEndian.PutUint64(buf[16:24], h.RootKey)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.FreeHead))
}

func (h *Header) decode(buf []byte) error {
	if string(buf[0:4]) != Magic {
		return ErrBadMagic
	}
	h.DataSize = binary.LittleEndian.Uint32(buf[4:8])
	h.RootPage = Ptr(binary.LittleEndian.Uint64(buf[8:16]))
	h.RootKey = binary.LittleEndian.Uint64(buf[16:24])
	h.FreeHead = Ptr(binary.LittleEndian.Uint64(buf[24:32]))
	if h.DataSize < MinDataSize {
		return fmt.Errorf("%w: page data size %d", ErrCorrupt, h.DataSize)
	}
	return nil
}

// File is an open asset file. Not safe for concurrent use.
type File struct {
	path string
	f    *os.File
	hdr  Header
	size int64
	log  *zap.Logger
}

// Create writes a fresh file at path with an empty root page, truncating any
// existing file.
func Create(path string, opts Options) (*File, error) {
	ds := opts.DataSize
	if ds == 0 {
		ds = DefaultDataSize
	}
	if ds < MinDataSize {
		return nil, fmt.Errorf("create %s: page data size %d below %d", path, ds, MinDataSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	pf := &File{
		path: path,
		f:    f,
		hdr:  Header{DataSize: uint32(ds)},
		size: HeaderSize,
		log:  logger(opts.Log),
	}
	if err := pf.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	root, err := pf.AllocPage()
	if err != nil {
		f.Close()
		return nil, err
	}
	pf.hdr.RootPage = root
	if err := pf.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	pf.log.Debug("page file created", zap.String("path", path), zap.Int("data_size", ds))
	return pf, nil
}

// Open reads and validates the header of an existing file.
func Open(path string, opts Options) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	pf := &File{path: path, f: f, log: logger(opts.Log)}
	if err := pf.hdr.decode(buf[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf.size = st.Size()
	if !pf.valid(pf.hdr.RootPage) {
		f.Close()
		return nil, fmt.Errorf("open %s: root page %d: %w", path, pf.hdr.RootPage, ErrCorrupt)
	}
	pf.log.Debug("page file opened", zap.String("path", path), zap.Int("pages", pf.PageCount()))
	return pf, nil
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func (pf *File) Path() string   { return pf.path }
func (pf *File) Header() Header { return pf.hdr }
func (pf *File) DataSize() int  { return int(pf.hdr.DataSize) }
func (pf *File) RootPage() Ptr  { return pf.hdr.RootPage }
func (pf *File) RootKey() uint64 { return pf.hdr.RootKey }

func (pf *File) pageSize() int64 { return ptrSize + int64(pf.hdr.DataSize) }

// PageCount returns the number of pages in the file, free or not.
func (pf *File) PageCount() int {
	return int((pf.size - HeaderSize) / pf.pageSize())
}

// SetRootKey records the arena key of the root object.
func (pf *File) SetRootKey(k uint64) error {
	if pf.hdr.RootKey == k {
		return nil
	}
	pf.hdr.RootKey = k
	return pf.writeHeader()
}

func (pf *File) writeHeader() error {
	if pf.f == nil {
		return ErrClosed
	}
	var buf [HeaderSize]byte
	pf.hdr.encode(buf[:])
	if _, err := pf.f.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("write header %s: %w", pf.path, err)
	}
	return nil
}

func (pf *File) valid(p Ptr) bool {
	if p < HeaderSize {
		return false
	}
	off := int64(p) - HeaderSize
	return off%pf.pageSize() == 0 && int64(p)+pf.pageSize() <= pf.size
}

func (pf *File) check(p Ptr) error {
	if pf.f == nil {
		return ErrClosed
	}
	if !pf.valid(p) {
		return fmt.Errorf("%w: %d", ErrBadPointer, p)
	}
	return nil
}

func (pf *File) readNext(p Ptr) (Ptr, error) {
	var buf [ptrSize]byte
	if _, err := pf.f.ReadAt(buf[:], int64(p)); err != nil {
		return 0, fmt.Errorf("read page %d: %w", p, err)
	}
	return Ptr(binary.LittleEndian.Uint64(buf[:])), nil
}

func (pf *File) writeNext(p, next Ptr) error {
	var buf [ptrSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(next))
	if _, err := pf.f.WriteAt(buf[:], int64(p)); err != nil {
		return fmt.Errorf("write page %d: %w", p, err)
	}
	return nil
}

// writePage overwrites a whole page: next pointer and data. data shorter
// than the data region is padded with fill.
func (pf *File) writePage(p, next Ptr, data []byte, fill byte) error {
	buf := make([]byte, pf.pageSize())
	binary.LittleEndian.PutUint64(buf[:ptrSize], uint64(next))
	n := copy(buf[ptrSize:], data)
	if fill != 0 {
		for i := ptrSize + n; i < len(buf); i++ {
			buf[i] = fill
		}
	}
	if _, err := pf.f.WriteAt(buf, int64(p)); err != nil {
		return fmt.Errorf("write page %d: %w", p, err)
	}
	return nil
}

// ReadPage returns the next pointer and data region of one page.
func (pf *File) ReadPage(p Ptr) (Ptr, []byte, error) {
	if err := pf.check(p); err != nil {
		return 0, nil, err
	}
	buf := make([]byte, pf.pageSize())
	if _, err := pf.f.ReadAt(buf, int64(p)); err != nil {
		return 0, nil, fmt.Errorf("read page %d: %w", p, err)
	}
	return Ptr(binary.LittleEndian.Uint64(buf[:ptrSize])), buf[ptrSize:], nil
}

// AllocPage pops the free list head, or grows the file when the list is
// empty. The returned page has a zero next pointer and zeroed data.
func (pf *File) AllocPage() (Ptr, error) {
	if pf.f == nil {
		return 0, ErrClosed
	}
	var p Ptr
	if head := pf.hdr.FreeHead; head != 0 {
		if !pf.valid(head) {
			return 0, fmt.Errorf("%w: free list head %d", ErrCorrupt, head)
		}
		next, err := pf.readNext(head)
		if err != nil {
			return 0, err
		}
		pf.hdr.FreeHead = next
		if err := pf.writeHeader(); err != nil {
			return 0, err
		}
		p = head
	} else {
		p = Ptr(pf.size)
		pf.size += pf.pageSize()
	}
	if err := pf.writePage(p, 0, nil, 0); err != nil {
		return 0, err
	}
	return p, nil
}

// FreePage pushes p onto the free list and fills its data with FreeFill.
func (pf *File) FreePage(p Ptr) error {
	if err := pf.check(p); err != nil {
		return err
	}
	if p == pf.hdr.RootPage {
		return fmt.Errorf("free root page %d: %w", p, ErrBadPointer)
	}
	if err := pf.writePage(p, pf.hdr.FreeHead, nil, FreeFill); err != nil {
		return err
	}
	pf.hdr.FreeHead = p
	return pf.writeHeader()
}

// Chain lists the pages of the chain starting at first.
func (pf *File) Chain(first Ptr) ([]Ptr, error) {
	var out []Ptr
	limit := pf.PageCount()
	for p := first; p != 0; {
		if err := pf.check(p); err != nil {
			return out, err
		}
		if len(out) >= limit {
			return out, fmt.Errorf("%w: chain from %d exceeds %d pages", ErrCorrupt, first, limit)
		}
		out = append(out, p)
		next, err := pf.readNext(p)
		if err != nil {
			return out, err
		}
		p = next
	}
	return out, nil
}

// FreeList lists the free pages from head to tail.
func (pf *File) FreeList() ([]Ptr, error) {
	return pf.Chain(pf.hdr.FreeHead)
}

// FreeChain returns every page of the chain to the free list.
func (pf *File) FreeChain(first Ptr) error {
	pages, err := pf.Chain(first)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if err := pf.FreePage(p); err != nil {
			return err
		}
	}
	return nil
}

// SetObjData writes data across the chain starting at first. The chain grows
// when data no longer fits; when data shrank, the unused tail is freed and
// the last written page is terminated.
func (pf *File) SetObjData(first Ptr, data []byte) error {
	if err := pf.check(first); err != nil {
		return err
	}
	ds := pf.DataSize()
	limit := pf.PageCount() + len(data)/ds + 1
	cur := first
	for steps := 0; ; steps++ {
		if steps > limit {
			return fmt.Errorf("%w: chain from %d", ErrCorrupt, first)
		}
		n := min(len(data), ds)
		chunk := data[:n]
		data = data[n:]

		next, err := pf.readNext(cur)
		if err != nil {
			return err
		}
		if next != 0 && !pf.valid(next) {
			return fmt.Errorf("%w: page %d links to %d", ErrCorrupt, cur, next)
		}
		if len(data) == 0 {
			if err := pf.writePage(cur, 0, chunk, 0); err != nil {
				return err
			}
			if next != 0 {
				if err := pf.FreeChain(next); err != nil {
					return err
				}
			}
			return nil
		}
		if next == 0 {
			if next, err = pf.AllocPage(); err != nil {
				return err
			}
		}
		if err := pf.writePage(cur, next, chunk, 0); err != nil {
			return err
		}
		cur = next
	}
}

// GetObjData concatenates the data regions of the chain starting at first.
// The result is a whole number of pages; record decoding ignores the zero
// padding after the payload.
func (pf *File) GetObjData(first Ptr) ([]byte, error) {
	pages, err := pf.Chain(first)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(pages)*pf.DataSize())
	for _, p := range pages {
		_, data, err := pf.ReadPage(p)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

// FileOffset maps an offset inside an object's payload to the absolute file
// offset, for diagnostics.
func (pf *File) FileOffset(first Ptr, off int) int64 {
	pages, err := pf.Chain(first)
	if err != nil || len(pages) == 0 || off < 0 {
		return int64(first)
	}
	i := off / pf.DataSize()
	if i >= len(pages) {
		i = len(pages) - 1
	}
	return int64(pages[i]) + ptrSize + int64(off-i*pf.DataSize())
}

// Sync flushes the file to disk.
func (pf *File) Sync() error {
	if pf.f == nil {
		return ErrClosed
	}
	return pf.f.Sync()
}

// Close releases the file. Closing twice is a no-op.
func (pf *File) Close() error {
	if pf.f == nil {
		return nil
	}
	err := pf.f.Close()
	pf.f = nil
	return err
}
