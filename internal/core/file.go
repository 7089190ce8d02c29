package core

import (
	"bufio"
	"os"
)

// FileData is the payload of a File object: filename, mode string, and a
// native file handle (spec §3.3 "File"). Reader is lazily allocated and
// reused across readLine calls so its look-ahead buffer survives between
// reads instead of being discarded and rebuilt on every call.
type FileData struct {
	Filename string
	Mode     string
	Handle   *os.File
	Reader   *bufio.Reader
}

func (f *FileData) KindName() string  { return "file" }
func (f *FileData) Trace(func(*Cell)) {}

// Finalize closes the handle if still open, mirroring spec §3.4's
// cleanup-callback contract: resources external to the managed heap are
// released whenever the object's storage is about to be reclaimed.
func (f *FileData) Finalize() {
	if f.Handle != nil {
		f.Handle.Close()
		f.Handle = nil
	}
}

func (h *Heap) NewFile(class *Object, filename, mode string, handle *os.File) *Object {
	return h.NewObject(class, &FileData{Filename: filename, Mode: mode, Handle: handle}, 0)
}

func FileOf(o *Object) *FileData {
	if o == nil {
		return nil
	}
	fd, _ := o.Payload.(*FileData)
	return fd
}
