package crb

import (
	"os"

	"github.com/oruby/crb/internal/rb"
)

// RFile is a Ruby File wrapping an *os.File. The file is closed when the
// object is collected.
type RFile struct{ RObject }

// FileFrom wraps an open file
func (st *State) FileFrom(f *os.File) RFile {
	st.checkThread()
	return RFile{RObject{st.vm.FileNew(f), st}}
}

// FileOpen opens path and wraps it
func (st *State) FileOpen(path string, flag int, perm os.FileMode) (RFile, error) {
	v, err := st.protect(func() rb.VALUE { return st.vm.FileOpen(path, flag, perm) })
	if err != nil {
		return RFile{}, err
	}
	return RFile{RObject{v.v, st}}, nil
}

// AsFile certifies v as a File
func (st *State) AsFile(v RValue) (RFile, bool) {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return RFile{}, false
	}
	st.checkLiveness(w)
	if st.vm.BuiltinType(w) != rb.TFile {
		return RFile{}, false
	}
	return RFile{RObject{w, st}}, true
}

// File returns the wrapped file, nil once closed
func (f RFile) File() *os.File {
	w := f.raw()
	if f.st.vm.FileClosed(w) {
		return nil
	}
	return f.st.vm.FileGet(w)
}

// Path returns the path the file was opened with
func (f RFile) Path() string { return f.st.vm.FilePath(f.raw()) }

// IsClosed reports whether the file was closed
func (f RFile) IsClosed() bool { return f.st.vm.FileClosed(f.raw()) }

// Close closes the file
func (f RFile) Close() error {
	w := f.raw()
	return f.st.call(func() { f.st.vm.FileClose(w) })
}
