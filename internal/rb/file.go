package rb

import (
	"os"
	"strconv"
)

type fileBody struct {
	f      *os.File
	path   string
	closed bool
}

func (b *fileBody) close() error {
	if b.closed || b.f == nil {
		return nil
	}
	b.closed = true
	return b.f.Close()
}

// FileNew wraps an open file. The file is closed when the object is
// collected.
func (vm *VM) FileNew(f *os.File) VALUE {
	return vm.newobj(vm.global.cFile, TFile, &fileBody{f: f, path: f.Name()})
}

// FileOpen opens path and wraps it
func (vm *VM) FileOpen(path string, flag int, perm os.FileMode) VALUE {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		vm.Raise(vm.global.eSystemCallError, "%s", err.Error())
	}
	return vm.FileNew(f)
}

func (vm *VM) fileBody(v VALUE) *fileBody {
	if vm.BuiltinType(v) != TFile {
		vm.Raise(vm.global.eTypeError, "no implicit conversion of %s into File", vm.builtinClassName(v))
	}
	return vm.slot(v).body.(*fileBody)
}

// FileGet returns the open *os.File, raising IOError when closed
func (vm *VM) FileGet(v VALUE) *os.File {
	b := vm.fileBody(v)
	if b.closed {
		vm.Raise(vm.global.eIOError, "closed stream")
	}
	return b.f
}

// FilePath returns the path the file was opened with
func (vm *VM) FilePath(v VALUE) string { return vm.fileBody(v).path }

// FileClosed reports whether the file was closed
func (vm *VM) FileClosed(v VALUE) bool { return vm.fileBody(v).closed }

// FileClose closes the file, raising on error
func (vm *VM) FileClose(v VALUE) {
	if err := vm.fileBody(v).close(); err != nil {
		vm.Raise(vm.global.eIOError, "%s", err.Error())
	}
}

func (vm *VM) initFile() {
	c := vm.global.cFile
	vm.DefineMethod(c, "path", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.FilePath(self))
	}, 0)
	vm.DefineMethod(c, "close", func(vm *VM, self VALUE, args []VALUE) VALUE {
		vm.FileClose(self)
		return Qnil
	}, 0)
	vm.DefineMethod(c, "closed?", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(vm.FileClosed(self))
	}, 0)
	vm.DefineMethod(c, "fileno", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Int2Fix(int64(vm.FileGet(self).Fd()))
	}, 0)
	vm.DefineMethod(c, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		s := "#<File:" + vm.FilePath(self)
		if vm.FileClosed(self) {
			s += " (closed)"
		}
		return vm.StrNew(s + ">")
	}, 0)
	vm.DefineMethod(c, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew("#<File:" + strconv.Quote(vm.FilePath(self)) + ">")
	}, 0)
}
