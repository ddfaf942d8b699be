package crb

// Errorf returns a synthesized error of exception class c, so a native
// method can fail with a class defined at runtime
func (c RClass) Errorf(format string, args ...any) *Error {
	return NewError(c.Name(), format, args...)
}

// NewInstance is New that panics on error
func (c RClass) NewInstance(args ...any) Value {
	v, err := c.New(args...)
	if err != nil {
		panic(err)
	}
	return v
}

// MethodDefined reports whether instances of c respond to name
func (c RClass) MethodDefined(name string) bool {
	return c.st.vm.MethodDefined(c.raw(), c.st.vm.Intern(name))
}
