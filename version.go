package crb

// Version of the binding
const Version = "0.1.0"

// RubyVersion is the Ruby language version the VM follows
const RubyVersion = "3.3"

// Description returns the version banner
func Description() string {
	return "crb " + Version + " (ruby " + RubyVersion + " compatible core)"
}
