package build

// Info describes the binary being executed. Values are injected by the linker.
type Info struct {
	Version string
	Commit  string
	Date    string
}

type Key struct{}

var InfoKey = Key{}
