package generator

import (
	"bytes"
	"text/template"
)

// The static prelude shared by every generated package: the name
// resolution callback contract and the purego bridge the loader routines
// assign function pointers through.
var procTmpl = template.Must(template.New("proc").Parse(`import (
	"github.com/ebitengine/purego"
)

// NULL_HANDLE is the zero value of every handle type.
const NULL_HANDLE = 0

// GetProcAddrFunc resolves a command name against an instance or device
// handle, in the shape of vkGetInstanceProcAddr and vkGetDeviceProcAddr:
// it returns the entry point's address, or 0 when the runtime does not
// export it.
type GetProcAddrFunc func(parent uintptr, name string) uintptr

// register binds a C entry point to a typed Go function pointer. A zero
// address leaves the target nil.
func register(fptr any, addr uintptr) {
	if addr != 0 {
		purego.RegisterFunc(fptr, addr)
	}
}

// MakeVersion packs an API version the way VK_MAKE_VERSION does.
func MakeVersion(major, minor, patch uint32) uint32 {
	return major<<22 | minor<<12 | patch
}
`))

func (g *Generator) emitProc(buf *bytes.Buffer) error {
	return procTmpl.Execute(buf, nil)
}
