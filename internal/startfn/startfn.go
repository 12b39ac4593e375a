// Package startfn synthesizes a module's start function by chaining the
// allocator's bootstrap call, global initializers, and any user-defined
// start function, per spec.md §4.8.
package startfn

import "github.com/ascwasm/asc/internal/ir"

// Init is one deferred global initializer: instructions that leave the
// global's value on the stack, to be followed by global.set GlobalIndex.
type Init struct {
	GlobalIndex uint32
	Body        []byte
}

// Synthesize builds and installs the module's start function.
//
// If allocatorInit is empty and inits is empty, the module's start is the
// user's start function directly (or no start at all, if userStart is
// nil) — spec.md §4.8's "if no initializers exist and a user start
// exists, set the user's start as the module start directly" case.
// Otherwise a synthetic void-returning function is created whose body
// runs allocatorInit, then every global initializer in order, then calls
// userStart if present, and that function becomes the module's start.
func Synthesize(mod *ir.Module, allocatorInit []byte, inits []Init, userStart *uint32) {
	if len(allocatorInit) == 0 && len(inits) == 0 {
		if userStart != nil {
			mod.SetStart(*userStart)
		}
		return
	}

	b := ir.NewBuilder()
	b.Append(allocatorInit)
	for _, init := range inits {
		b.Append(init.Body)
		b.GlobalSet(init.GlobalIndex)
	}
	if userStart != nil {
		b.Call(*userStart)
	}

	idx, fn := mod.AddFunction(ir.FunctionType{}, "start")
	fn.Body = b.Bytes()
	mod.SetStart(idx)
}
