// Package bytecode provides immutable representations of a method's
// control-flow graph.
//
// This package defines the output of the block builder: pure data structures
// that describe disassembled instructions, catch regions and the basic blocks
// they are partitioned into. These types are created once per build and
// can be shared safely across goroutines.
//
// # Key Types
//
//   - [Instruction]: One disassembled instruction (value type)
//   - [CatchKey]: A handler key, either an exception type or the wildcard
//   - [CatchRegion]: A try range with its ordered handlers (value type)
//   - [Block]: A basic block with resolved successors and catches
//   - [Function]: The block arena, including func_entry and func_exit
//
// # Immutability Guarantees
//
// Block and Function have no mutation methods and only unexported fields.
// Constructors copy input slices, and collections are exposed through
// index-based accessors:
//
//	for i := 0; i < fn.BlockCount(); i++ {
//	    b := fn.BlockAt(bytecode.BlockID(i))
//	    for j := 0; j < b.SuccessorCount(); j++ {
//	        e := b.SuccessorAt(j)
//	        fmt.Println(b.Name(), e.Label, fn.BlockAt(e.Target).Name())
//	    }
//	}
//
// Edges refer to blocks by BlockID rather than by pointer, so the cyclic
// graph is plain data.
package bytecode
