// Package bytecode defines the compiled form of BAML programs: values and
// heap objects, the stack machine instruction set, functions with their
// debug metadata, and the program container shared by compiler and VM.
//
// Values are small tagged words. Everything larger lives in an append-only
// object pool and is referenced by ObjectIndex, so two values holding the
// same index alias one object.
//
// Jumps are relative to the jump instruction. Strip removes instructions
// (for example the VizEnter/VizExit markers) and remaps every jump so the
// remaining code behaves exactly as before.
package bytecode
