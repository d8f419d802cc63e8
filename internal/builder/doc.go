// Package builder defines the contract between a compiled model and a
// solver backend.
//
// A backend implements Emitter to receive variables, constraints and the
// objective, and Builder to solve and report values. Submit replays a
// compiled model into an Emitter in model order; Solve does the same and
// then runs the backend once, turning its status into a Solution or a
// typed BuilderError.
//
// Backends live outside the compiler: Recorder (in-memory, scripted), the
// LP file writer in internal/lpfile and the CBC runner in internal/cbc.
package builder
