// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the entrypoint helper shared by the
// timeline binaries. Every main is a one-liner around a run function
// that returns an error:
//
//	func main() {
//		process.Run(func() error { return run(os.Args[1:]) })
//	}
//
// Run reports a failure as "error: ..." on stderr, where the
// structured logger may not exist yet, and exits with status 1 or the
// status the error asks for through an ExitCode method.
package process
