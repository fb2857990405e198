// Package fs provides the filesystem abstraction used by the local blob store.
//
//   - [FileSystem]: open, stat, rename, remove and directory operations
//   - [LocalFS]: production implementation over the os package
//   - [FaultyFS]: test wrapper that injects I/O failures per path pattern
//
// Production code uses fs.Default. Tests wrap it:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("e1_", fs.Fault{FailOnRead: true})
//
// Operations take no context.Context: local syscalls are not interruptible, and
// remote backends live behind blobstore instead.
package fs
