//go:build !unix

package provision

// glibc only builds on unix hosts; elsewhere the lock is a no-op.
type fileLock struct{}

func lockFile(string) (*fileLock, error) { return &fileLock{}, nil }

func (*fileLock) Unlock() error { return nil }
