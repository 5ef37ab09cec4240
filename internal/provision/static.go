package provision

import (
	"context"
	"fmt"
	"os"

	"symverhdr/internal/release"
)

// StaticProvisioner serves prebuilt install trees. It never builds anything.
type StaticProvisioner struct {
	Roots map[release.Release]string
}

// Provision returns the configured root for rel. arch is ignored: the caller
// is expected to supply trees built for the requested architecture.
func (s StaticProvisioner) Provision(_ context.Context, rel release.Release, arch Arch) (string, error) {
	root, ok := s.Roots[rel]
	if !ok {
		return "", fail(rel, arch, "lookup", fmt.Errorf("no install tree for %s", rel))
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fail(rel, arch, "lookup", err)
	}
	if !info.IsDir() {
		return "", fail(rel, arch, "lookup", fmt.Errorf("%s is not a directory", root))
	}
	return root, nil
}
