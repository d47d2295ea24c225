// Package kernel observes target-related kernel state: which modules
// are loaded or loadable, which fabric drivers are registered with
// the target core, and where configfs lives. All probes are
// read-only; loading modules and mounting filesystems is left to the
// administrator.
package kernel

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sigreer/targetgod/cache"
)

const (
	procModules = "/proc/modules"
	modulesRoot = "/lib/modules"
)

// ModuleLoaded reports whether the named kernel module is currently
// loaded.
func ModuleLoaded(name string) bool {
	data, err := os.ReadFile(procModules)
	if err != nil {
		return false
	}
	return slices.Contains(parseLoadedModules(data), name)
}

func parseLoadedModules(data []byte) []string {
	var modules []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			modules = append(modules, fields[0])
		}
	}
	return modules
}

// ModuleAvailable reports whether depmod knows the named module, so a
// fabric's module could be loaded even though it is not yet. The dep
// index only changes on kernel package operations, so the parsed set
// is cached.
func ModuleAvailable(name string) bool {
	return slices.Contains(availableModules(), name)
}

func availableModules() []string {
	c := cache.Global()
	cacheKey := "kernel:modules.dep"

	if cached := c.Get(cacheKey); cached != nil {
		return cached.([]string)
	}

	release, err := kernelRelease()
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(modulesRoot, release, "modules.dep"))
	if err != nil {
		return nil
	}

	modules := parseModulesDep(data)
	c.SetSlow(cacheKey, modules)
	return modules
}

// parseModulesDep extracts module names from depmod output: one line
// per module, "path/to/name.ko[.compression]: deps...".
func parseModulesDep(data []byte) []string {
	var modules []string
	for _, line := range strings.Split(string(data), "\n") {
		path, _, _ := strings.Cut(line, ":")
		base := filepath.Base(strings.TrimSpace(path))
		name, _, _ := strings.Cut(base, ".")
		if name == "" {
			continue
		}
		modules = append(modules, name)
	}
	return modules
}

func kernelRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Release[:]), nil
}
