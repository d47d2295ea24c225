package kernel

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CONFIGFS_MAGIC from include/uapi/linux/magic.h.
const configfsMagic = 0x62656570

const (
	configfsRoot = "/sys/kernel/config"
	targetDir    = "target"
	holdersDir   = "/sys/module/target_core_mod/holders"
)

// RegisteredDrivers lists the fabric drivers currently registered
// with the target core, by kernel module name. Empty when the core is
// not loaded.
func RegisteredDrivers() []string {
	return listHolders(holdersDir)
}

func listHolders(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// ConfigFSPath returns the target core's configfs directory after
// verifying that configfs is actually mounted at the usual place.
func ConfigFSPath() (string, error) {
	return configFSPath(configfsRoot)
}

func configFSPath(root string) (string, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return "", fmt.Errorf("configfs at %s: %w", root, err)
	}
	if st.Type != configfsMagic {
		return "", fmt.Errorf("%s is not a configfs mount", root)
	}
	return filepath.Join(root, targetDir), nil
}
