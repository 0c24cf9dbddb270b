package camera

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	sysVideoDir = "/sys/class/video4linux"
	devDir      = "/dev"
)

// Device describes a V4L2 capture device.
type Device struct {
	Path       string
	Name       string
	Accessible bool
}

// ListDevices enumerates the host's video4linux devices. A host without
// the sysfs class directory has no devices.
func ListDevices() ([]Device, error) {
	return listDevicesIn(sysVideoDir, devDir)
}

func listDevicesIn(sysDir, dev string) ([]Device, error) {
	entries, err := os.ReadDir(sysDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list video devices: %w", err)
	}

	devices := make([]Device, 0, len(entries))
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "video") {
			continue
		}
		path := filepath.Join(dev, entry.Name())
		name := entry.Name()
		if data, err := os.ReadFile(filepath.Join(sysDir, entry.Name(), "name")); err == nil {
			if label := strings.TrimSpace(string(data)); label != "" {
				name = label
			}
		}
		devices = append(devices, Device{
			Path:       path,
			Name:       name,
			Accessible: unix.Access(path, unix.R_OK|unix.W_OK) == nil,
		})
	}
	return devices, nil
}

// SortByPreference orders devices so labels containing preferred
// (case-insensitive) come first; ties keep path order.
func SortByPreference(devices []Device, preferred string) []Device {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	sorted := slices.Clone(devices)
	rank := func(d Device) int {
		if preferred != "" && strings.Contains(strings.ToLower(d.Name), preferred) {
			return 0
		}
		return 1
	}
	slices.SortStableFunc(sorted, func(a, b Device) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	return sorted
}

// PickDevice returns explicit when set, otherwise the first accessible
// device in preference order.
func PickDevice(explicit, preferred string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	devices, err := ListDevices()
	if err != nil {
		return "", err
	}
	for _, d := range SortByPreference(devices, preferred) {
		if d.Accessible {
			return d.Path, nil
		}
	}
	return "", errors.New("no accessible camera found")
}
