package malgo

import (
	"encoding/hex"
	"runtime"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/pendant-go/internal/errors"
)

// DeviceInfo describes a capture device
type DeviceInfo struct {
	Index     int
	Name      string
	ID        string
	IsDefault bool
}

// getBackendForPlatform returns the miniaudio backend for the host OS
func getBackendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, errors.Newf("unsupported operating system: %s", runtime.GOOS).
			Component("audiocore.sources").
			Category(errors.CategorySystem).
			Context("os", runtime.GOOS).
			Build()
	}
}

// initContext opens a miniaudio context on the platform backend
func initContext() (*malgo.AllocatedContext, error) {
	backend, err := getBackendForPlatform()
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryAudioSource).
			Context("operation", "init_context").
			Build()
	}
	return ctx, nil
}

// EnumerateDevices lists available capture devices
func EnumerateDevices() ([]DeviceInfo, error) {
	ctx, err := initContext()
	if err != nil {
		return nil, err
	}
	defer releaseContext(ctx)

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate_devices").
			Build()
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      infos[i].Name(),
			ID:        infos[i].ID.String(),
			IsDefault: infos[i].IsDefault == 1,
		})
	}
	return devices, nil
}

// findDevice resolves a configured device name. An empty name or "default"
// returns nil, which selects the system default device.
func findDevice(ctx *malgo.AllocatedContext, deviceName string) (*malgo.DeviceInfo, error) {
	if deviceName == "" || deviceName == "default" {
		return nil, nil
	}

	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate_devices").
			Build()
	}

	// Exact name or decoded hardware ID first
	for i := range devices {
		if devices[i].Name() == deviceName {
			return &devices[i], nil
		}
		if decodedID, err := hexToASCII(devices[i].ID.String()); err == nil && decodedID == deviceName {
			return &devices[i], nil
		}
	}

	for i := range devices {
		if strings.Contains(devices[i].Name(), deviceName) {
			return &devices[i], nil
		}
	}

	// Windows has no sysdefault alias, map it to the flagged default device
	if runtime.GOOS == "windows" && deviceName == "sysdefault" {
		for i := range devices {
			if devices[i].IsDefault == 1 {
				return &devices[i], nil
			}
		}
	}

	return nil, errors.Newf("no matching audio device found").
		Component("audiocore.sources").
		Category(errors.CategoryNotFound).
		Context("device_name", deviceName).
		Context("available_devices", len(devices)).
		Build()
}

// hexToASCII converts a hexadecimal string to an ASCII string
func hexToASCII(hexStr string) (string, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00"), nil
}
