package run

import (
	"context"
	"os"
	"os/user"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// Metadata is the env_metadata.json record. Capture is best-effort: fields
// that cannot be determined stay empty and CaptureError notes why.
type Metadata struct {
	Hostname        string    `json:"hostname"`
	OS              string    `json:"os"`
	Platform        string    `json:"platform,omitempty"`
	PlatformVersion string    `json:"platform_version,omitempty"`
	KernelVersion   string    `json:"kernel_version,omitempty"`
	GoVersion       string    `json:"go_version"`
	User            string    `json:"user,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	CaptureError    string    `json:"capture_error,omitempty"`
}

func captureMetadata(ctx context.Context, startedAt time.Time) Metadata {
	meta := Metadata{
		OS:        runtime.GOOS,
		GoVersion: runtime.Version(),
		StartedAt: startedAt,
	}
	if hostname, err := os.Hostname(); err == nil {
		meta.Hostname = hostname
	}
	if u, err := user.Current(); err == nil {
		meta.User = u.Username
	}

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		meta.CaptureError = err.Error()
		return meta
	}
	meta.Platform = info.Platform
	meta.PlatformVersion = info.PlatformVersion
	meta.KernelVersion = info.KernelVersion
	return meta
}

// Environment flattens the metadata into the summary document's
// environment map.
func (m Metadata) Environment() map[string]string {
	env := map[string]string{
		"os":         m.OS,
		"go_version": m.GoVersion,
	}
	if m.Hostname != "" {
		env["hostname"] = m.Hostname
	}
	if m.Platform != "" {
		env["platform"] = m.Platform
	}
	if m.PlatformVersion != "" {
		env["platform_version"] = m.PlatformVersion
	}
	if m.KernelVersion != "" {
		env["kernel_version"] = m.KernelVersion
	}
	if m.User != "" {
		env["user"] = m.User
	}
	return env
}
