// Package local implements the host evidence collectors. Each one wraps a
// command invocation and returns its combined output verbatim.
package local

import (
	"bytes"
	"context"
	"os"

	"github.com/cockroachdb/errors"

	"audit-sentry/internal/collector"
)

// Register adds every local collector to the registry.
func Register(reg *collector.Registry) error {
	for _, e := range builtin() {
		if err := reg.Register(e.Spec, e.Run); err != nil {
			return err
		}
	}
	return nil
}

func builtin() []collector.Entry {
	return []collector.Entry{
		text("uname", unameCollector),
		text("processes", processesCollector),
		text("crontab", crontabCollector),
		text("packages", packagesCollector),
		text("disk_usage", diskUsageCollector),
		text("network", networkCollector),
		text("os_release", osReleaseCollector),
	}
}

func text(name string, fn collector.Callable) collector.Entry {
	return collector.Entry{
		Spec: collector.Spec{Name: name, Category: collector.CategoryLocal, Kind: collector.KindText},
		Run:  fn,
	}
}

func unameCollector(ctx context.Context) (collector.Payload, error) {
	out, err := runCmd(ctx, "uname", "-a")
	if err != nil {
		return collector.Payload{}, errors.Wrapf(err, "uname -a: %s", bytes.TrimSpace(out))
	}
	return collector.Payload{Text: out}, nil
}

func processesCollector(ctx context.Context) (collector.Payload, error) {
	out, err := runCmd(ctx, "ps", "aux")
	if err != nil {
		return collector.Payload{}, errors.Wrapf(err, "ps aux: %s", bytes.TrimSpace(out))
	}
	return collector.Payload{Text: out}, nil
}

func crontabCollector(ctx context.Context) (collector.Payload, error) {
	out, err := runCmd(ctx, "crontab", "-l")
	if err != nil {
		// crontab exits non-zero when the invoking user has no crontab;
		// an empty crontab is still evidence.
		if bytes.Contains(out, []byte("no crontab")) {
			return collector.Payload{Text: out}, nil
		}
		return collector.Payload{}, errors.Wrapf(err, "crontab -l: %s", bytes.TrimSpace(out))
	}
	return collector.Payload{Text: out}, nil
}

func packagesCollector(ctx context.Context) (collector.Payload, error) {
	out, err := runFirst(ctx, []candidate{
		{name: "dpkg-query", args: []string{"-W", "-f", "${Package} ${Version}\n"}},
		{name: "rpm", args: []string{"-qa"}},
		{name: "apk", args: []string{"info", "-v"}},
	})
	if err != nil {
		return collector.Payload{}, errors.Wrap(err, "list installed packages")
	}
	return collector.Payload{Text: out}, nil
}

func diskUsageCollector(ctx context.Context) (collector.Payload, error) {
	out, err := runCmd(ctx, "df", "-h")
	if err != nil {
		return collector.Payload{}, errors.Wrapf(err, "df -h: %s", bytes.TrimSpace(out))
	}
	return collector.Payload{Text: out}, nil
}

func networkCollector(ctx context.Context) (collector.Payload, error) {
	cands := []candidate{
		{name: "ss", args: []string{"-tulpen"}},
		{name: "netstat", args: []string{"-tulpen"}},
		{name: "ip", args: []string{"addr"}},
	}
	// Unlike packages, every available tool contributes a section here, so
	// this walks the whole chain instead of stopping at the first success.
	var buf bytes.Buffer
	for _, cand := range cands {
		out, err := runCmd(ctx, cand.name, cand.args...)
		if err != nil {
			if ctx.Err() != nil {
				return collector.Payload{}, ctx.Err()
			}
			continue
		}
		buf.WriteString("$ " + cand.name + "\n")
		buf.Write(out)
		buf.WriteString("\n")
	}
	if buf.Len() == 0 {
		return collector.Payload{}, errors.New("no network inspection command succeeded")
	}
	return collector.Payload{Text: buf.Bytes()}, nil
}

func osReleaseCollector(ctx context.Context) (collector.Payload, error) {
	_ = ctx

	paths := []string{"/etc/os-release", "/usr/lib/os-release"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			return collector.Payload{Text: data}, nil
		}
	}
	return collector.Payload{}, errors.Wrap(err, "read os-release")
}
