// Package evidence persists collector outcomes into the run's output tree.
// Each outcome owns a disjoint file, so concurrent writes never contend.
package evidence

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"audit-sentry/internal/collector"
)

// ErrorRecord is the on-disk form of a failed collection attempt. Evidence
// of the attempt is preserved even when the collector produced nothing.
type ErrorRecord struct {
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Kind      string    `json:"kind"`
	Error     string    `json:"error"`
	Cause     string    `json:"cause,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Write persists one outcome under root and returns the path written.
//
//	ok + text       -> <category>/<name>.txt (verbatim)
//	ok + structured -> <category>/<name>.json (deterministic serialization)
//	failed          -> <category>/<name>.error.json
//
// Writing the same outcome twice produces a byte-identical file.
func Write(root string, o collector.Outcome) (string, error) {
	dir := filepath.Join(root, string(o.Spec.Category))

	if !o.OK() {
		rec := ErrorRecord{
			Name:      o.Spec.Name,
			Category:  string(o.Spec.Category),
			Kind:      string(o.Err.Kind),
			Error:     o.Err.Message,
			Cause:     o.Err.Cause,
			Timestamp: o.CompletedAt,
		}
		path := filepath.Join(dir, o.Spec.Name+".error.json")
		data, err := marshalStable(rec)
		if err != nil {
			return "", err
		}
		if err := WriteFileAtomic(path, data, 0o600); err != nil {
			return "", errors.Wrapf(err, "write %s", path)
		}
		return path, nil
	}

	switch o.Spec.Kind {
	case collector.KindText:
		path := filepath.Join(dir, o.Spec.Name+".txt")
		if err := WriteFileAtomic(path, o.Payload.Text, 0o600); err != nil {
			return "", errors.Wrapf(err, "write %s", path)
		}
		return path, nil
	case collector.KindStructured:
		path := filepath.Join(dir, o.Spec.Name+".json")
		data, err := marshalStable(o.Payload.Value)
		if err != nil {
			return "", errors.Wrapf(err, "serialize %s", o.Spec.Name)
		}
		if err := WriteFileAtomic(path, data, 0o600); err != nil {
			return "", errors.Wrapf(err, "write %s", path)
		}
		return path, nil
	default:
		return "", errors.Newf("unknown evidence kind: %q", o.Spec.Kind)
	}
}

// marshalStable serializes with indentation and a trailing newline.
// encoding/json sorts map keys and walks struct fields in declaration
// order, which keeps repeated serializations byte-identical.
func marshalStable(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// MarshalStable is the serialization used for every JSON document in the
// evidence tree.
func MarshalStable(v any) ([]byte, error) { return marshalStable(v) }
