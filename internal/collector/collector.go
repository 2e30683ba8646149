package collector

import (
	"context"
	"time"
)

// Category places a collector in the evidence tree (local/ or aws/).
type Category string

const (
	CategoryLocal Category = "local"
	CategoryAWS   Category = "aws"
)

// Kind distinguishes verbatim command output from structured API results.
type Kind string

const (
	KindText       Kind = "text"
	KindStructured Kind = "structured"
)

// Spec identifies one collector. Name is unique within its category.
type Spec struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Kind     Kind     `json:"kind"`
}

// Payload carries a collector's raw output. Text is set for KindText,
// Value for KindStructured; Value must be JSON-marshalable.
type Payload struct {
	Text  []byte
	Value any
}

// Callable gathers one piece of evidence. Implementations may run
// subprocesses or call remote APIs and are expected to honor ctx.
type Callable func(ctx context.Context) (Payload, error)

// Entry pairs a spec with its callable.
type Entry struct {
	Spec Spec
	Run  Callable
}

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// ErrorKind classifies a failed outcome.
type ErrorKind string

const (
	ErrCollectorFailure ErrorKind = "collector_failure"
	ErrTimeout          ErrorKind = "timeout"
	ErrCancelled        ErrorKind = "cancelled"
)

// Failure describes why a collector did not produce evidence.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   string    `json:"cause,omitempty"`
}

// Outcome records the result of running one collector once. Payload is
// present iff Status is ok; Err is present iff Status is failed.
type Outcome struct {
	Spec        Spec
	Status      Status
	Payload     *Payload
	Err         *Failure
	Duration    time.Duration
	CompletedAt time.Time
}

// OK reports whether the collector produced evidence.
func (o Outcome) OK() bool { return o.Status == StatusOK }
