// Package aws implements the AWS metadata collectors. Each collector is one
// opaque unit: a single API listing that either fully succeeds or fully
// fails for the configured profile and region.
package aws

import (
	"context"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"

	"audit-sentry/internal/collector"
)

// Options selects the AWS credentials and region used by every collector.
type Options struct {
	Profile string
	Region  string
}

// Register adds every AWS collector to the registry. The shared client
// configuration is resolved lazily on first use, so registration never
// touches the network.
func Register(reg *collector.Registry, opts Options) error {
	cf := &clientFactory{opts: opts}
	entries := []collector.Entry{
		structured("s3_buckets", cf.s3Buckets),
		structured("security_groups", cf.securityGroups),
		structured("ec2_instances", cf.ec2Instances),
		structured("iam_users", cf.iamUsers),
		structured("caller_identity", cf.callerIdentity),
	}
	for _, e := range entries {
		if err := reg.Register(e.Spec, e.Run); err != nil {
			return err
		}
	}
	return nil
}

func structured(name string, fn collector.Callable) collector.Entry {
	return collector.Entry{
		Spec: collector.Spec{Name: name, Category: collector.CategoryAWS, Kind: collector.KindStructured},
		Run:  fn,
	}
}

// clientFactory resolves the shared SDK configuration once and hands it to
// each collector. Safe for concurrent use.
type clientFactory struct {
	opts Options

	once sync.Once
	cfg  awssdk.Config
	err  error
}

func (cf *clientFactory) config(ctx context.Context) (awssdk.Config, error) {
	cf.once.Do(func() {
		loadOpts := []func(*awsconfig.LoadOptions) error{}
		if cf.opts.Profile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cf.opts.Profile))
		}
		if cf.opts.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cf.opts.Region))
		}
		cf.cfg, cf.err = awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if cf.err != nil {
			cf.err = errors.Wrap(cf.err, "load aws configuration")
		}
	})
	return cf.cfg, cf.err
}

// apiError flattens SDK errors into the short code+message form recorded in
// error evidence files.
func apiError(err error, op string) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return errors.Newf("%s: %s: %s", op, ae.ErrorCode(), ae.ErrorMessage())
	}
	return errors.Wrap(err, op)
}
