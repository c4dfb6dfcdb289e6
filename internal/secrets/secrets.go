// Package secrets resolves secret references to their values.
//
// Config values may be supplied either as literals or as SSM references of
// the form "ssm://parameter-name". References are resolved once at startup
// with decryption enabled, so SecureString parameters work out of the box.
package secrets

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/rushcms/rush-web/internal/log"
	"github.com/rushcms/rush-web/internal/xerrors"
)

const ssmScheme = "ssm://"

// ParameterGetter is the slice of the SSM API the resolver needs.
// *ssm.Client satisfies it.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type Resolver struct {
	client ParameterGetter
	logger log.Logger
}

type Options struct {
	// Client overrides the SSM client, used by tests. When nil a client is
	// built from the default AWS config.
	Client ParameterGetter
	Logger log.Logger
}

func NewResolver(ctx context.Context, opts Options) (*Resolver, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	client := opts.Client
	if client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, xerrors.Wrap(err, "load AWS config")
		}
		client = ssm.NewFromConfig(awsCfg)
	}
	return &Resolver{client: client, logger: opts.Logger}, nil
}

// IsRef reports whether the value is an SSM reference rather than a literal.
func IsRef(v string) bool {
	return strings.HasPrefix(v, ssmScheme)
}

// Resolve returns the secret value for v. Literals pass through unchanged;
// "ssm://name" references are fetched with decryption.
func (r *Resolver) Resolve(ctx context.Context, v string) (string, error) {
	if !IsRef(v) {
		return v, nil
	}

	name := strings.TrimPrefix(v, ssmScheme)
	if name == "" {
		return "", xerrors.New("empty SSM parameter name")
	}

	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", name)
	}

	val := strings.TrimSpace(*out.Parameter.Value)
	if val == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", name)
	}

	r.logger.Info(ctx, "resolved secret from SSM", "parameter", name)
	return val, nil
}

// ResolveAll resolves every entry in place. Keys are config field names used
// only for error context.
func (r *Resolver) ResolveAll(ctx context.Context, refs map[string]*string) error {
	for key, v := range refs {
		if v == nil {
			continue
		}
		resolved, err := r.Resolve(ctx, *v)
		if err != nil {
			return xerrors.Wrapf(err, "resolve %s", key)
		}
		*v = resolved
	}
	return nil
}
