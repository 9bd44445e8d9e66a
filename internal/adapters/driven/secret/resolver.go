// Package secret resolves sensitive settings from the environment or
// from AWS Systems Manager Parameter Store.
package secret

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// Parameter names, relative to the configured prefix.
const (
	ParamEncryptionKey      = "drive-token-encryption-key"
	ParamGoogleClientSecret = "google-client-secret"
	ParamIngestAPIKey       = "ingest-api-key"
)

// SSMClient is the subset of *ssm.Client used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver retrieves secret values by parameter name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMResolver reads SecureString parameters from Parameter Store.
type SSMResolver struct {
	client SSMClient
}

// NewSSMResolver returns a Resolver backed by Parameter Store.
func NewSSMResolver(client SSMClient) *SSMResolver {
	return &SSMResolver{client: client}
}

// NewDefaultSSMResolver builds an SSM client from the ambient AWS configuration.
func NewDefaultSSMResolver(ctx context.Context) (*SSMResolver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", domain.ErrConfiguration, err)
	}
	return NewSSMResolver(ssm.NewFromConfig(cfg)), nil
}

// GetSecret fetches and decrypts a parameter.
func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver reads secrets from environment variables. The variable name
// is the last path segment upper-cased with hyphens turned into
// underscores, so "/drivesync/ingest-api-key" reads INGEST_API_KEY.
type EnvResolver struct {
	lookup func(string) (string, bool)
}

// NewEnvResolver returns a Resolver over the process environment.
func NewEnvResolver() *EnvResolver {
	return &EnvResolver{lookup: os.LookupEnv}
}

// GetSecret reads the variable derived from name.
func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := EnvName(name)
	val, ok := r.lookup(envName)
	if !ok || val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q) is not set", envName, name)
	}
	return val, nil
}

// EnvName maps a parameter path to its environment variable name.
func EnvName(name string) string {
	last := name[strings.LastIndex(name, "/")+1:]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}

// Apply fills the secret fields of s from r. Fields are only overwritten
// when the resolver has a value; a missing encryption key is left for
// Settings.Validate to report.
func Apply(ctx context.Context, r Resolver, prefix string, s *domain.Settings) error {
	targets := []struct {
		param string
		dst   *string
	}{
		{ParamEncryptionKey, &s.EncryptionKey},
		{ParamGoogleClientSecret, &s.OAuth.ClientSecret},
		{ParamIngestAPIKey, &s.Ingest.APIKey},
	}

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, err := r.GetSecret(ctx, path.Join(prefix, t.param))
		if err != nil {
			continue
		}
		*t.dst = val
	}
	return nil
}
