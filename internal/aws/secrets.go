package aws

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Secret reference prefixes accepted in credential fields
const (
	SSMPrefix            = "ssm:"
	SecretsManagerPrefix = "secretsmanager:"
)

// SSMAPI is the subset of the SSM client used for secret lookups
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SecretsManagerAPI is the subset of the Secrets Manager client used for secret lookups
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretResolver expands credential fields written as secret references.
// "ssm:/path" reads an SSM parameter with decryption, "secretsmanager:name"
// reads a Secrets Manager secret string. Other values pass through.
// SDK clients are created on first use.
type SecretResolver struct {
	opts []ClientOption

	once    sync.Once
	initErr error
	ssm     SSMAPI
	sm      SecretsManagerAPI
}

// NewSecretResolver creates a resolver that loads the SDK config lazily
func NewSecretResolver(opts ...ClientOption) *SecretResolver {
	return &SecretResolver{opts: opts}
}

// NewSecretResolverWithClients creates a resolver over existing clients
func NewSecretResolverWithClients(ssmClient SSMAPI, smClient SecretsManagerAPI) *SecretResolver {
	r := &SecretResolver{ssm: ssmClient, sm: smClient}
	r.once.Do(func() {})
	return r
}

// IsReference reports whether value is a secret reference
func IsReference(value string) bool {
	return strings.HasPrefix(value, SSMPrefix) || strings.HasPrefix(value, SecretsManagerPrefix)
}

// Resolve returns the secret a reference points at, or value unchanged
func (r *SecretResolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}

	r.once.Do(func() {
		cfg, err := LoadConfig(ctx, r.opts...)
		if err != nil {
			r.initErr = err
			return
		}
		r.ssm = ssm.NewFromConfig(cfg)
		r.sm = secretsmanager.NewFromConfig(cfg)
	})
	if r.initErr != nil {
		return "", r.initErr
	}

	if name, ok := strings.CutPrefix(value, SSMPrefix); ok {
		return r.getSSMParameter(ctx, name)
	}
	name, _ := strings.CutPrefix(value, SecretsManagerPrefix)
	return r.getSecretsManager(ctx, name)
}

func (r *SecretResolver) getSSMParameter(ctx context.Context, name string) (string, error) {
	output, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: boolPtr(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get SSM parameter %s: %w", name, err)
	}
	if output.Parameter == nil {
		return "", fmt.Errorf("SSM parameter %s has no value", name)
	}
	return deref(output.Parameter.Value), nil
}

func (r *SecretResolver) getSecretsManager(ctx context.Context, name string) (string, error) {
	output, err := r.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	return deref(output.SecretString), nil
}

func boolPtr(b bool) *bool { return &b }
