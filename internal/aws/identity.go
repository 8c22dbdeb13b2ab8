package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSAPI is the subset of the STS client used to report the caller
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// CallerIdentity is the AWS principal that secret references resolve as
type CallerIdentity struct {
	Account string
	Arn     string
	UserID  string
}

// GetCallerIdentity loads the SDK config with opts and asks STS who we are
func GetCallerIdentity(ctx context.Context, opts ...ClientOption) (*CallerIdentity, error) {
	cfg, err := LoadConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return CallerIdentityFrom(ctx, sts.NewFromConfig(cfg))
}

// CallerIdentityFrom queries an existing STS client
func CallerIdentityFrom(ctx context.Context, client STSAPI) (*CallerIdentity, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get caller identity: %w", err)
	}
	return &CallerIdentity{
		Account: deref(out.Account),
		Arn:     deref(out.Arn),
		UserID:  deref(out.UserId),
	}, nil
}

// UsesReferences reports whether any of values is a secret reference
func UsesReferences(values ...string) bool {
	for _, v := range values {
		if IsReference(v) {
			return true
		}
	}
	return false
}
