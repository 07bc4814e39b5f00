package secrets

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretValueGetter is the part of the Secrets Manager API used here.
type secretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Client reads secrets from AWS Secrets Manager and caches them for the
// lifetime of the process.
type Client struct {
	api   secretValueGetter
	cache map[string]string
	mu    sync.RWMutex
}

// NewClient loads the default AWS credential chain for region.
func NewClient(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return newClient(secretsmanager.NewFromConfig(cfg)), nil
}

func newClient(api secretValueGetter) *Client {
	return &Client{
		api:   api,
		cache: make(map[string]string),
	}
}

// GetSecret returns the string value of the secret name.
func (c *Client) GetSecret(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	if v, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	out, err := c.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	c.mu.Lock()
	c.cache[name] = *out.SecretString
	c.mu.Unlock()

	return *out.SecretString, nil
}

// ResolveTransactionKey returns the secret named secretID when set, otherwise
// the literal key. A nil client with a secretID is an error.
func ResolveTransactionKey(ctx context.Context, c *Client, secretID, literal string) (string, error) {
	if secretID == "" {
		return literal, nil
	}
	if c == nil {
		return "", fmt.Errorf("secret %s requested without a secrets client", secretID)
	}
	return c.GetSecret(ctx, secretID)
}
