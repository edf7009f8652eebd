// Package paramstore retrieves API tokens (eBird, Telegram) from AWS SSM
// Parameter Store for deployments that keep secrets out of the environment.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Names of the bot's secret parameters under the deployment prefix.
const (
	// TelegramTokenName holds the Bot API token used for long polling.
	TelegramTokenName = "telegram-bot-token"
	// EBirdTokenName holds the eBird API token sent on every data request.
	EBirdTokenName = "ebird-api-token"
)

// TokenPath joins a deployment prefix and a token name into a full parameter
// path, tolerating a trailing slash on the prefix.
func TokenPath(prefix, name string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), "/") + "/" + name
}

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies it.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface consumed by the API clients. They depend on this
// rather than the concrete *Client so they stay testable without AWS calls.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// GetParameter fetches one parameter value, decrypting SecureString values.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}
