// Package paramstore reads deployment secrets from AWS SSM Parameter
// Store. The only secret the service carries is the Slack webhook URL.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// slackWebhookKey is the parameter name under the deployment prefix.
const slackWebhookKey = "slack-webhook-url"

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api    ssmAPI
	prefix string
}

// New creates a Client reading parameters under the given path prefix,
// e.g. "/faqbot/prod".
func New(api ssmAPI, prefix string) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api, prefix: strings.TrimRight(prefix, "/")}, nil
}

// GetParameter fetches one decrypted parameter by full name.
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

// SlackWebhookURL returns the configured webhook URL, or empty when the
// parameter does not exist. An absent webhook just means notifications
// are switched off for this deployment.
func (c *Client) SlackWebhookURL(ctx context.Context) (string, error) {
	url, err := c.GetParameter(ctx, c.prefix+"/"+slackWebhookKey)
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(url), nil
}
