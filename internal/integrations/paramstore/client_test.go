package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	lastIn *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func paramOut(value string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr(value), Type: types.ParameterTypeSecureString,
	}}
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: paramOut("secret")}
	client, err := New(api, "/faqbot/prod")
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "secret", v)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api, "/faqbot/prod")
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_ApiError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	client, err := New(api, "/faqbot/prod")
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.ErrorContains(t, err, "boom")
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{}, "/faqbot/prod")
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestSlackWebhookURL_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: paramOut(" https://hooks.slack.com/services/T0/B0/x \n")}
	client, err := New(api, "/faqbot/prod/")
	require.NoError(t, err)

	url, err := client.SlackWebhookURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://hooks.slack.com/services/T0/B0/x", url)
	require.Equal(t, "/faqbot/prod/slack-webhook-url", *api.lastIn.Name)
}

func TestSlackWebhookURL_NotConfigured(t *testing.T) {
	api := &fakeAPI{getErr: &types.ParameterNotFound{}}
	client, err := New(api, "/faqbot/prod")
	require.NoError(t, err)

	url, err := client.SlackWebhookURL(context.Background())
	require.NoError(t, err)
	require.Empty(t, url)
}

func TestSlackWebhookURL_OtherErrorsSurface(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("throttled")}
	client, err := New(api, "/faqbot/prod")
	require.NoError(t, err)

	_, err = client.SlackWebhookURL(context.Background())
	require.Error(t, err)
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil, "/faqbot/prod")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}
