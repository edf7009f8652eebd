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
	getOut  *ssm.GetParameterOutput
	getErr  error
	lastIn  *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("/birdbot/ebird-api-token"), Value: strPtr("tok-123"),
	}}}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), "/birdbot/ebird-api-token")
	require.NoError(t, err)
	require.Equal(t, "tok-123", v)
	require.NotNil(t, api.lastIn.WithDecryption)
	require.True(t, *api.lastIn.WithDecryption, "SecureString tokens must be decrypted")
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api)
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_APIError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	client, err := New(api)
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
}

func TestTokenPath(t *testing.T) {
	require.Equal(t, "/birdbot/ebird-api-token", TokenPath("/birdbot", EBirdTokenName))
	require.Equal(t, "/birdbot/telegram-bot-token", TokenPath("/birdbot/", TelegramTokenName))
	require.Equal(t, "/prod/birdbot/ebird-api-token", TokenPath(" /prod/birdbot ", EBirdTokenName))
}

func TestGetParameter_EmptyName(t *testing.T) {
	api := &fakeAPI{}
	client, err := New(api)
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}
