package secret

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aganswers/drivesync/internal/core/domain"
)

type fakeSSMClient struct {
	params    map[string]string
	requested []string
	decrypted bool
}

func (f *fakeSSMClient) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	name := aws.ToString(in.Name)
	f.requested = append(f.requested, name)
	f.decrypted = aws.ToBool(in.WithDecryption)
	val, ok := f.params[name]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(val)}}, nil
}

func TestSSMResolver_GetSecret(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{"/drivesync/ingest-api-key": "k-123"}}
	r := NewSSMResolver(client)

	val, err := r.GetSecret(context.Background(), "/drivesync/ingest-api-key")

	require.NoError(t, err)
	assert.Equal(t, "k-123", val)
	assert.True(t, client.decrypted)
}

func TestSSMResolver_Missing(t *testing.T) {
	r := NewSSMResolver(&fakeSSMClient{})

	_, err := r.GetSecret(context.Background(), "/drivesync/nope")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "/drivesync/nope")
}

func TestSSMResolver_NilValue(t *testing.T) {
	r := NewSSMResolver(nilValueClient{})

	_, err := r.GetSecret(context.Background(), "/x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no value")
}

type nilValueClient struct{}

func (nilValueClient) GetParameter(context.Context, *ssm.GetParameterInput, ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{}}, nil
}

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"/drivesync/drive-token-encryption-key": "DRIVE_TOKEN_ENCRYPTION_KEY",
		"/a/b/google-client-secret":             "GOOGLE_CLIENT_SECRET",
		"plain":                                 "PLAIN",
	}
	for in, want := range tests {
		assert.Equal(t, want, EnvName(in), in)
	}
}

func TestEnvResolver(t *testing.T) {
	t.Setenv("INGEST_API_KEY", "from-env")
	r := NewEnvResolver()

	val, err := r.GetSecret(context.Background(), "/drivesync/ingest-api-key")
	require.NoError(t, err)
	assert.Equal(t, "from-env", val)

	_, err = r.GetSecret(context.Background(), "/drivesync/unset-thing")
	assert.Error(t, err)
}

func TestApply_FillsResolvedFields(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{
		"/prod/drive-token-encryption-key": "key",
		"/prod/ingest-api-key":             "api",
	}}
	s := domain.DefaultSettings()
	s.OAuth.ClientSecret = "from-file"

	err := Apply(context.Background(), NewSSMResolver(client), "/prod", &s)

	require.NoError(t, err)
	assert.Equal(t, "key", s.EncryptionKey)
	assert.Equal(t, "api", s.Ingest.APIKey)
	assert.Equal(t, "from-file", s.OAuth.ClientSecret)
	assert.Len(t, client.requested, 3)
}

func TestApply_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := domain.DefaultSettings()

	err := Apply(ctx, NewSSMResolver(&fakeSSMClient{}), "/p", &s)

	assert.ErrorIs(t, err, context.Canceled)
}
