package paramstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeSSM answers GetParameters from a fixed set of values.
type fakeSSM struct {
	values map[string]string
	err    error
	calls  [][]string
}

func (f *fakeSSM) GetParameters(_ context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	f.calls = append(f.calls, in.Names)
	if f.err != nil {
		return nil, f.err
	}
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("decryption not requested")
	}
	out := &ssm.GetParametersOutput{}
	for _, n := range in.Names {
		v, ok := f.values[n]
		if !ok {
			out.InvalidParameters = append(out.InvalidParameters, n)
			continue
		}
		out.Parameters = append(out.Parameters, types.Parameter{Name: aws.String(n), Value: aws.String(v), Type: types.ParameterTypeSecureString})
	}
	return out, nil
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

func TestGetParameter_CachesValues(t *testing.T) {
	api := &fakeSSM{values: map[string]string{"/autodraft/openai_api_key": "sk-1"}}
	c, err := New(api)
	require.NoError(t, err)

	for range 3 {
		v, err := c.GetParameter(context.Background(), " /autodraft/openai_api_key ")
		require.NoError(t, err)
		require.Equal(t, "sk-1", v)
	}
	require.Len(t, api.calls, 1)
}

func TestLookup_BatchesAndMergesCache(t *testing.T) {
	values := map[string]string{}
	var names []string
	for i := range 12 {
		n := fmt.Sprintf("/p/%02d", i)
		values[n] = fmt.Sprintf("v%d", i)
		names = append(names, n)
	}
	api := &fakeSSM{values: values}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "/p/00")
	require.NoError(t, err)

	got, err := c.Lookup(context.Background(), names...)
	require.NoError(t, err)
	require.Equal(t, values, got)
	require.Len(t, api.calls, 3)
	require.Len(t, api.calls[1], 10)
	require.Len(t, api.calls[2], 1)
}

func TestLookup_NotFound(t *testing.T) {
	c, err := New(&fakeSSM{values: map[string]string{"/a": "1"}})
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "/a", "/autodraft/wp_password")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorContains(t, err, "/autodraft/wp_password")
}

func TestLookup_APIError(t *testing.T) {
	c, err := New(&fakeSSM{err: errors.New("boom")})
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "/a")
	require.ErrorContains(t, err, "boom")
}

func TestLookup_EmptyName(t *testing.T) {
	api := &fakeSSM{}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "/a", "  ")
	require.ErrorContains(t, err, "required")
	require.Empty(t, api.calls)
}

func TestLookup_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "/a")
	require.ErrorContains(t, err, "not initialized")
}
