package paramstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSM rejects GetParameters calls naming more than ten parameters.
const maxBatch = 10

// ssmAPI is the part of *ssm.Client the store needs.
type ssmAPI interface {
	GetParameters(ctx context.Context, in *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// Client reads decrypted SecureString parameters below a common prefix.
type Client struct {
	api    ssmAPI
	prefix string
}

func New(api ssmAPI, prefix string) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New("paramstore: prefix is required")
	}
	return &Client{api: api, prefix: "/" + strings.Trim(prefix, "/")}, nil
}

// Name returns the full parameter name for key.
func (c *Client) Name(key string) string {
	return path.Join(c.prefix, key)
}

// Lookup fetches the given keys (relative to the prefix) and returns their
// values by key. Every key must exist and hold a non-empty value.
func (c *Client) Lookup(ctx context.Context, keys ...string) (map[string]string, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("paramstore: client not initialized")
	}
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	byName := make(map[string]string, len(keys))
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errors.New("paramstore: key is required")
		}
		name := c.Name(key)
		if _, dup := byName[name]; dup {
			continue
		}
		byName[name] = key
		names = append(names, name)
	}

	values := make(map[string]string, len(names))
	for start := 0; start < len(names); start += maxBatch {
		end := min(start+maxBatch, len(names))
		out, err := c.api.GetParameters(ctx, &ssm.GetParametersInput{
			Names:          names[start:end],
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("paramstore: get parameters: %w", err)
		}
		if out == nil {
			return nil, errors.New("paramstore: empty response")
		}
		if len(out.InvalidParameters) > 0 {
			return nil, fmt.Errorf("paramstore: parameters not found: %s", strings.Join(out.InvalidParameters, ", "))
		}
		for _, p := range out.Parameters {
			name := aws.ToString(p.Name)
			key, ok := byName[name]
			if !ok {
				continue
			}
			v := aws.ToString(p.Value)
			if v == "" {
				return nil, fmt.Errorf("paramstore: parameter %q missing value", name)
			}
			values[key] = v
		}
	}

	for name, key := range byName {
		if _, ok := values[key]; !ok {
			return nil, fmt.Errorf("paramstore: parameter %q missing value", name)
		}
	}
	return values, nil
}
