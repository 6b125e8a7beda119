package secrets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"api-poller/core/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotFound is returned when the secret does not exist.
	ErrNotFound = errors.New("secret not found")
	// ErrEmpty is returned when the secret exists but holds no string value.
	ErrEmpty = errors.New("secret is empty")
)

const resourceNotFound = "ResourceNotFoundException"

// ManagerAPI is the subset of the Secrets Manager client used here.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Credentials are the data source credentials of one client.
type Credentials struct {
	Key    string
	Secret string
}

type entry struct {
	value   string
	expires time.Time
}

// Store reads secrets with a TTL cache in front of the API.
type Store struct {
	api    ManagerAPI
	prefix string
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
	sf      singleflight.Group
}

// NewStore loads the AWS configuration and returns a Store for cfg.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewStoreWithAPI(api, cfg), nil
}

// NewStoreWithAPI returns a Store backed by api.
func NewStoreWithAPI(api ManagerAPI, cfg Config) *Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "oho"
	}
	return &Store{
		api:     api,
		prefix:  prefix,
		ttl:     cfg.CacheTTL,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Name returns the secret name of a client credential part ("key" or "secret").
func (s *Store) Name(env, clientID, part string) string {
	return fmt.Sprintf("%s-%s-connector-%s-api-%s", s.prefix, env, clientID, part)
}

// Get returns the string value of the named secret.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	if v, ok := s.cached(name); ok {
		return v, nil
	}

	v, err, _ := s.sf.Do(name, func() (any, error) {
		if v, ok := s.cached(name); ok {
			return v, nil
		}

		value, err := s.fetch(ctx, name)
		if err != nil {
			return "", err
		}

		if s.ttl > 0 {
			s.mu.Lock()
			s.entries[name] = entry{value: value, expires: s.now().Add(s.ttl)}
			s.mu.Unlock()
		}
		return value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Credentials fetches the key of a client and, when withSecret is set, its
// secret as well.
func (s *Store) Credentials(ctx context.Context, env, clientID string, withSecret bool) (Credentials, error) {
	key, err := s.Get(ctx, s.Name(env, clientID, "key"))
	if err != nil {
		return Credentials{}, err
	}
	creds := Credentials{Key: key}
	if !withSecret {
		return creds, nil
	}

	creds.Secret, err = s.Get(ctx, s.Name(env, clientID, "secret"))
	if err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Forget drops the cached key and secret of a client so the next
// Credentials call reads them again.
func (s *Store) Forget(env, clientID string) {
	s.mu.Lock()
	delete(s.entries, s.Name(env, clientID, "key"))
	delete(s.entries, s.Name(env, clientID, "secret"))
	s.mu.Unlock()
}

func (s *Store) cached(name string) (string, bool) {
	if s.ttl <= 0 {
		return "", false
	}
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expires) {
		return "", false
	}
	return e.value, true
}

func (s *Store) fetch(ctx context.Context, name string) (string, error) {
	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == resourceNotFound {
			return "", apperr.Collaborator("get secret "+name, ErrNotFound)
		}
		return "", apperr.Collaborator("get secret "+name, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return "", apperr.Collaborator("get secret "+name, ErrEmpty)
	}
	return *out.SecretString, nil
}
