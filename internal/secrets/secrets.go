// Package secrets pushes values from a .env file to AWS Secrets Manager.
//
// Each Secret maps one environment variable to one plain string secret.
// Existing secrets get a new version; missing secrets are created.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/internal/sitemeta"
)

// DefaultConfigDir is the directory under the home directory searched for
// a global .env file.
const DefaultConfigDir = ".buildinginthecloud"

// ErrNoEnvFile is returned when no .env file is found.
var ErrNoEnvFile = errors.New("no .env file found")

// Secret maps an environment variable to a Secrets Manager secret.
type Secret struct {
	Name        string
	Description string
	EnvKey      string
}

// GitHubToken is the token Amplify uses to read the repository.
var GitHubToken = Secret{
	Name:        sitemeta.GitHubTokenSecret,
	Description: "GitHub token used by Amplify to access the website repository",
	EnvKey:      "GITHUB_TOKEN",
}

// EnvFileCandidates returns the .env locations searched in order.
func EnvFileCandidates() []string {
	candidates := []string{".env", filepath.Join("..", ".env")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigDir, ".env"))
	}
	return candidates
}

// FindEnvFile returns the first candidate that exists.
func FindEnvFile(candidates []string) (string, error) {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in: %s", ErrNoEnvFile, strings.Join(candidates, ", "))
}

// ReadEnvFile parses a .env file.
func ReadEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parsing env file %s: %w", path, err)
	}
	return env, nil
}

// Lookup returns the value of s in env. Empty values and placeholders
// starting with "your-" count as missing.
func Lookup(env map[string]string, s Secret) (string, bool) {
	v := strings.TrimSpace(env[s.EnvKey])
	if v == "" || strings.HasPrefix(v, "your-") {
		return "", false
	}
	return v, true
}

// Mask hides all but the first 8 characters of value.
func Mask(value string) string {
	const visible = 8
	if len(value) <= visible {
		return "***"
	}
	return value[:visible] + "***"
}

// API is the part of Secrets Manager the Pusher uses.
type API interface {
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// Outcome is what Push did with a secret.
type Outcome string

const (
	Created Outcome = "created"
	Updated Outcome = "updated"
	Skipped Outcome = "skipped"
	DryRun  Outcome = "dry-run"
)

// Pusher writes secrets. A Pusher with a nil client only prints what it
// would do.
type Pusher struct {
	client API
	out    io.Writer
	logger *zap.Logger
}

// NewPusher returns a Pusher. Pass a nil client for a dry run.
func NewPusher(client API, out io.Writer, logger *zap.Logger) *Pusher {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pusher{client: client, out: out, logger: logger}
}

// Push stores the value of s from env.
func (p *Pusher) Push(ctx context.Context, env map[string]string, s Secret) (Outcome, error) {
	value, ok := Lookup(env, s)
	if !ok {
		fmt.Fprintf(p.out, "Skipping %s (%s not set)\n", s.Name, s.EnvKey)
		return Skipped, nil
	}

	fmt.Fprintf(p.out, "Creating/updating: %s (from %s)\n", s.Name, s.EnvKey)
	if p.client == nil {
		fmt.Fprintf(p.out, "  [DRY RUN] Would store: %s\n", Mask(value))
		return DryRun, nil
	}

	_, err := p.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(s.Name),
		SecretString: aws.String(value),
	})
	if err == nil {
		p.logger.Debug("secret updated", zap.String("secret", s.Name))
		fmt.Fprintf(p.out, "  Updated existing secret\n")
		return Updated, nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return "", fmt.Errorf("updating secret %s: %w", s.Name, err)
	}

	_, err = p.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(s.Name),
		Description:  aws.String(s.Description),
		SecretString: aws.String(value),
	})
	if err != nil {
		return "", fmt.Errorf("creating secret %s: %w", s.Name, err)
	}
	p.logger.Debug("secret created", zap.String("secret", s.Name))
	fmt.Fprintf(p.out, "  Created new secret\n")
	return Created, nil
}
