// Package publish uploads the exported website to the static hosting bucket
// and invalidates the CloudFront cache.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/buildinginthecloud/site/internal/awsenv"
)

// Stack outputs of the static hosting stack.
const (
	OutputBucket       = "WebsiteBucketName"
	OutputDistribution = "DistributionId"
)

const (
	// InvalidationPath invalidates every cached object.
	InvalidationPath = "/*"

	// DefaultPollInterval is the wait between invalidation status checks.
	DefaultPollInterval = 10 * time.Second

	// DefaultConcurrency bounds parallel uploads.
	DefaultConcurrency = 8

	// RevalidateCacheControl is sent for pages and feeds.
	RevalidateCacheControl = "public, max-age=0, must-revalidate"

	// ImmutableCacheControl is sent for every other asset.
	ImmutableCacheControl = "public, max-age=31536000, immutable"
)

// revalidated extensions are served with RevalidateCacheControl.
var revalidated = []string{".html", ".xml", ".txt", ".json", ".webmanifest"}

// fallbackTypes covers extensions missing from minimal mime tables.
var fallbackTypes = map[string]string{
	".html":        "text/html; charset=utf-8",
	".css":         "text/css; charset=utf-8",
	".js":          "text/javascript; charset=utf-8",
	".mjs":         "text/javascript; charset=utf-8",
	".json":        "application/json",
	".xml":         "application/xml",
	".txt":         "text/plain; charset=utf-8",
	".svg":         "image/svg+xml",
	".png":         "image/png",
	".jpg":         "image/jpeg",
	".jpeg":        "image/jpeg",
	".webp":        "image/webp",
	".ico":         "image/x-icon",
	".woff2":       "font/woff2",
	".webmanifest": "application/manifest+json",
}

// ContentType returns the MIME type for name.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := fallbackTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// CacheControl returns the Cache-Control header for name.
func CacheControl(name string) string {
	if slices.Contains(revalidated, strings.ToLower(path.Ext(name))) {
		return RevalidateCacheControl
	}
	return ImmutableCacheControl
}

// File is a file to upload.
type File struct {
	Key          string
	ContentType  string
	CacheControl string
	Size         int64
}

// Collect lists the regular files of fsys. Hidden files are skipped.
func Collect(fsys fs.FS) ([]File, error) {
	var files []File
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != "." {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, File{
			Key:          p,
			ContentType:  ContentType(p),
			CacheControl: CacheControl(p),
			Size:         info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing website files: %w", err)
	}
	return files, nil
}

// S3API uploads objects.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// CloudFrontAPI creates and inspects invalidations.
type CloudFrontAPI interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
	GetInvalidation(ctx context.Context, params *cloudfront.GetInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetInvalidationOutput, error)
}

// Config describes a publish run. Bucket and DistributionID are read from
// the outputs of StackName when empty.
type Config struct {
	StackName      string
	Bucket         string
	DistributionID string
	Wait           bool
	DryRun         bool
	PollInterval   time.Duration
	Concurrency    int
}

// Deps are the collaborators of a Publisher.
type Deps struct {
	S3             S3API
	CloudFront     CloudFrontAPI
	CloudFormation awsenv.StackDescriber
	Logger         *zap.Logger
	Out            io.Writer
}

// Summary describes a finished publish run.
type Summary struct {
	Bucket         string
	DistributionID string
	Files          int
	Bytes          int64
	InvalidationID string
}

// Publisher uploads a directory and invalidates the distribution.
type Publisher struct {
	config Config
	deps   Deps
}

// New returns a Publisher.
func New(config Config, deps Deps) *Publisher {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	return &Publisher{config: config, deps: deps}
}

// Publish uploads every file of site and invalidates the cache.
func (p *Publisher) Publish(ctx context.Context, site fs.FS) (Summary, error) {
	if err := p.resolveTargets(ctx); err != nil {
		return Summary{}, err
	}
	sum := Summary{Bucket: p.config.Bucket, DistributionID: p.config.DistributionID}

	files, err := Collect(site)
	if err != nil {
		return sum, err
	}
	if len(files) == 0 {
		return sum, errors.New("no files to publish")
	}

	p.printf("=== Step 1: Upload %d files to s3://%s ===\n", len(files), sum.Bucket)
	if err := p.upload(ctx, site, files); err != nil {
		return sum, err
	}
	sum.Files = len(files)
	for _, f := range files {
		sum.Bytes += f.Size
	}
	p.printf("\n")

	p.printf("=== Step 2: Invalidate %s ===\n", sum.DistributionID)
	if p.config.DryRun {
		p.printf("[DRY RUN] Would invalidate %s\n", InvalidationPath)
		return sum, nil
	}
	id, err := p.invalidate(ctx)
	if err != nil {
		return sum, err
	}
	sum.InvalidationID = id
	p.printf("Invalidation started (ID: %s)\n", id)

	if p.config.Wait {
		p.printf("Waiting for invalidation to complete...\n")
		if err := p.waitForInvalidation(ctx, id); err != nil {
			return sum, err
		}
		p.printf("Invalidation completed\n")
	}
	return sum, nil
}

func (p *Publisher) resolveTargets(ctx context.Context) error {
	if p.config.Bucket != "" && p.config.DistributionID != "" {
		return nil
	}
	if p.deps.CloudFormation == nil || p.config.StackName == "" {
		return errors.New("bucket and distribution id are required when no stack is given")
	}
	stack, err := awsenv.DescribeStack(ctx, p.deps.CloudFormation, p.config.StackName)
	if err != nil {
		return err
	}
	if p.config.Bucket == "" {
		p.config.Bucket = stack.Outputs[OutputBucket]
	}
	if p.config.DistributionID == "" {
		p.config.DistributionID = stack.Outputs[OutputDistribution]
	}
	if p.config.Bucket == "" || p.config.DistributionID == "" {
		return fmt.Errorf("stack %s is missing the %s or %s output", p.config.StackName, OutputBucket, OutputDistribution)
	}
	p.deps.Logger.Debug("resolved publish targets",
		zap.String("bucket", p.config.Bucket),
		zap.String("distribution", p.config.DistributionID))
	return nil
}

func (p *Publisher) upload(ctx context.Context, site fs.FS, files []File) error {
	if p.config.DryRun {
		for _, f := range files {
			p.printf("[DRY RUN] Would upload %s (%s, %s)\n", f.Key, f.ContentType, f.CacheControl)
		}
		return nil
	}
	if p.deps.S3 == nil {
		return errors.New("S3 client not configured")
	}

	var done atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for _, f := range files {
		g.Go(func() error {
			if err := p.put(ctx, site, f); err != nil {
				return err
			}
			n := done.Add(1)
			p.deps.Logger.Debug("uploaded", zap.String("key", f.Key), zap.Int32("done", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	p.printf("Uploaded %d files\n", done.Load())
	return nil
}

func (p *Publisher) put(ctx context.Context, site fs.FS, f File) error {
	body, err := site.Open(f.Key)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Key, err)
	}
	defer body.Close()

	_, err = p.deps.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.config.Bucket),
		Key:           aws.String(f.Key),
		Body:          body,
		ContentLength: aws.Int64(f.Size),
		ContentType:   aws.String(f.ContentType),
		CacheControl:  aws.String(f.CacheControl),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", f.Key, err)
	}
	return nil
}

func (p *Publisher) invalidate(ctx context.Context) (string, error) {
	if p.deps.CloudFront == nil {
		return "", errors.New("CloudFront client not configured")
	}
	out, err := p.deps.CloudFront.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(p.config.DistributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String("publish-" + ulid.Make().String()),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(1),
				Items:    []string{InvalidationPath},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating invalidation: %w", err)
	}
	if out.Invalidation == nil {
		return "", errors.New("creating invalidation: empty response")
	}
	return aws.ToString(out.Invalidation.Id), nil
}

func (p *Publisher) waitForInvalidation(ctx context.Context, id string) error {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		out, err := p.deps.CloudFront.GetInvalidation(ctx, &cloudfront.GetInvalidationInput{
			DistributionId: aws.String(p.config.DistributionID),
			Id:             aws.String(id),
		})
		if err != nil {
			return fmt.Errorf("checking invalidation %s: %w", id, err)
		}
		status := ""
		if out.Invalidation != nil {
			status = aws.ToString(out.Invalidation.Status)
		}
		p.printf("  Current status: %s\n", status)
		if status == "Completed" {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Publisher) printf(format string, args ...any) {
	fmt.Fprintf(p.deps.Out, format, args...)
}
