package publish

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/provisionoor/pkg/config"
)

// putObjectAPI is the subset of the S3 client used for publishing.
type putObjectAPI interface {
	PutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
}

// s3Publisher implements Publisher for S3-compatible storage.
type s3Publisher struct {
	log    logrus.FieldLogger
	cfg    *config.S3PublishConfig
	client putObjectAPI
}

// Ensure interface compliance.
var _ Publisher = (*s3Publisher)(nil)

// NewS3Publisher creates a new S3 publisher from the given configuration.
func NewS3Publisher(
	log logrus.FieldLogger,
	cfg *config.S3PublishConfig,
) Publisher {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	return newS3Publisher(log, cfg, s3.New(s3.Options{}, opts...))
}

func newS3Publisher(
	log logrus.FieldLogger,
	cfg *config.S3PublishConfig,
	client putObjectAPI,
) *s3Publisher {
	return &s3Publisher{
		log:    log.WithField("component", "s3-publisher"),
		cfg:    cfg,
		client: client,
	}
}

// Preflight verifies S3 connectivity by writing a small test object.
func (p *s3Publisher) Preflight(ctx context.Context) error {
	content := fmt.Sprintf("provisionoor write test: %s",
		time.Now().UTC().Format(time.RFC3339))

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(p.resolveKey(".provisionoor-write-test")),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("writing test object to s3://%s: %w", p.cfg.Bucket, err)
	}

	return nil
}

// Publish uploads every artifact under prefix/runName/ with bounded
// parallelism. The first failure cancels the remaining uploads.
func (p *s3Publisher) Publish(
	ctx context.Context,
	runName string,
	artifacts []Artifact,
) error {
	g, gCtx := errgroup.WithContext(ctx)

	limit := p.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}

	g.SetLimit(limit)

	var total int

	for _, a := range artifacts {
		key := p.resolveKey(runName + "/" + a.Name)
		total += len(a.Body)

		g.Go(func() error {
			if err := p.putArtifact(gCtx, key, a); err != nil {
				return fmt.Errorf("uploading %s: %w", a.Name, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{
		"files":  len(artifacts),
		"size":   units.HumanSize(float64(total)),
		"bucket": p.cfg.Bucket,
		"prefix": p.resolveKey(runName),
	}).Info("Publish completed")

	return nil
}

func (p *s3Publisher) putArtifact(ctx context.Context, key string, a Artifact) error {
	contentType := a.ContentType
	if contentType == "" {
		contentType = detectContentType(a.Name)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(a.Body),
		ContentType: aws.String(contentType),
	}

	if p.cfg.StorageClass != "" {
		input.StorageClass = s3types.StorageClass(p.cfg.StorageClass)
	}

	if p.cfg.ACL != "" {
		input.ACL = s3types.ObjectCannedACL(p.cfg.ACL)
	}

	p.log.WithFields(logrus.Fields{
		"key":  key,
		"size": units.HumanSize(float64(len(a.Body))),
	}).Debug("Uploading artifact")

	if _, err := p.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("PutObject: %w", err)
	}

	return nil
}

// resolveKey joins name onto the configured prefix.
func (p *s3Publisher) resolveKey(name string) string {
	prefix := strings.Trim(p.cfg.Prefix, "/")
	if prefix == "" {
		prefix = config.DefaultS3Prefix
	}

	return prefix + "/" + strings.TrimLeft(name, "/")
}

// detectContentType returns a MIME type based on file extension.
func detectContentType(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return "application/octet-stream"
	}

	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return "application/octet-stream"
	}

	return ct
}
