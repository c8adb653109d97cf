package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"presence/internal/configs"
)

// S3API is the subset of the S3 client used by S3Provider.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	manager.DownloadAPIClient
}

// S3Provider reports on the most recently modified of a fixed list of object keys.
type S3Provider struct {
	api        S3API
	bucket     string
	keys       []string
	downloader *manager.Downloader
}

// NewS3Provider builds an S3 client for an S3-compatible endpoint with static credentials.
func NewS3Provider(ctx context.Context, cfg configs.S3Config) (*S3Provider, error) {
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return NewS3ProviderWithClient(client, cfg.Bucket, cfg.Keys), nil
}

// NewS3ProviderWithClient returns a provider using an existing client.
func NewS3ProviderWithClient(api S3API, bucket string, keys []string) *S3Provider {
	return &S3Provider{
		api:    api,
		bucket: bucket,
		keys:   append([]string(nil), keys...),
		downloader: manager.NewDownloader(api, func(d *manager.Downloader) {
			d.Concurrency = 1
		}),
	}
}

// Snapshot implements Provider.
func (p *S3Provider) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		newestKey string
		newest    *s3.HeadObjectOutput
	)

	for _, key := range p.keys {
		head, err := p.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var nf *types.NotFound
			if errors.As(err, &nf) {
				continue
			}
			return Missing, fmt.Errorf("head dataset s3://%s/%s: %w", p.bucket, key, err)
		}

		if newest == nil || aws.ToTime(head.LastModified).After(aws.ToTime(newest.LastModified)) {
			newestKey, newest = key, head
		}
	}

	if newest == nil {
		return Missing, nil
	}

	size := aws.ToInt64(newest.ContentLength)
	rows := 0
	if size > 0 && size < MaxRowCountBytes {
		buf := manager.NewWriteAtBuffer(make([]byte, 0, size))
		_, err := p.downloader.Download(ctx, buf, &s3.GetObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(newestKey),
		})
		if err != nil {
			return Missing, fmt.Errorf("download dataset s3://%s/%s: %w", p.bucket, newestKey, err)
		}
		rows = bytes.Count(buf.Bytes(), []byte{'\n'})
	}

	mtime := aws.ToTime(newest.LastModified)
	return Snapshot{
		Exists:       true,
		ModifiedTime: &mtime,
		Size:         size,
		Rows:         rows,
		Path:         fmt.Sprintf("s3://%s/%s", p.bucket, newestKey),
	}, nil
}
