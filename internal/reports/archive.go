package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/dentalbook/pkg/logging"
)

// S3API is the subset of the S3 client used by Archive.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive keeps a copy of every exported report in S3. With no bucket every
// call is a no-op.
type Archive struct {
	bucket string
	client S3API
	logger *logging.Logger
}

func NewArchive(client S3API, bucket string, logger *logging.Logger) *Archive {
	if logger == nil {
		logger = logging.Default()
	}
	return &Archive{bucket: bucket, client: client, logger: logger}
}

// Enabled reports whether a bucket and client are configured.
func (a *Archive) Enabled() bool {
	return a != nil && a.bucket != "" && a.client != nil
}

// Put stores the PDF under reports/YYYY/MM/ and returns its key.
func (a *Archive) Put(ctx context.Context, filename string, data []byte, at time.Time) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	at = at.UTC()
	key := fmt.Sprintf("reports/%d/%02d/%s-%s", at.Year(), at.Month(), at.Format("20060102T150405Z"), filename)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(a.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentType:        aws.String("application/pdf"),
		ContentDisposition: aws.String(fmt.Sprintf(`attachment; filename="%s"`, filename)),
	})
	if err != nil {
		return "", fmt.Errorf("reports: s3 put %s: %w", key, err)
	}
	a.logger.Info("report archived", "s3_key", key, "bytes", len(data))
	return key, nil
}
