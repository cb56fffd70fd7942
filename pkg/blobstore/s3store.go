package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cuemby/graphd/pkg/graphdberr"
)

// S3Store is a Store backed by an S3-compatible object store (the
// production target is an R2 bucket, addressed via the S3 API).
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store wraps an already-configured s3.Client.
func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) Get(ctx context.Context, key string, r *RangeSpec) (Metadata, []byte, error) {
	in := &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}
	if hdr := rangeHeader(r); hdr != "" {
		in.Range = aws.String(hdr)
	}

	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return Metadata{}, nil, ErrNotFound
		}
		return Metadata{}, nil, graphdberr.Wrap(graphdberr.CodeR2FetchFailed, "s3 GetObject", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Metadata{}, nil, graphdberr.Wrap(graphdberr.CodeR2FetchFailed, "read s3 body", err)
	}

	md := Metadata{Size: uint64(len(data))}
	if out.ContentRange != nil {
		// "bytes start-end/total": report the whole object's size, as
		// MemStore does, not the length of the returned range.
		cr := *out.ContentRange
		if i := strings.LastIndexByte(cr, '/'); i >= 0 {
			if total, err := strconv.ParseUint(cr[i+1:], 10, 64); err == nil {
				md.Size = total
			}
		}
	}
	if out.ContentType != nil {
		md.ContentType = *out.ContentType
	}
	return md, data, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytesReader(data),
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return graphdberr.Wrap(graphdberr.CodeR2WriteFailed, "s3 PutObject", err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeR2WriteFailed, "s3 DeleteObject", err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string, limit int, cursor string) (ListResult, error) {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if limit > 0 {
		in.MaxKeys = aws.Int32(int32(limit))
	}
	if cursor != "" {
		in.ContinuationToken = aws.String(cursor)
	}

	out, err := s.client.ListObjectsV2(ctx, in)
	if err != nil {
		return ListResult{}, graphdberr.Wrap(graphdberr.CodeR2FetchFailed, "s3 ListObjectsV2", err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	res := ListResult{Keys: keys, Truncated: aws.ToBool(out.IsTruncated)}
	if out.NextContinuationToken != nil {
		res.Cursor = *out.NextContinuationToken
	}
	return res, nil
}

func rangeHeader(r *RangeSpec) string {
	if r == nil {
		return ""
	}
	if r.Suffix != nil {
		return fmt.Sprintf("bytes=-%d", *r.Suffix)
	}
	if r.Offset != nil && r.Length != nil {
		return fmt.Sprintf("bytes=%d-%d", *r.Offset, *r.Offset+*r.Length-1)
	}
	if r.Offset != nil {
		return fmt.Sprintf("bytes=%d-", *r.Offset)
	}
	return ""
}

func bytesReader(b []byte) io.ReadSeeker {
	return strings.NewReader(string(b))
}
