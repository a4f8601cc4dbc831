package remote

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/kesh-io/satchel/object"
)

// S3Config configures an S3 remote method.
type S3Config struct {
	Profile  string
	Region   string
	Bucket   string
	Prefix   string
	Includes []string
	Excludes []string
}

// S3 treats an S3 bucket as a read-only tree: under the configured
// prefix, "/"-delimited key prefixes are surfaced as subtrees and keys
// as blobs, following how keys already encode hierarchy as path-like
// strings. It is a backup source only; S3 is not used as a
// pool backend, since that would mean replicating pool content across
// storage systems.
type S3 struct {
	config S3Config
	policy *Policy
	client *s3.S3
}

var _ Method = (*S3)(nil)

// NewS3 constructs an S3 remote from its configuration.
func NewS3(c S3Config) *S3 {
	return &S3{
		config: c,
		policy: NewPolicy(c.Includes, c.Excludes),
	}
}

// Policy returns the remote's include/exclude decision function.
func (s *S3) Policy() *Policy { return s.policy }

// Initialize opens the S3 client session.
func (s *S3) Initialize() error {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(s.config.Region),
		Credentials: credentials.NewSharedCredentials("", s.config.Profile),
	})
	if err != nil {
		return errors.Wrapf(ErrOperationFailed, "opening aws session: %v", err)
	}
	s.client = s3.New(sess)
	return nil
}

// Shutdown is a no-op: the AWS SDK client holds no resources to release.
func (s *S3) Shutdown() error { return nil }

func (s *S3) key(p string) string {
	return strings.TrimPrefix(path.Join(s.config.Prefix, strings.TrimPrefix(p, "/")), "/")
}

// Tree lists the immediate children of path. S3 has no native
// directory concept, so this enumerates one level of "/"-delimited
// common prefixes as subtrees and direct keys as blobs. Items carry
// type, filetype and, for blobs, size and mtime; no mode, uid or gid
// is reported.
func (s *S3) Tree(p string) (*object.Tree, error) {
	prefix := s.key(p)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	tree := object.NewTree()
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.config.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}
	for {
		output, err := s.client.ListObjectsV2(input)
		if err != nil {
			return nil, errors.Wrapf(ErrOperationFailed, "listing %q: %v", prefix, err)
		}
		for _, cp := range output.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
			if name == "" {
				continue
			}
			tree.Add(name, object.Item{"type": "tree", "filetype": "directory"})
		}
		for _, obj := range output.Contents {
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" {
				continue
			}
			item := object.Item{"type": "blob", "filetype": "regular"}
			if obj.Size != nil {
				item["size"] = *obj.Size
			}
			if obj.LastModified != nil {
				item["mtime"] = obj.LastModified.Unix()
			}
			tree.Add(name, item)
		}
		if output.IsTruncated == nil || !*output.IsTruncated {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}
	return tree, nil
}

// Blob opens an object for reading.
func (s *S3) Blob(p string) (io.ReadCloser, error) {
	output, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		if rfErr, ok := err.(awserr.RequestFailure); ok && rfErr.StatusCode() == http.StatusNotFound {
			return nil, errors.Wrapf(ErrOperationFailed, "key=%q not found", p)
		}
		return nil, errors.Wrapf(ErrOperationFailed, "getting %q: %v", p, err)
	}
	return output.Body, nil
}

// Checksum is unavailable: S3's ETag is not a SHA-1 of the object body
// for multipart uploads, so it cannot be trusted as a pool fast path.
func (s *S3) Checksum(string) (string, bool, error) {
	return "", false, nil
}

// Newer reports mtime inequality using S3's LastModified.
func (s *S3) Newer(newItem, oldItem object.Item) bool {
	return newItem.Mtime() != oldItem.Mtime()
}

// PutTree is not implemented: S3 is a backup source only.
func (s *S3) PutTree(*object.Tree, string) error {
	return errors.Wrap(ErrOperationFailed, "s3 remote does not support restore")
}

// PutBlob is not implemented: S3 is a backup source only.
func (s *S3) PutBlob(io.Reader, string) error {
	return errors.Wrap(ErrOperationFailed, "s3 remote does not support restore")
}
