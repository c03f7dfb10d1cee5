package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/stagelink/stagelink/internal/cloud"
	"github.com/stagelink/stagelink/internal/cloud/download"
	"github.com/stagelink/stagelink/internal/cloud/stage"
	"github.com/stagelink/stagelink/internal/cloud/transfer"
	"github.com/stagelink/stagelink/internal/config"
	encryption "github.com/stagelink/stagelink/internal/crypto"
	"github.com/stagelink/stagelink/internal/session"
)

// deleteBatchSize is the S3 DeleteObjects per-request limit.
const deleteBatchSize = 1000

// resolveFunc produces the ephemeral stage mapping for one operation.
type resolveFunc func(ctx context.Context, isWrite bool, targetFile string) (*stage.Info, error)

// client carries the state shared by both S3 variants. The variants differ
// only in how they resolve stage metadata and how they discover objects for
// reads.
type client struct {
	cfg       *config.Config
	resolve   resolveFunc
	enumerate bool // reads list the remote prefix instead of stage metadata
	processed atomic.Int64
}

// Internal is the S3 variant whose coordinates, credentials and master key
// come from the engine session, resolved fresh per operation.
type Internal struct {
	client
}

// External is the S3 variant addressed directly by bucket and path with
// caller-supplied static credentials.
type External struct {
	client
}

var (
	_ cloud.StageStorage = (*Internal)(nil)
	_ cloud.StageStorage = (*External)(nil)
)

// NewInternal builds the internal S3 variant on top of an engine session.
func NewInternal(cfg *config.Config, sess session.Session) *Internal {
	return &Internal{client{
		cfg: cfg,
		resolve: func(ctx context.Context, isWrite bool, targetFile string) (*stage.Info, error) {
			return sess.StageInfo(ctx, isWrite, targetFile)
		},
	}}
}

// NewExternal builds the external S3 variant for the given bucket and path
// prefix. A key ID and secret are required up front; a session token, region
// and master key are optional. Without a master key objects are staged
// unencrypted.
func NewExternal(cfg *config.Config, bucket, path string, credentials map[string]string) (*External, error) {
	if credentials[stage.CredAWSKeyID] == "" {
		return nil, &cloud.CredentialError{Name: stage.CredAWSKeyID}
	}
	if credentials[stage.CredAWSSecretKey] == "" {
		return nil, &cloud.CredentialError{Name: stage.CredAWSSecretKey}
	}

	location := bucket
	if path != "" {
		location += "/" + path
	}
	base := stage.Info{
		Type:        stage.TypeS3,
		Location:    location,
		MasterKey:   credentials[stage.CredMasterKey],
		SmkID:       "0",
		Credentials: credentials,
	}

	return &External{client{
		cfg:       cfg,
		enumerate: true,
		resolve: func(ctx context.Context, isWrite bool, targetFile string) (*stage.Info, error) {
			info := base
			info.IsWrite = isWrite
			info.TargetFile = targetFile
			if isWrite {
				info.QueryID = uuid.NewString()
			}
			return &info, nil
		},
	}}, nil
}

func (c *client) UploadStream(ctx context.Context, name, dir string, compress bool) (io.WriteCloser, error) {
	info, err := c.resolve(ctx, true, name)
	if err != nil {
		return nil, err
	}
	key := objectKey(info, dir, name)

	var env *encryption.Envelope
	var metadata map[string]string
	if info.MasterKey != "" {
		env, err = encryption.NewEnvelope(info.MasterKey, info.QueryID, info.SmkID)
		if err != nil {
			return nil, err
		}
		metadata, err = env.S3Metadata()
		if err != nil {
			return nil, err
		}
	}

	commit := func(body []byte) error {
		svc, err := newClient(ctx, c.cfg, info.Credentials)
		if err != nil {
			return err
		}
		in := &awss3.PutObjectInput{
			Bucket:   aws.String(info.Bucket()),
			Key:      aws.String(key),
			Body:     bytes.NewReader(body),
			Metadata: metadata,
		}
		if compress {
			in.ContentEncoding = aws.String(transfer.ContentEncodingGzip)
		}
		if _, err := svc.PutObject(ctx, in); err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		return nil
	}
	return transfer.NewUploadStream(env, compress, commit)
}

func (c *client) UploadPartitioned(ctx context.Context, partitions [][]string, format cloud.RecordFormat, dir string, compress bool) ([]string, error) {
	return transfer.UploadPartitions(ctx, c.UploadStream, partitions, format, dir, compress)
}

func (c *client) DownloadStream(ctx context.Context, name string, compress bool) (io.ReadCloser, error) {
	info, err := c.resolve(ctx, false, name)
	if err != nil {
		return nil, err
	}
	return c.openObject(ctx, info, name, compress)
}

func (c *client) DownloadRecords(ctx context.Context, format cloud.RecordFormat, compress bool, subDir string) (*cloud.RecordIterator, error) {
	info, err := c.resolve(ctx, false, "")
	if err != nil {
		return nil, err
	}

	names, err := c.readNames(ctx, info, subDir)
	if err != nil {
		return nil, err
	}

	ctrl := &download.Controller{MaxRetries: c.cfg.MaxDownloadRetries}
	fetch := ctrl.CountedFetch(&c.processed, func(ctx context.Context, name string) (io.ReadCloser, error) {
		return c.openObject(ctx, info, name, compress)
	})
	return cloud.NewRecordIterator(ctx, names, fetch), nil
}

func (c *client) ListFiles(ctx context.Context, subDir string) ([]string, error) {
	info, err := c.resolve(ctx, false, "")
	if err != nil {
		return nil, err
	}
	return c.readNames(ctx, info, subDir)
}

func (c *client) DeleteFile(ctx context.Context, name string) error {
	info, err := c.resolve(ctx, false, name)
	if err != nil {
		return err
	}
	svc, err := newClient(ctx, c.cfg, info.Credentials)
	if err != nil {
		return err
	}

	key := info.Prefix() + name
	if _, err := svc.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(info.Bucket()),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeleteFiles removes the named objects through the native batch call, in
// chunks of at most 1000 keys per request.
func (c *client) DeleteFiles(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	info, err := c.resolve(ctx, false, "")
	if err != nil {
		return err
	}
	svc, err := newClient(ctx, c.cfg, info.Credentials)
	if err != nil {
		return err
	}

	for start := 0; start < len(names); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(names))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, name := range names[start:end] {
			objects = append(objects, types.ObjectIdentifier{
				Key: aws.String(info.Prefix() + name),
			})
		}

		out, err := svc.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(info.Bucket()),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("failed to delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}
	return nil
}

func (c *client) FileExists(ctx context.Context, name string) (bool, error) {
	info, err := c.resolve(ctx, false, name)
	if err != nil {
		return false, err
	}
	svc, err := newClient(ctx, c.cfg, info.Credentials)
	if err != nil {
		return false, err
	}

	key := info.Prefix() + name
	if _, err := svc.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(info.Bucket()),
		Key:    aws.String(key),
	}); err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return true, nil
}

func (c *client) ProcessedCount() int64 {
	return c.processed.Load()
}

// openObject opens the decoded read pipeline for one object: GetObject, then
// envelope decryption when the stage carries a master key, then gunzip.
func (c *client) openObject(ctx context.Context, info *stage.Info, name string, compress bool) (io.ReadCloser, error) {
	svc, err := newClient(ctx, c.cfg, info.Credentials)
	if err != nil {
		return nil, err
	}

	key := info.Prefix() + name
	out, err := svc.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(info.Bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}

	decrypt := transfer.DecryptFunc(func(raw io.Reader) (io.Reader, error) {
		return raw, nil
	})
	if info.MasterKey != "" {
		wrapped, iv, err := encryption.ParseS3Metadata(out.Metadata)
		if err != nil {
			out.Body.Close()
			return nil, fmt.Errorf("object %s: %w", key, err)
		}
		decrypt = func(raw io.Reader) (io.Reader, error) {
			return encryption.NewDecryptReader(raw, info.MasterKey, wrapped, iv)
		}
	}
	return transfer.NewDownloadStream(out.Body, decrypt, compress)
}

// readNames discovers the object names for a read. Internal stages answer
// from the metadata's object list; external stages enumerate the remote
// prefix.
func (c *client) readNames(ctx context.Context, info *stage.Info, subDir string) ([]string, error) {
	if c.enumerate {
		return c.list(ctx, info, subDir)
	}

	sub := stage.NormalizePrefix(subDir)
	names := make([]string, 0, len(info.Objects))
	for _, obj := range info.Objects {
		if sub != "" && !strings.HasPrefix(obj.Name, sub) {
			continue
		}
		names = append(names, obj.Name)
	}
	return names, nil
}

// list enumerates object names under the stage prefix (plus subDir), relative
// to the stage prefix.
func (c *client) list(ctx context.Context, info *stage.Info, subDir string) ([]string, error) {
	svc, err := newClient(ctx, c.cfg, info.Credentials)
	if err != nil {
		return nil, err
	}

	stagePrefix := info.Prefix()
	prefix := stagePrefix + stage.NormalizePrefix(subDir)
	paginator := awss3.NewListObjectsV2Paginator(svc, &awss3.ListObjectsV2Input{
		Bucket: aws.String(info.Bucket()),
		Prefix: aws.String(prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			name, err := cloud.ObjectName(aws.ToString(obj.Key), stagePrefix)
			if err != nil {
				return nil, err
			}
			if name == "" {
				continue
			}
			names = append(names, name)
		}
	}
	return names, nil
}

func objectKey(info *stage.Info, dir, name string) string {
	if dir != "" {
		name = dir + "/" + name
	}
	return info.Prefix() + name
}
