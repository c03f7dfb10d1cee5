package azure

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/google/uuid"

	"github.com/stagelink/stagelink/internal/cloud"
	"github.com/stagelink/stagelink/internal/cloud/download"
	"github.com/stagelink/stagelink/internal/cloud/stage"
	"github.com/stagelink/stagelink/internal/cloud/transfer"
	"github.com/stagelink/stagelink/internal/config"
	encryption "github.com/stagelink/stagelink/internal/crypto"
	"github.com/stagelink/stagelink/internal/session"
)

// resolveFunc produces the ephemeral stage mapping for one operation.
type resolveFunc func(ctx context.Context, isWrite bool, targetFile string) (*stage.Info, error)

// client carries the state shared by both blob variants. The variants differ
// only in how they resolve stage metadata and how they discover blobs for
// reads.
type client struct {
	cfg       *config.Config
	resolve   resolveFunc
	enumerate bool // reads list the remote prefix instead of stage metadata
	processed atomic.Int64
}

// Internal is the blob variant whose coordinates, credentials and master key
// come from the engine session, resolved fresh per operation.
type Internal struct {
	client
}

// External is the blob variant addressed directly by container, account and
// path with a caller-supplied SAS token.
type External struct {
	client
}

var (
	_ cloud.StageStorage = (*Internal)(nil)
	_ cloud.StageStorage = (*External)(nil)
)

// NewInternal builds the internal blob variant on top of an engine session.
func NewInternal(cfg *config.Config, sess session.Session) *Internal {
	return &Internal{client{
		cfg: cfg,
		resolve: func(ctx context.Context, isWrite bool, targetFile string) (*stage.Info, error) {
			return sess.StageInfo(ctx, isWrite, targetFile)
		},
	}}
}

// NewExternal builds the external blob variant for the given container,
// account, endpoint and path prefix. A SAS token is required up front; a
// master key is optional. Without a master key objects are staged
// unencrypted.
func NewExternal(cfg *config.Config, container, account, endpoint, path string, credentials map[string]string) (*External, error) {
	if credentials[stage.CredAzureSAS] == "" {
		return nil, &cloud.CredentialError{Name: stage.CredAzureSAS}
	}

	location := container
	if path != "" {
		location += "/" + path
	}
	base := stage.Info{
		Type:        stage.TypeAzure,
		Location:    location,
		Account:     account,
		Endpoint:    endpoint,
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
	blobName := blobPath(info, dir, name)

	var env *encryption.Envelope
	metadata := map[string]*string{}
	if info.MasterKey != "" {
		env, err = encryption.NewEnvelope(info.MasterKey, info.QueryID, info.SmkID)
		if err != nil {
			return nil, err
		}
		fields, err := env.BlobMetadata()
		if err != nil {
			return nil, err
		}
		for k, v := range fields {
			metadata[k] = to.Ptr(v)
		}
	}

	commit := func(body []byte) error {
		svc, err := newClient(c.cfg, info)
		if err != nil {
			return err
		}
		opts := &azblob.UploadBufferOptions{
			Metadata: metadata,
		}
		if compress {
			opts.HTTPHeaders = &blob.HTTPHeaders{
				BlobContentEncoding: to.Ptr(transfer.ContentEncodingGzip),
			}
		}
		if _, err := svc.UploadBuffer(ctx, info.Bucket(), blobName, body, opts); err != nil {
			return fmt.Errorf("failed to upload %s: %w", blobName, err)
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
	return c.openBlob(ctx, info, name, compress)
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
		return c.openBlob(ctx, info, name, compress)
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
	svc, err := newClient(c.cfg, info)
	if err != nil {
		return err
	}
	return c.deleteBlob(ctx, svc, info, name)
}

// DeleteFiles removes the named blobs one by one; the blob service has no
// batch delete on this client.
func (c *client) DeleteFiles(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	info, err := c.resolve(ctx, false, "")
	if err != nil {
		return err
	}
	svc, err := newClient(c.cfg, info)
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := c.deleteBlob(ctx, svc, info, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) FileExists(ctx context.Context, name string) (bool, error) {
	info, err := c.resolve(ctx, false, name)
	if err != nil {
		return false, err
	}
	svc, err := newClient(c.cfg, info)
	if err != nil {
		return false, err
	}

	blobName := info.Prefix() + name
	blobClient := svc.ServiceClient().NewContainerClient(info.Bucket()).NewBlobClient(blobName)
	if _, err := blobClient.GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s: %w", blobName, err)
	}
	return true, nil
}

func (c *client) ProcessedCount() int64 {
	return c.processed.Load()
}

// openBlob opens the decoded read pipeline for one blob: DownloadStream, then
// envelope decryption when the stage carries a master key, then gunzip.
func (c *client) openBlob(ctx context.Context, info *stage.Info, name string, compress bool) (io.ReadCloser, error) {
	svc, err := newClient(c.cfg, info)
	if err != nil {
		return nil, err
	}

	blobName := info.Prefix() + name
	resp, err := svc.DownloadStream(ctx, info.Bucket(), blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", blobName, err)
	}

	decrypt := transfer.DecryptFunc(func(raw io.Reader) (io.Reader, error) {
		return raw, nil
	})
	if info.MasterKey != "" {
		wrapped, iv, err := encryption.ParseBlobMetadata(metadataStrings(resp.Metadata))
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("blob %s: %w", blobName, err)
		}
		decrypt = func(raw io.Reader) (io.Reader, error) {
			return encryption.NewDecryptReader(raw, info.MasterKey, wrapped, iv)
		}
	}
	return transfer.NewDownloadStream(resp.Body, decrypt, compress)
}

func (c *client) deleteBlob(ctx context.Context, svc *azblob.Client, info *stage.Info, name string) error {
	blobName := info.Prefix() + name
	if _, err := svc.DeleteBlob(ctx, info.Bucket(), blobName, nil); err != nil {
		return fmt.Errorf("failed to delete %s: %w", blobName, err)
	}
	return nil
}

// readNames discovers the blob names for a read. Internal stages answer from
// the metadata's object list; external stages enumerate the remote prefix.
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

// list enumerates blob names under the stage prefix (plus subDir), relative
// to the stage prefix.
func (c *client) list(ctx context.Context, info *stage.Info, subDir string) ([]string, error) {
	svc, err := newClient(c.cfg, info)
	if err != nil {
		return nil, err
	}

	stagePrefix := info.Prefix()
	prefix := stagePrefix + stage.NormalizePrefix(subDir)
	pager := svc.NewListBlobsFlatPager(info.Bucket(), &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(prefix),
	})

	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			name, err := cloud.ObjectName(*item.Name, stagePrefix)
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

func blobPath(info *stage.Info, dir, name string) string {
	if dir != "" {
		name = dir + "/" + name
	}
	return info.Prefix() + name
}

// metadataStrings flattens SDK metadata for parsing. The service normalizes
// key casing, so lookups downstream are case-insensitive.
func metadataStrings(md map[string]*string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}
