package storage

import (
	"context"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PresignedURLTTL is how long receipt and certificate links stay valid.
const PresignedURLTTL = 15 * time.Minute

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Bucket binds an ObjectStore to one bucket, key prefix and upload policy.
type Bucket struct {
	store  ObjectStore
	bucket string
	folder string
	policy Policy
	now    func() time.Time
}

// NewBucket returns a Bucket writing under folder in bucket.
func NewBucket(store ObjectStore, bucket, folder string, policy Policy) *Bucket {
	return &Bucket{
		store:  store,
		bucket: bucket,
		folder: folder,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Put validates and stores data under a fresh key, which it returns.
func (b *Bucket) Put(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	if err := b.policy.Check(contentType, int64(len(data))); err != nil {
		return "", err
	}
	key := b.objectKey(fileName)
	if err := b.store.PutObject(ctx, b.bucket, key, normalizeContentType(contentType), data); err != nil {
		return "", err
	}
	return key, nil
}

// Exists reports whether key is stored.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	return b.store.ObjectExists(ctx, b.bucket, key)
}

// Read returns the full object. A missing key yields ErrObjectNotFound.
func (b *Bucket) Read(ctx context.Context, key string) ([]byte, error) {
	return b.store.GetObject(ctx, b.bucket, key)
}

// Delete removes key.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	return b.store.RemoveObject(ctx, b.bucket, key)
}

// DownloadURL returns a short-lived presigned link to key and its expiry.
func (b *Bucket) DownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	expiresAt := b.now().Add(PresignedURLTTL)
	u, err := b.store.PresignGet(ctx, b.bucket, key, downloadName(key), PresignedURLTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return u, expiresAt, nil
}

// objectKey builds folder/YYYY/MM/<id>_<name>. Client paths are dropped.
func (b *Bucket) objectKey(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return path.Join(b.folder, b.now().Format("2006/01"), uuid.NewString()[:8]+"_"+name)
}

// downloadName strips the generated id prefix from a key.
func downloadName(key string) string {
	base := path.Base(key)
	if _, rest, ok := strings.Cut(base, "_"); ok && rest != "" {
		return rest
	}
	return base
}
