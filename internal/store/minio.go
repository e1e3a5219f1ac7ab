package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxAvatarBytes caps how much of a provider-hosted avatar is mirrored.
const maxAvatarBytes = 5 << 20

// AvatarStore mirrors OAuth profile pictures into MinIO so the app doesn't
// hotlink provider CDNs.
type AvatarStore struct {
	client *minio.Client
	bucket string
	fetch  *http.Client
}

func NewAvatarStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*AvatarStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &AvatarStore{
		client: client,
		bucket: bucket,
		fetch:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func avatarKey(userID string) string { return "avatars/" + userID }

// Mirror downloads the avatar at url and stores it under the user's key.
func (s *AvatarStore) Mirror(ctx context.Context, userID, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("avatar request: %w", err)
	}
	resp, err := s.fetch.Do(req)
	if err != nil {
		return fmt.Errorf("avatar fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("avatar fetch: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return fmt.Errorf("avatar read: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.Upload(ctx, userID, data, contentType)
}

// Upload stores avatar bytes for the user.
func (s *AvatarStore) Upload(ctx context.Context, userID string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, avatarKey(userID), reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Download retrieves the user's avatar bytes and content type.
func (s *AvatarStore) Download(ctx context.Context, userID string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, avatarKey(userID), minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", err
	}
	return data, info.ContentType, nil
}

// Remove deletes the user's avatar.
func (s *AvatarStore) Remove(ctx context.Context, userID string) error {
	return s.client.RemoveObject(ctx, s.bucket, avatarKey(userID), minio.RemoveObjectOptions{})
}
