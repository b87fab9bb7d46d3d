// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/utils"
)

// ReceiptFile is an uploaded payment receipt before it is stored.
type ReceiptFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// ReceiptStorage stores receipt bytes and returns the URL saved on the request.
// DeleteReceipt takes a URL returned by SaveReceipt.
type ReceiptStorage interface {
	SaveReceipt(ctx context.Context, requestID uuid.UUID, file ReceiptFile) (string, error)
	DeleteReceipt(ctx context.Context, url string) error
}

// StorageService writes receipts to S3 when AWS credentials are configured and to
// the local upload directory otherwise.
type StorageService struct {
	s3Client s3iface.S3API
	aws      config.AWSConfig
	upload   config.UploadConfig
}

var receiptExtensions = []string{".jpg", ".jpeg", ".png", ".pdf"}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	service := &StorageService{
		aws:    cfg.AWS,
		upload: cfg.Upload,
	}
	if cfg.AWS.AccessKeyID == "" {
		return service, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	service.s3Client = s3.New(sess)
	return service, nil
}

func (s *StorageService) maxReceiptBytes() int64 {
	return int64(s.upload.MaxReceiptMB) * 1024 * 1024
}

func (s *StorageService) SaveReceipt(ctx context.Context, requestID uuid.UUID, file ReceiptFile) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Name))
	if !containsString(receiptExtensions, ext) {
		return "", newError(ErrValidation, "file type %s is not allowed", ext)
	}
	if max := s.maxReceiptBytes(); max > 0 && file.Size > max {
		return "", newError(ErrValidation, "receipt exceeds the %d MB limit", s.upload.MaxReceiptMB)
	}

	content, err := io.ReadAll(file.Content)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(content) == 0 {
		return "", newError(ErrValidation, "receipt file is empty")
	}
	if !isValidReceipt(content) {
		return "", newError(ErrValidation, "receipt must be a JPEG, PNG or PDF file")
	}

	key, err := receiptKey(requestID, ext)
	if err != nil {
		return "", err
	}

	logger.Get().WithFields(logrus.Fields{
		"dealer_request_id": requestID,
		"key":               key,
		"sha256":            utils.HashBytes(content),
	}).Info("storing payment receipt")

	if s.s3Client != nil {
		return s.uploadToS3(ctx, content, key, file.ContentType)
	}
	return s.uploadToLocal(content, key)
}

func (s *StorageService) uploadToS3(ctx context.Context, content []byte, key, contentType string) (string, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.aws.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(content))),
		Metadata: map[string]*string{
			"sha256": aws.String(utils.HashBytes(content)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	if s.aws.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.aws.CloudFrontURL, "/"), key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.aws.S3Bucket, s.aws.Region, key), nil
}

func (s *StorageService) uploadToLocal(content []byte, key string) (string, error) {
	path := filepath.Join(s.upload.LocalDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(s.upload.PublicBaseURL, "/"), key), nil
}

func (s *StorageService) DeleteReceipt(ctx context.Context, url string) error {
	key, ok := receiptKeyFromURL(url)
	if !ok {
		return fmt.Errorf("not a receipt url: %s", url)
	}

	if s.s3Client != nil {
		_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.aws.S3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete from S3: %w", err)
		}
		return nil
	}

	path := filepath.Join(s.upload.LocalDir, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}

func receiptKeyFromURL(url string) (string, bool) {
	idx := strings.Index(url, "receipts/")
	if idx < 0 {
		return "", false
	}
	key := url[idx:]
	if strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

func receiptKey(requestID uuid.UUID, ext string) (string, error) {
	suffix, err := utils.GenerateRandomString(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate receipt key: %w", err)
	}
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("receipts/%s/%s_%s%s", requestID, timestamp, suffix, ext), nil
}

// isValidReceipt checks the file signature rather than trusting the extension.
func isValidReceipt(buffer []byte) bool {
	// JPEG
	if len(buffer) >= 3 && buffer[0] == 0xFF && buffer[1] == 0xD8 && buffer[2] == 0xFF {
		return true
	}
	// PNG
	if len(buffer) >= 8 && bytes.Equal(buffer[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		return true
	}
	// PDF
	return len(buffer) >= 5 && string(buffer[:5]) == "%PDF-"
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
