package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"inspection-backend/internal/middleware"
	"inspection-backend/internal/workflow"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MediaStore — контракт удаленного хранилища фотографий.
// Upload возвращает ключ объекта и публичный URL, Delete удаляет объект по ключу.
type MediaStore interface {
	Upload(ctx context.Context, body io.Reader, contentType, ext string) (string, string, error)
	Delete(ctx context.Context, key string) error
}

// S3MediaStore хранит фотографии осмотров в S3-совместимом хранилище
type S3MediaStore struct {
	client        *s3.Client
	uploader      *manager.Uploader
	bucket        string
	publicBaseURL string
	uploadTimeout time.Duration
	deleteTimeout time.Duration
}

// NewS3MediaStore создает клиент S3 из переменных окружения
func NewS3MediaStore(ctx context.Context) (*S3MediaStore, error) {
	region := os.Getenv("S3_REGION")
	if region == "" {
		region = "eu-central-1"
	}

	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("не задана переменная S3_BUCKET")
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx,
		awscfg.WithRegion(region),
		awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("S3_ACCESS_KEY"),
			os.Getenv("S3_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации S3: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Совместимость с MinIO и другими S3-хранилищами
		if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := os.Getenv("S3_PUBLIC_URL")
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return &S3MediaStore{
		client:        client,
		uploader:      manager.NewUploader(client),
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBase, "/"),
		uploadTimeout: 30 * time.Second,
		deleteTimeout: 10 * time.Second,
	}, nil
}

// Upload загружает файл и возвращает ключ объекта и публичный URL
func (s *S3MediaStore) Upload(ctx context.Context, body io.Reader, contentType, ext string) (string, string, error) {
	key := fmt.Sprintf("inspections/%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String(), ext)

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	start := time.Now()
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	middleware.TrackMediaRequest("upload", err == nil, time.Since(start))
	if err != nil {
		return "", "", fmt.Errorf("%w: загрузка в S3: %v", workflow.ErrUpstream, err)
	}

	return key, fmt.Sprintf("%s/%s", s.publicBaseURL, key), nil
}

// Delete удаляет объект из хранилища
func (s *S3MediaStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
	defer cancel()

	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	middleware.TrackMediaRequest("delete", err == nil, time.Since(start))
	if err != nil {
		log.Printf("Ошибка удаления объекта %s из S3: %v", key, err)
		return fmt.Errorf("%w: удаление из S3: %v", workflow.ErrUpstream, err)
	}

	return nil
}
