package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"nfe-gestor/internal/config"
)

// S3Store guarda o XML bruto num storage S3-compatível (Supabase).
type S3Store struct {
	client   *s3.S3
	bucket   string
	endpoint string
}

func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" {
		return nil, fmt.Errorf("configuração do S3 incompleta (endpoint/credenciais)")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket S3 não configurado")
	}

	endpoint := baseEndpoint(cfg.Endpoint)

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.Region),
		Endpoint:         aws.String(endpoint + "/storage/v1/s3"),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("erro criando sessão S3: %w", err)
	}

	return &S3Store{
		client:   s3.New(sess),
		bucket:   cfg.Bucket,
		endpoint: endpoint,
	}, nil
}

// PutXML sobe o XML e devolve a URL pública do objeto.
func (s *S3Store) PutXML(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/xml"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("erro enviando XML para o S3 (key=%s): %w", key, err)
	}
	return PublicURL(s.endpoint, s.bucket, key), nil
}

// ObjectKey gera a chave do objeto: nfe/<yyyy>/<mm>/<uuid>.xml.
func ObjectKey(t time.Time) string {
	return fmt.Sprintf("nfe/%04d/%02d/%s.xml", t.Year(), int(t.Month()), uuid.NewString())
}

// PublicURL no formato do Supabase:
// <endpoint>/storage/v1/object/public/<bucket>/<key>
func PublicURL(endpoint, bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", baseEndpoint(endpoint), bucket, strings.TrimLeft(key, "/"))
}

// baseEndpoint aceita o endpoint com ou sem o sufixo /storage/v1/s3.
func baseEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	return strings.TrimSuffix(endpoint, "/storage/v1/s3")
}
