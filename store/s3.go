package store

import (
	"bytes"
	"io"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	raven "github.com/getsentry/raven-go"
)

// S3 is a Store kept in an S3 bucket. Each key becomes one object, with the
// store's Prefix prepended, so a bucket can host more than one store.
//
// Node payloads are bounded chunks (a few tens of kilobytes each), so every
// value is uploaded with a single PutObject and read back with a single
// GetObject. There is no multipart machinery here on purpose.
type S3 struct {
	svc    *s3.S3
	Bucket string
	Prefix string
}

var _ Store = &S3{}

// NewS3 creates an S3 store using the given bucket and key prefix. The
// credentials in the session are used for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return &S3{
		Bucket: bucket,
		Prefix: prefix,
		svc:    s3.New(awsSession),
	}
}

// List returns every key in this store, with the store prefix removed.
func (s *S3) List() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(s.Bucket),
			Prefix: aws.String(s.Prefix),
		}
		err := s.svc.ListObjectsV2Pages(input,
			func(page *s3.ListObjectsV2Output, lastpage bool) bool {
				for _, item := range page.Contents {
					out <- strings.TrimPrefix(*item.Key, s.Prefix)
				}
				return !lastpage
			})
		if err != nil {
			log.Println("S3 List:", s.Prefix, err)
			raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix})
		}
	}()
	return out
}

// ListPrefix returns the keys in this store beginning with prefix.
func (s *S3) ListPrefix(prefix string) ([]string, error) {
	var result []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix + prefix),
	}
	err := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				result = append(result, strings.TrimPrefix(*item.Key, s.Prefix))
			}
			return !lastpage
		})
	if err != nil {
		log.Println("S3 ListPrefix:", s.Prefix, prefix, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix})
	}
	return result, err
}

// Open returns a reader over the content of the given key and its size.
// The whole object is fetched up front.
func (s *S3) Open(key string) (ReadAtCloser, int64, error) {
	output, err := s.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		return nil, 0, err
	}
	var buf bytes.Buffer
	_, err = io.Copy(&buf, output.Body)
	output.Body.Close()
	if err != nil {
		return nil, 0, err
	}
	data := buf.Bytes()
	return membuf(data), int64(len(data)), nil
}

// Create returns a writer whose content is uploaded to the given key when
// it is closed.
func (s *S3) Create(key string) (io.WriteCloser, error) {
	_, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err == nil {
		return nil, ErrKeyExists
	}
	return &s3writer{svc: s.svc, bucket: s.Bucket, key: s.Prefix + key}, nil
}

type s3writer struct {
	svc    *s3.S3
	bucket string
	key    string
	buf    bytes.Buffer
}

func (w *s3writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3writer) Close() error {
	body := bytes.NewReader(w.buf.Bytes())
	_, err := w.svc.PutObject(&s3.PutObjectInput{
		Body:          body,
		Bucket:        aws.String(w.bucket),
		Key:           aws.String(w.key),
		ContentLength: aws.Int64(int64(body.Len())),
	})
	if err != nil {
		log.Println("S3 Create:", w.key, err)
		raven.CaptureError(err, map[string]string{"Bucket": w.bucket, "Key": w.key})
	}
	return err
}

// Delete removes the given key from the store. Deleting a missing key is
// not an error.
func (s *S3) Delete(key string) error {
	_, err := s.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		log.Println("S3 Delete:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
	}
	return err
}
