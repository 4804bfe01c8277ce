package objectstore

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
)

var _ ObjectStore = (*S3ObjectStore)(nil)

type S3ObjectStore struct {
	Client *s3.S3
}

func (store *S3ObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	if _, err := store.Client.PutObject(&s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   data,
	}); err != nil {
		return fmt.Errorf("putting object `%s/%s`: %w", bucket, key, err)
	}
	return nil
}

func (store *S3ObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	rsp, err := store.Client.GetObject(&s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, &ObjectNotFoundErr{Bucket: bucket, Key: key}
		}
		return nil, fmt.Errorf("getting object `%s/%s`: %w", bucket, key, err)
	}
	return rsp.Body, nil
}

func (store *S3ObjectStore) ListObjects(
	bucket string,
	prefix string,
) ([]string, error) {
	var keys []string
	if err := store.Client.ListObjectsPages(
		&s3.ListObjectsInput{Bucket: &bucket, Prefix: &prefix},
		func(rsp *s3.ListObjectsOutput, lastPage bool) bool {
			for _, object := range rsp.Contents {
				keys = append(keys, *object.Key)
			}
			return true
		},
	); err != nil {
		return keys, fmt.Errorf(
			"listing objects in `%s` under `%s`: %w",
			bucket,
			prefix,
			err,
		)
	}
	return keys, nil
}

func (store *S3ObjectStore) DeleteObject(bucket, key string) error {
	if _, err := store.Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}); err != nil {
		if isNoSuchKey(err) {
			return &ObjectNotFoundErr{Bucket: bucket, Key: key}
		}
		return fmt.Errorf("deleting object `%s/%s`: %w", bucket, key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	if err, ok := err.(awserr.Error); ok {
		return err.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}
