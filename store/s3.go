package store

import (
	"bytes"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	raven "github.com/getsentry/raven-go"

	"github.com/catbridge/filestorage/util"
)

// An S3 store keeps objects in an AWS S3 bucket. It will prepend Prefix
// to all keys, which allows a bucket to be shared between more than one
// store. Do not change Bucket or Prefix concurrently with calls using
// the structure.
type S3 struct {
	svc    *s3.S3
	Bucket string
	Prefix string
}

var _ Store = &S3{}

// NewS3 creates a new S3 store on the given bucket. The authorization
// method and credentials in the session are used for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return &S3{
		Bucket: bucket,
		Prefix: prefix,
		svc:    s3.New(awsSession),
	}
}

// Exists reports whether there is an object at key. Errors other than
// a 404 are logged and treated as absence.
func (s *S3) Exists(key string) bool {
	_, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		if !isNotFound(err) {
			log.Println("S3 Exists:", s.Prefix, key, err)
		}
		return false
	}
	return true
}

// Get returns the content of the object at key.
func (s *S3) Get(key string) ([]byte, error) {
	output, err := s.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		log.Println("S3 Get:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
		return nil, err
	}
	defer output.Body.Close()
	return ioutil.ReadAll(output.Body)
}

// Put stores body at key, overwriting any previous object there.
func (s *S3) Put(key string, body []byte) error {
	return s.upload(key, bytes.NewReader(body))
}

// PutFile uploads the local file at path to key.
func (s *S3) PutFile(key string, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.upload(key, f)
}

func (s *S3) upload(key string, body io.ReadSeeker) error {
	_, err := s.svc.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
		Body:   body,
	})
	if err != nil {
		log.Println("S3 Put:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
	}
	return err
}

// Delete will remove the given key from the store. The store's Prefix
// is prepended first. It is not an error to delete something that
// doesn't exist.
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

// DeletePrefix removes every object whose key begins with prefix,
// deleting in batches of up to 1000 keys.
func (s *S3) DeletePrefix(prefix string) error {
	keys, err := s.ListPrefix(prefix)
	if err != nil {
		return err
	}
	for len(keys) > 0 {
		n := len(keys)
		if n > 1000 {
			n = 1000
		}
		var objects []*s3.ObjectIdentifier
		for _, key := range keys[:n] {
			objects = append(objects, &s3.ObjectIdentifier{
				Key: aws.String(s.Prefix + key),
			})
		}
		keys = keys[n:]
		_, err = s.svc.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: aws.String(s.Bucket),
			Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			log.Println("S3 DeletePrefix:", s.Prefix, prefix, err)
			raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": prefix})
			return err
		}
	}
	return nil
}

// ListPrefix returns the keys in this store that have the given prefix.
// The argument prefix is added to the store's Prefix.
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
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": prefix})
	}
	return result, err
}

// Copy duplicates the object at src to dst within the bucket.
func (s *S3) Copy(src, dst string) error {
	source := s.Bucket + "/" + s.Prefix + src
	_, err := s.svc.CopyObject(&s3.CopyObjectInput{
		Bucket:     aws.String(s.Bucket),
		Key:        aws.String(s.Prefix + dst),
		CopySource: aws.String(url.PathEscape(source)),
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		log.Println("S3 Copy:", s.Prefix, src, dst, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Source": src, "Target": dst})
	}
	return err
}

// the most CopyObject calls BatchCopy keeps in flight at a time
const maxConcurrentCopies = 4

// BatchCopy copies sources[i] to targets[i]. S3 has no native batch
// copy, so every pair is an independent CopyObject call, with at most
// maxConcurrentCopies in flight at once. All pairs are attempted; the
// failures, if any, come back in a single BatchError.
func (s *S3) BatchCopy(sources, targets []string) error {
	if len(sources) != len(targets) {
		return ErrBadBatch
	}
	var (
		m      sync.Mutex
		wg     sync.WaitGroup
		failed []CopyPair
	)
	gate := util.NewGate(maxConcurrentCopies)
	for i := range sources {
		wg.Add(1)
		go func(src, dst string) {
			defer wg.Done()
			gate.Enter()
			defer gate.Leave()
			if err := s.Copy(src, dst); err != nil {
				m.Lock()
				failed = append(failed, CopyPair{Source: src, Target: dst, Err: err})
				m.Unlock()
			}
		}(sources[i], targets[i])
	}
	wg.Wait()
	if len(failed) > 0 {
		return &BatchError{Failed: failed}
	}
	return nil
}

// CreateFolder writes a zero-byte marker object at key + "/". S3 has no
// real folders; the marker makes the prefix visible to consoles and to
// prefix listings even while it holds no items.
func (s *S3) CreateFolder(key string) error {
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}
	_, err := s.svc.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(s.Prefix + key),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		log.Println("S3 CreateFolder:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
	}
	return err
}

// isNotFound reports whether err is S3's way of saying the object does
// not exist.
func isNotFound(err error) bool {
	if ae, ok := err.(awserr.Error); ok {
		switch ae.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	if rf, ok := err.(awserr.RequestFailure); ok {
		return rf.StatusCode() == http.StatusNotFound
	}
	return false
}
