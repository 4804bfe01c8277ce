// Package snapshot ships device images to an object store and back. Each
// image is stored next to a hex blake2b-256 checksum that is verified on
// the way back down.
package snapshot

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/weberc2/blockfs/pkg/objectstore"
	. "github.com/weberc2/blockfs/pkg/types"
	"golang.org/x/crypto/blake2b"
)

const (
	ChecksumMismatchErr  ConstError = "snapshot checksum mismatch"
	DestinationExistsErr ConstError = "snapshot destination already exists"
	InvalidLabelErr      ConstError = "invalid snapshot label"

	imageSuffix    = ".img"
	checksumSuffix = ".blake2b"
)

// TimeFunc stamps new snapshot keys; tests may replace it.
var TimeFunc = time.Now

type Snapshots struct {
	Store  objectstore.ObjectStore
	Bucket string
}

// Push uploads the image at `imagePath` under `<slug(label)>/<nanos>.img`
// and returns that key. The device should be unmounted while it runs.
func (s *Snapshots) Push(label, imagePath string) (string, error) {
	prefix, err := labelPrefix(label)
	if err != nil {
		return "", fmt.Errorf("pushing snapshot: %w", err)
	}
	image, err := ioutil.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("pushing snapshot: reading image: %w", err)
	}
	sum := blake2b.Sum256(image)

	key := fmt.Sprintf("%s%d%s", prefix, TimeFunc().UnixNano(), imageSuffix)
	if err := s.Store.PutObject(
		s.Bucket,
		key,
		bytes.NewReader(image),
	); err != nil {
		return "", fmt.Errorf("pushing snapshot `%s`: %w", key, err)
	}
	if err := s.Store.PutObject(
		s.Bucket,
		checksumKey(key),
		strings.NewReader(hex.EncodeToString(sum[:])),
	); err != nil {
		return "", fmt.Errorf("pushing snapshot `%s`: checksum: %w", key, err)
	}
	return key, nil
}

// Pull downloads the image at `key` to `dst`, which must not exist yet.
func (s *Snapshots) Pull(key, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("pulling snapshot `%s` to `%s`: %w", key, dst, DestinationExistsErr)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pulling snapshot `%s` to `%s`: %w", key, dst, err)
	}

	image, err := s.get(key)
	if err != nil {
		return fmt.Errorf("pulling snapshot `%s`: %w", key, err)
	}
	wanted, err := s.get(checksumKey(key))
	if err != nil {
		return fmt.Errorf("pulling snapshot `%s`: checksum: %w", key, err)
	}
	sum := blake2b.Sum256(image)
	if found := hex.EncodeToString(sum[:]); found != strings.TrimSpace(string(wanted)) {
		return fmt.Errorf(
			"pulling snapshot `%s`: wanted `%s`; found `%s`: %w",
			key,
			wanted,
			found,
			ChecksumMismatchErr,
		)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			err = DestinationExistsErr
		}
		return fmt.Errorf("pulling snapshot `%s` to `%s`: %w", key, dst, err)
	}
	if _, err := f.Write(image); err != nil {
		f.Close()
		return fmt.Errorf("pulling snapshot `%s` to `%s`: %w", key, dst, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("pulling snapshot `%s` to `%s`: %w", key, dst, err)
	}
	return nil
}

// List returns the image keys stored for `label`, oldest first.
func (s *Snapshots) List(label string) ([]string, error) {
	prefix, err := labelPrefix(label)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	keys, err := s.Store.ListObjects(s.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for `%s`: %w", label, err)
	}
	images := keys[:0]
	for _, key := range keys {
		if strings.HasSuffix(key, imageSuffix) {
			images = append(images, key)
		}
	}
	// lexical order is chronological while stamps have equal width
	sort.Strings(images)
	return images, nil
}

// Delete removes an image and its checksum.
func (s *Snapshots) Delete(key string) error {
	if err := s.Store.DeleteObject(s.Bucket, key); err != nil {
		return fmt.Errorf("deleting snapshot `%s`: %w", key, err)
	}
	if err := s.Store.DeleteObject(s.Bucket, checksumKey(key)); err != nil {
		return fmt.Errorf("deleting snapshot `%s`: checksum: %w", key, err)
	}
	return nil
}

func (s *Snapshots) get(key string) ([]byte, error) {
	body, err := s.Store.GetObject(s.Bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := ioutil.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading `%s`: %w", key, err)
	}
	return data, nil
}

func labelPrefix(label string) (string, error) {
	s := slug.Make(label)
	if s == "" {
		return "", fmt.Errorf("label `%s`: %w", label, InvalidLabelErr)
	}
	return s + "/", nil
}

func checksumKey(imageKey string) string {
	return strings.TrimSuffix(imageKey, imageSuffix) + checksumSuffix
}
