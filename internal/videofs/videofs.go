// SPDX-License-Identifier: GPL-3.0-or-later
//
// kinoreader
// Copyright (C) 2026 Joan Charmant
//
// kinoreader is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// kinoreader is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with kinoreader.  If not, see <https://www.gnu.org/licenses/>.

// Package videofs resolves a video path the reader can be pointed at: a
// plain local path is returned unchanged, an s3:// URI is downloaded to
// a local cache directory first. Grounded on
// Luminate-Inc-flow-frame/pkg/videoFs's S3-via-aws-sdk-go download
// pattern, generalized from "download a paginated segment of a
// collection" to "resolve one object key to one local file, reusing it
// across Open calls on a cache hit."
package videofs

import (
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Resolver turns s3:// URIs into local file paths, caching downloads by
// bucket/key under a single local directory so repeated opens of the
// same object (e.g. ExtractSummary followed by a full playback session)
// don't re-download.
type Resolver struct {
	cacheDir string
	region   string

	mu       sync.Mutex
	resolved map[string]string // "bucket/key" -> local path
	s3Client *s3.S3
}

// NewResolver builds a Resolver that downloads into cacheDir (created if
// missing), authenticating via the standard AWS_* environment variables.
func NewResolver(cacheDir, region string) *Resolver {
	return &Resolver{cacheDir: cacheDir, region: region, resolved: make(map[string]string)}
}

// Resolve returns a local filesystem path for src. A plain local path (no
// s3:// scheme) is returned unchanged without touching the network.
func (r *Resolver) Resolve(src string) (string, error) {
	if !strings.HasPrefix(src, "s3://") {
		return src, nil
	}

	bucket, key, err := parseS3URI(src)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cacheKey := bucket + "/" + key
	if local, ok := r.resolved[cacheKey]; ok {
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
		delete(r.resolved, cacheKey)
	}

	client, err := r.client()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("videofs: create cache directory: %w", err)
	}

	localPath := filepath.Join(r.cacheDir, sanitizeKey(key))
	log.Printf("videofs: downloading s3://%s/%s to %s", bucket, key, localPath)

	result, err := client.GetObject(&s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return "", fmt.Errorf("videofs: get object %s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()

	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("videofs: create local file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, result.Body); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("videofs: download body: %w", err)
	}

	r.resolved[cacheKey] = localPath
	return localPath, nil
}

func (r *Resolver) client() (*s3.S3, error) {
	if r.s3Client != nil {
		return r.s3Client, nil
	}

	cfg := &aws.Config{}
	if r.region != "" {
		cfg.Region = aws.String(r.region)
	} else if env := os.Getenv("AWS_DEFAULT_REGION"); env != "" {
		cfg.Region = aws.String(env)
	}
	if ak, sk := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); ak != "" && sk != "" {
		cfg.Credentials = credentials.NewStaticCredentials(ak, sk, os.Getenv("AWS_SESSION_TOKEN"))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("videofs: create AWS session: %w", err)
	}
	r.s3Client = s3.New(sess)
	return r.s3Client, nil
}

// parseS3URI splits "s3://bucket/some/key.mp4" into bucket and key.
func parseS3URI(src string) (bucket, key string, err error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", "", fmt.Errorf("videofs: parse %q: %w", src, err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("videofs: %q is not a valid s3:// URI", src)
	}
	return bucket, key, nil
}

// sanitizeKey flattens an S3 key's path separators so the cached file
// lives directly under the cache directory without recreating the
// bucket's folder structure.
func sanitizeKey(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}
