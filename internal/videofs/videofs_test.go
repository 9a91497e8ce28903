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

package videofs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePassesThroughLocalPaths(t *testing.T) {
	r := NewResolver(t.TempDir(), "")

	local, err := r.Resolve("/videos/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "/videos/clip.mp4", local)

	local, err = r.Resolve("relative/clip.avi")
	require.NoError(t, err)
	assert.Equal(t, "relative/clip.avi", local)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := parseS3URI("s3://my-bucket/folder/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "folder/clip.mp4", key)
}

func TestParseS3URIRejectsMissingKey(t *testing.T) {
	_, _, err := parseS3URI("s3://my-bucket")
	assert.Error(t, err)
}

func TestParseS3URIRejectsMissingBucket(t *testing.T) {
	_, _, err := parseS3URI("s3:///clip.mp4")
	assert.Error(t, err)
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "folder_sub_clip.mp4", sanitizeKey("folder/sub/clip.mp4"))
	assert.Equal(t, "clip.mp4", sanitizeKey("clip.mp4"))
}
