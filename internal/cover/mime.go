/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package cover maps catalog entries to displayable cover images. Every
// failure ends in the bundled fallback cover; nothing is raised past the
// package boundary except for inspection through Result.Err.
package cover

import "strings"

const (
	MIMEJPEG        = "image/jpeg"
	MIMEPNG         = "image/png"
	MIMEWebP        = "image/webp"
	MIMEOctetStream = "application/octet-stream"
)

// Extensions lists the probe order used when a cover is looked up by title.
var Extensions = []string{"webp", "png", "jpg", "jpeg"}

var mimeByExt = map[string]string{
	"jpg":  MIMEJPEG,
	"jpeg": MIMEJPEG,
	"png":  MIMEPNG,
	"webp": MIMEWebP,
}

// MIMEType returns the content type for a file extension, with or without
// the leading dot. Unknown extensions yield application/octet-stream.
func MIMEType(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if m, ok := mimeByExt[ext]; ok {
		return m
	}
	return MIMEOctetStream
}

// Displayable reports whether a handle of this type is worth decoding.
func Displayable(mime string) bool { return mime != MIMEOctetStream && mime != "" }
