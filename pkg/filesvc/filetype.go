package filesvc

import (
	"fmt"
	"strings"
)

// VerifyFileType matches an uploaded file against a schema's allow-list.
//
// The entry whose Key equals key is selected; with no such entry the file is
// rejected. An entry with custom extensions checks the (lower-cased) part of
// the filename after the first dot against the extension list and ignores the
// declared MIME type entirely. Otherwise the declared MIME type must equal
// the entry's MIME string exactly; the comparison is case-sensitive by
// policy.
func VerifyFileType(filename, mimeType, key string, allowed []FileType) (*FileType, error) {
	var match *FileType
	for i := range allowed {
		if allowed[i].Key == key {
			match = &allowed[i]
		}
	}
	if match == nil {
		return nil, &FileTypeError{Reason: fmt.Sprintf("no file type configured for key %q", key)}
	}

	if custom := match.MimeType.Custom; custom != nil {
		if i := strings.Index(filename, "."); i >= 0 {
			ext := strings.ToLower(filename[i+1:])
			for _, e := range custom.Extensions {
				if strings.EqualFold(ext, e) {
					return match, nil
				}
			}
		}
		return nil, &FileTypeError{Reason: fmt.Sprintf("extension of %q not accepted for key %q", filename, key)}
	}

	if match.MimeType.Mime == mimeType {
		return match, nil
	}
	return nil, &FileTypeError{Reason: fmt.Sprintf("mime type %q does not match %q for key %q", mimeType, match.MimeType.Mime, key)}
}
