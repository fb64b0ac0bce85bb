package storagekit

import (
	"mime"
	"net/http"
	"path"
	"strings"
)

// MIMETypeOctetStream is reported when nothing better is known.
const MIMETypeOctetStream = "application/octet-stream"

// Extensions whose type the platform document tree reports differently from
// the mime package, or which the mime package may not know.
var extensionToMIME = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".xml":  "application/xml",
	".apk":  "application/vnd.android.package-archive",
	".obb":  MIMETypeOctetStream,
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
}

// GuessContentType determines the content type of name from its extension,
// then from data when the extension is unknown.
func GuessContentType(name string, data []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if contentType, ok := extensionToMIME[ext]; ok {
		return contentType
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return MIMETypeOctetStream
}

// IsTextFile returns true if the file is a text file based on its MIME type
func IsTextFile(contentType string) bool {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(contentType)
	return strings.HasPrefix(contentType, "text/") ||
		contentType == "application/json" ||
		contentType == "application/xml"
}
