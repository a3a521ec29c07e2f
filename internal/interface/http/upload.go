package handlers

import (
	"mime/multipart"

	"github.com/oksasatya/go-adoptme/internal/application"
	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
)

// openUploads opens every file part; the returned func closes them.
func openUploads(headers []*multipart.FileHeader) ([]application.Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	out := make([]application.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperror.Validation("could not read uploaded file", map[string]string{fh.Filename: "unreadable"})
		}
		files = append(files, f)
		out = append(out, application.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return out, closeAll, nil
}
