package ingestion

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"contentflow/internal/config"
	"contentflow/internal/domain"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/service/extractor"
)

// ValidateSubmission checks that exactly one of url and file is given and
// that an upload is a PDF within maxFileSize. maxFileSize <= 0 disables the
// size check.
func ValidateSubmission(sub *librarySvc.Submission, maxFileSize int64) error {
	if sub == nil {
		return &domain.ValidationError{Message: "submission is required"}
	}
	hasURL := strings.TrimSpace(sub.URL) != ""
	if hasURL == (sub.Upload != nil) {
		return &domain.ValidationError{Message: "provide either a url or a file"}
	}

	if hasURL {
		err := validation.Validate(sub.URL,
			validation.Length(1, config.MaxURLLength).Error(fmt.Sprintf("url must be at most %d characters", config.MaxURLLength)),
		)
		if err != nil {
			return &domain.ValidationError{Message: err.Error()}
		}
		return nil
	}

	up := sub.Upload
	err := validation.ValidateStruct(up,
		validation.Field(&up.Filename, validation.Required.Error("filename is required")),
		validation.Field(&up.Data, validation.Required.Error("file is empty")),
	)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	if maxFileSize > 0 && int64(len(up.Data)) > maxFileSize {
		return &domain.ValidationError{Message: fmt.Sprintf("file exceeds the %d byte limit", maxFileSize)}
	}
	if !extractor.IsPDFUpload(up.Filename, up.ContentType) {
		return &domain.UnsupportedSourceError{Message: "only PDF files are supported"}
	}
	return nil
}
