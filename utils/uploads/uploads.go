package uploads

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const mb = 1024 * 1024

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file is too large")
	ErrExtensionInvalid = errors.New("file type is not allowed")
)

// Rule is an extension allow-list plus a byte limit for one kind of upload
type Rule struct {
	Name       string
	Extensions []string
	MaxBytes   int64
}

var (
	CourseImage = Rule{Name: "course image", Extensions: []string{"jpg", "jpeg", "png", "webp"}, MaxBytes: 5 * mb}
	Thumbnail   = Rule{Name: "thumbnail", Extensions: []string{"jpg", "jpeg", "png", "webp"}, MaxBytes: 2 * mb}
	Video       = Rule{Name: "video", Extensions: []string{"mp4", "mkv", "webm", "mov"}, MaxBytes: 500 * mb}
	Resume      = Rule{Name: "resume", Extensions: []string{"pdf"}, MaxBytes: 10 * mb}
)

// Extension returns the lower-cased extension without the dot
func Extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Check validates a file name and size against the rule and returns the extension
func (r Rule) Check(filename string, size int64) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("%s: %w", r.Name, ErrEmptyFile)
	}
	if size > r.MaxBytes {
		return "", fmt.Errorf("%s must be at most %dMB: %w", r.Name, r.MaxBytes/mb, ErrFileTooLarge)
	}

	ext := Extension(filename)
	for _, allowed := range r.Extensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s: %w", r.Name, strings.Join(r.Extensions, ", "), ErrExtensionInvalid)
}

// CheckHeader is Check for a multipart file header
func (r Rule) CheckHeader(fh *multipart.FileHeader) (string, error) {
	return r.Check(fh.Filename, fh.Size)
}

// ContentType guesses a content type from the extension
func ContentType(ext string) string {
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// CourseImageKey is course_image/<teacher>/<course-slug>.<ext>
func CourseImageKey(teacher, courseSlug, ext string) string {
	return fmt.Sprintf("course_image/%s/%s.%s", teacher, courseSlug, ext)
}

// ThumbnailKey is thumbnails/<course-slug>/<lesson-slug>/<NN>_<title-slug>.<ext>
func ThumbnailKey(courseSlug, lessonSlug string, serial int, titleSlug, ext string) string {
	return fmt.Sprintf("thumbnails/%s/%s/%02d_%s.%s", courseSlug, lessonSlug, serial, titleSlug, ext)
}

// VideoKey is videos/<teacher>/<course-slug>/<lesson-slug>/<NN>_<title-slug>.<ext>
func VideoKey(teacher, courseSlug, lessonSlug string, serial int, titleSlug, ext string) string {
	return fmt.Sprintf("videos/%s/%s/%s/%02d_%s.%s", teacher, courseSlug, lessonSlug, serial, titleSlug, ext)
}

// ResumeKey is joiningapplications/<seq>_<name-slug>/<file>
func ResumeKey(seq int64, nameSlug, filename string) string {
	return fmt.Sprintf("joiningapplications/%d_%s/%s", seq, nameSlug, filepath.Base(filename))
}
