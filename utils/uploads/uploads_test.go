package uploads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleCheck(t *testing.T) {
	ext, err := Thumbnail.Check("Cover.PNG", 1024)
	require.NoError(t, err)
	assert.Equal(t, "png", ext)

	_, err = Thumbnail.Check("cover.png", 2*mb+1)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = Thumbnail.Check("cover.gif", 10)
	assert.ErrorIs(t, err, ErrExtensionInvalid)

	_, err = Video.Check("lecture.mp4", 0)
	assert.ErrorIs(t, err, ErrEmptyFile)

	ext, err = Video.Check("lecture.mov", 500*mb)
	require.NoError(t, err)
	assert.Equal(t, "mov", ext)

	_, err = Resume.Check("cv.docx", 100)
	assert.ErrorIs(t, err, ErrExtensionInvalid)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "course_image/asha/intro-to-go.jpg", CourseImageKey("asha", "intro-to-go", "jpg"))
	assert.Equal(t, "thumbnails/intro-to-go/basics/03_hello-world.png", ThumbnailKey("intro-to-go", "basics", 3, "hello-world", "png"))
	assert.Equal(t, "videos/asha/intro-to-go/basics/12_loops.mp4", VideoKey("asha", "intro-to-go", "basics", 12, "loops", "mp4"))
	assert.Equal(t, "joiningapplications/4_asha-rao/cv.pdf", ResumeKey(4, "asha-rao", "../../cv.pdf"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("pdf"))
	assert.Equal(t, "application/octet-stream", ContentType("unknownext"))
}
