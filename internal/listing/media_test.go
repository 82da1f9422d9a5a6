package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVideo(t *testing.T) {
	assert.True(t, IsVideo("clip.mp4"))
	assert.True(t, IsVideo("photos/CLIP.MOV"))
	assert.True(t, IsVideo("a.avi"))
	assert.True(t, IsVideo("a.mkv"))
	assert.False(t, IsVideo("a.jpg"))
	assert.False(t, IsVideo("a.mp4.txt"))
	assert.False(t, IsVideo("noext"))
}

func TestFilterMedia(t *testing.T) {
	f := FilterMedia

	assert.True(t, f.Keep("a.jpg"))
	assert.True(t, f.Keep("a.JPEG"))
	assert.True(t, f.Keep("a.png"))
	assert.True(t, f.Keep("a.gif"))
	assert.True(t, f.Keep("a.mp4"))
	assert.False(t, f.Keep("report.pdf"))
	assert.False(t, f.Keep("data.bin"))
	assert.False(t, f.Keep("noext"))
}

func TestFilterAll(t *testing.T) {
	f := FilterAll

	assert.True(t, f.Keep("report.pdf"))
	assert.True(t, f.Keep("a.jpg"))
	assert.True(t, f.Keep("noext"))
}

func TestParseFilter(t *testing.T) {
	assert.Equal(t, FilterAll, ParseFilter("all"))
	assert.Equal(t, FilterAll, ParseFilter("ALL"))
	assert.Equal(t, FilterMedia, ParseFilter("media"))
	assert.Equal(t, FilterMedia, ParseFilter(""))
	assert.Equal(t, FilterMedia, ParseFilter("bogus"))
}
