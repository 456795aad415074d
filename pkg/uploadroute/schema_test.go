package uploadroute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/uploadroute"
)

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name      string
		schema    uploadroute.Schema
		file      uploadroute.FileInfo
		wantError bool
		wantField string
	}{
		{
			name:   "unconstrained schema accepts any file",
			schema: uploadroute.FileSchema(),
			file:   uploadroute.FileInfo{Name: "report.pdf", Size: 1024, Type: "application/pdf"},
		},
		{
			name:      "missing name rejected",
			schema:    uploadroute.FileSchema(),
			file:      uploadroute.FileInfo{Size: 1024, Type: "application/pdf"},
			wantError: true,
			wantField: "name",
		},
		{
			name:      "zero size rejected",
			schema:    uploadroute.FileSchema(),
			file:      uploadroute.FileInfo{Name: "empty.bin", Type: "application/octet-stream"},
			wantError: true,
			wantField: "size",
		},
		{
			name:   "size within limit accepted",
			schema: uploadroute.Schema{Kind: uploadroute.SchemaKindFile, MaxSize: 5 * 1024 * 1024},
			file:   uploadroute.FileInfo{Name: "photo.jpg", Size: 3 * 1024 * 1024, Type: "image/jpeg"},
		},
		{
			name:      "size over limit rejected",
			schema:    uploadroute.Schema{Kind: uploadroute.SchemaKindFile, MaxSize: 5 * 1024 * 1024},
			file:      uploadroute.FileInfo{Name: "big.png", Size: 11 * 1024 * 1024, Type: "image/png"},
			wantError: true,
			wantField: "size",
		},
		{
			name:   "exact mime type match",
			schema: uploadroute.Schema{Kind: uploadroute.SchemaKindImage, AllowedTypes: []string{"image/jpeg", "image/png"}},
			file:   uploadroute.FileInfo{Name: "photo.jpg", Size: 100, Type: "image/jpeg"},
		},
		{
			name:   "mime type with parameters matches",
			schema: uploadroute.Schema{Kind: uploadroute.SchemaKindFile, AllowedTypes: []string{"text/plain"}},
			file:   uploadroute.FileInfo{Name: "notes.txt", Size: 100, Type: "text/plain; charset=utf-8"},
		},
		{
			name:   "wildcard matches subtype",
			schema: uploadroute.Schema{Kind: uploadroute.SchemaKindImage, AllowedTypes: []string{"image/*"}},
			file:   uploadroute.FileInfo{Name: "pic.webp", Size: 100, Type: "image/webp"},
		},
		{
			name:      "wildcard does not match other top-level type",
			schema:    uploadroute.Schema{Kind: uploadroute.SchemaKindImage, AllowedTypes: []string{"image/*"}},
			file:      uploadroute.FileInfo{Name: "movie.mp4", Size: 100, Type: "video/mp4"},
			wantError: true,
			wantField: "type",
		},
		{
			name:      "disallowed mime type rejected",
			schema:    uploadroute.Schema{Kind: uploadroute.SchemaKindImage, AllowedTypes: []string{"image/jpeg"}},
			file:      uploadroute.FileInfo{Name: "pic.gif", Size: 100, Type: "image/gif"},
			wantError: true,
			wantField: "type",
		},
		{
			name:   "allowed extension accepted",
			schema: uploadroute.Schema{Kind: uploadroute.SchemaKindFile, AllowedExtensions: []string{".pdf", "txt"}},
			file:   uploadroute.FileInfo{Name: "notes.TXT", Size: 100, Type: "text/plain"},
		},
		{
			name:      "disallowed extension rejected",
			schema:    uploadroute.Schema{Kind: uploadroute.SchemaKindFile, AllowedExtensions: []string{".pdf"}},
			file:      uploadroute.FileInfo{Name: "script.sh", Size: 100, Type: "text/x-sh"},
			wantError: true,
			wantField: "extension",
		},
		{
			name:   "missing extension falls back to declared mime type",
			schema: uploadroute.Schema{Kind: uploadroute.SchemaKindFile, AllowedExtensions: []string{".pdf"}},
			file:   uploadroute.FileInfo{Name: "contract", Size: 100, Type: "application/pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate(tt.file)

			if !tt.wantError {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var verr *uploadroute.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestSchemaConstructors(t *testing.T) {
	assert.Equal(t, uploadroute.SchemaKindFile, uploadroute.FileSchema().Kind)

	img := uploadroute.ImageSchema()
	assert.Equal(t, uploadroute.SchemaKindImage, img.Kind)
	assert.Contains(t, img.AllowedTypes, "image/*")

	arr := uploadroute.ArraySchema(4)
	assert.Equal(t, uploadroute.SchemaKindArray, arr.Kind)
	assert.Equal(t, 4, arr.MaxFiles)
}
