package request

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/domain"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: `3`, want: 3},
		{raw: `"7"`, want: 7},
		{raw: `" 2 "`, want: 2},
		{raw: `0`, wantErr: true},
		{raw: `-4`, wantErr: true},
		{raw: `1.5`, wantErr: true},
		{raw: `"abc"`, wantErr: true},
		{raw: `null`, wantErr: true},
		{raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseQuantity(json.RawMessage(tt.raw))
			if tt.wantErr {
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "quantity", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID(t *testing.T) {
	_, err := ParseID("product_id", "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	id, err := ParseID("product_id", "6f1c2a3e-0d55-4a8e-9a43-0a7b7e0f5c11")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2a3e-0d55-4a8e-9a43-0a7b7e0f5c11", id.String())
}

func TestGetPaginationParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=500&offset=-2", nil)
	limit, offset := GetPaginationParams(r)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	r = httptest.NewRequest("GET", "/?limit=5&offset=10", nil)
	limit, offset = GetPaginationParams(r)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 10, offset)
}
