package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortOrder_String(t *testing.T) {
	tests := []struct {
		order  SortOrder
		expect string
	}{
		{SortByTotal, "total"},
		{SortByDownload, "download"},
		{SortByUpload, "upload"},
		{SortByName, "name"},
		{SortOrder(99), "total"},
	}

	for _, tt := range tests {
		t.Run(tt.expect, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.order.String())
		})
	}
}

func TestSortOrder_Next(t *testing.T) {
	assert.Equal(t, SortByDownload, SortByTotal.Next())
	assert.Equal(t, SortByUpload, SortByDownload.Next())
	assert.Equal(t, SortByName, SortByUpload.Next())
	assert.Equal(t, SortByTotal, SortByName.Next(), "wraps around")
}

func TestKeyMapHelp(t *testing.T) {
	k := defaultKeyMap()

	assert.NotEmpty(t, k.ShortHelp())
	var total int
	for _, group := range k.FullHelp() {
		total += len(group)
	}
	assert.Equal(t, 8, total, "every binding is listed in the full help")
}
