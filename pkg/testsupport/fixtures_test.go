package testsupport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-orderflow/pkg/backend"
)

// The fake must speak the same wire shapes the real client decodes; these
// tests go through backend.Client rather than raw HTTP to pin that contract.

func TestServerVerifyPINMatchesClientShape(t *testing.T) {
	server := NewServer(t, ProductPage())
	client, err := backend.New(server.URL)
	require.NoError(t, err)

	ctx := context.Background()

	valid, err := client.VerifyPIN(ctx, "1234")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = client.VerifyPIN(ctx, "0000")
	require.NoError(t, err)
	assert.False(t, valid)

	server.SetPIN("9876")
	valid, err = client.VerifyPIN(ctx, "9876")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestServerProductPageMatchesClientShape(t *testing.T) {
	server := NewServer(t, ProductPage())
	client, err := backend.New(server.URL)
	require.NoError(t, err)

	page, err := client.ProductPage(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, "US Dollar", page.Product.Name)
	assert.Equal(t, "1500", page.Rate.String())
	require.Len(t, page.FormFields, 2)
	assert.Equal(t, "Sender's Name", page.FormFields[0].Label)
}
