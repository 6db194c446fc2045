package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-orderflow/pkg/payload"
	"github.com/goliatone/go-orderflow/pkg/schema"
)

func TestProductPage(t *testing.T) {
	var gotAuth, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/orders/product-page", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{
			"product":{"id":"usd","name":"US Dollar","code":"USD","symbol":"$"},
			"rate":"1500",
			"fee":{"percent":"2","fixed":"0"},
			"limits":{"min":"10","max":"10000"},
			"form_fields":[
				{"label":"Sender's Name","type":"text","required":true},
				{"label":"Transaction Screenshot","type":"file","required":true}
			]}}`))
	}))
	defer server.Close()

	client, err := New(server.URL, WithTokenSource(StaticToken("tok-123")))
	require.NoError(t, err)

	page, err := client.ProductPage(context.Background(), "usd")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "product_id=usd", gotQuery)
	assert.Equal(t, "US Dollar", page.Product.Name)
	assert.True(t, page.Rate.Equal(decimal.NewFromInt(1500)))
	assert.True(t, page.Fee.Percent.Equal(decimal.NewFromInt(2)))
	require.Len(t, page.FormFields, 2)
	assert.Equal(t, schema.FieldTypeFile, page.FormFields[1].Type)
}

func TestVerifyPIN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify-pin", r.URL.Path)
		if r.URL.Query().Get("pin") == "2468" {
			_, _ = w.Write([]byte(`{"valid":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"valid":false}`))
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	valid, err := client.VerifyPIN(context.Background(), "2468")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = client.VerifyPIN(context.Background(), "0000")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "usd", r.FormValue("product_id"))
		_, _ = w.Write([]byte(`{"status":"success","message":"Order completed","data":{"reference":"ord-42"}}`))
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	encoded, err := payload.NewEncoder().Encode(context.Background(), payload.Input{
		ProductID: "usd",
		Amount:    "50",
	})
	require.NoError(t, err)

	result, err := client.Submit(context.Background(), encoded)
	require.NoError(t, err)
	assert.Equal(t, "ord-42", result.Reference)
	assert.Equal(t, "Order completed", result.Message)
}

func TestSubmit_ErrorStatusInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"Insufficient wallet balance"}`))
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	encoded, err := payload.NewEncoder().Encode(context.Background(), payload.Input{ProductID: "usd", Amount: "50"})
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), encoded)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Insufficient wallet balance", apiErr.Message)
}

func TestErrorDecoding(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "first field error wins",
			body: `{"message":"The given data was invalid","errors":{"amount":["Amount exceeds your daily limit"],"pin":["PIN mismatch"]}}`,
			want: "Amount exceeds your daily limit",
		},
		{
			name: "message fallback",
			body: `{"message":"Service temporarily unavailable"}`,
			want: "Service temporarily unavailable",
		},
		{
			name: "generic fallback for unstructured body",
			body: `<html>502 Bad Gateway</html>`,
			want: genericFailureMessage,
		},
		{
			name: "markup stripped from message",
			body: `{"message":"<b>Card declined</b> by issuer"}`,
			want: "Card declined by issuer",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := New(server.URL)
			require.NoError(t, err)

			_, err = client.ProductPage(context.Background(), "usd")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
		})
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("   ")
	require.Error(t, err)
}

func TestContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.ProductPage(ctx, "usd")
		done <- err
	}()
	<-started
	cancel()
	require.Error(t, <-done)
}
