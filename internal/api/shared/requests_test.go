package shared

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test",
			bytes.NewBufferString(`{"url":"https://example.com/v","name":"Pasta","extra":true}`))

		var got payload
		require.NoError(t, DecodeJSON(req, &got))
		assert.Equal(t, "https://example.com/v", got.URL)
		assert.Equal(t, "Pasta", got.Name)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test",
			bytes.NewBufferString(`{"url": }`))

		var got payload
		assert.Error(t, DecodeJSON(req, &got))
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(""))

		var got payload
		assert.Error(t, DecodeJSON(req, &got))
	})
}

type selfValidating struct {
	ok bool
}

func (s *selfValidating) Validate() error {
	if !s.ok {
		return errors.New("not ok")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	type tagged struct {
		URL string `validate:"required,url"`
	}

	assert.NoError(t, ValidateRequest(&tagged{URL: "https://example.com/v"}))
	assert.Error(t, ValidateRequest(&tagged{URL: "not a url"}))
	assert.Error(t, ValidateRequest(&tagged{}))

	// Custom Validate takes precedence over struct tags
	assert.NoError(t, ValidateRequest(&selfValidating{ok: true}))
	assert.Error(t, ValidateRequest(&selfValidating{ok: false}))
}
