package jobs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantField string
	}{
		{"valid single url", Request{StoreType: "Spinneys", URL: "https://www.spinneys.com/en-ae/catalogue/category/frozen"}, ""},
		{"empty url uses store default", Request{StoreType: "Almeera"}, ""},
		{"valid categories", Request{StoreType: "Union Coop", Categories: []string{"frozen-food", " frozen-snacks "}}, ""},
		{"missing store", Request{URL: "https://almeera.online/"}, "store_type"},
		{"negative page limit", Request{StoreType: "Almeera", MaxPages: -1}, "max_pages"},
		{"blank categories", Request{StoreType: "Almeera", Categories: []string{" ", "/"}}, "categories"},
		{"not a url", Request{StoreType: "Almeera", URL: "almeera.online"}, "url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			if assert.True(t, errors.As(err, &verr)) {
				assert.Equal(t, tt.wantField, verr.Field)
			}
		})
	}
}

func TestRequestValidateNormalises(t *testing.T) {
	req := Request{StoreType: "  Union Coop ", URL: " https://www.unioncoop.ae/x.html ", Categories: []string{" frozen-food/", "", "frozen-meats"}}
	assert.NoError(t, req.Validate())
	assert.Equal(t, "Union Coop", req.StoreType)
	assert.Equal(t, "https://www.unioncoop.ae/x.html", req.URL)
	assert.Equal(t, []string{"frozen-food", "frozen-meats"}, req.Categories)
	assert.Equal(t, SourceWeb, req.Source)
	assert.True(t, req.MultiCategory())
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "url: url is required", (&ValidationError{Field: "url", Message: "url is required"}).Error())
	assert.Equal(t, "bad request", (&ValidationError{Message: "bad request"}).Error())
}
