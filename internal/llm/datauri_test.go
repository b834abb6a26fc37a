package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURI_RoundTrip(t *testing.T) {
	uri := EncodePDFDataURI([]byte("%PDF-1.7"))
	assert.Equal(t, "data:application/pdf;base64,JVBERi0xLjc=", uri)

	mt, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mt)
	assert.Equal(t, []byte("%PDF-1.7"), data)
}

func TestParseDataURI_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"application/pdf;base64,AAAA",
		"data:application/pdf,AAAA",
		"data:;base64,AAAA",
		"data:application/pdf;base64",
	} {
		_, _, err := ParseDataURI(in)
		assert.Error(t, err, in)
	}
}

func TestDecodeDataURI_BadBase64(t *testing.T) {
	_, _, err := DecodeDataURI("data:application/pdf;base64,***")
	assert.Error(t, err)
}

func TestValidateExtractionInput(t *testing.T) {
	require.NoError(t, ValidateExtractionInput("data:application/pdf;base64,JVBERg==", "a.pdf"))
	require.NoError(t, ValidateExtractionInput("data:application/pdf;base64,JVBERg==", ""))

	err := ValidateExtractionInput("data:image/png;base64,iVBORw==", "a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input does not match schema")
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildRetentionJSONSchema()
	require.NoError(t, ValidateJSONAgainstSchema(schema, []byte(fullAnswer)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"numeroRetencion":"1"}`)))
}
