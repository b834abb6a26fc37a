package llm

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/vinochelo/extractor/constants"
)

var errMalformedDataURI = errors.New("malformed data URI: expected data:<mimetype>;base64,<data>")

// ParseDataURI splits "data:<mime>;base64,<body>" into its MIME type and
// base64 body. The body is not decoded.
func ParseDataURI(uri string) (mimeType, body string, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", "", errMalformedDataURI
	}
	header, body, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", errMalformedDataURI
	}
	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok || mimeType == "" {
		return "", "", errMalformedDataURI
	}
	return mimeType, body, nil
}

// DecodeDataURI parses uri and decodes its standard base64 body.
func DecodeDataURI(uri string) (mimeType string, data []byte, err error) {
	mimeType, body, err := ParseDataURI(uri)
	if err != nil {
		return "", nil, err
	}
	data, err = base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", nil, err
	}
	return mimeType, data, nil
}

// EncodeDataURI builds a data URI for bytes of the given MIME type.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EncodePDFDataURI is EncodeDataURI for application/pdf.
func EncodePDFDataURI(pdf []byte) string {
	return EncodeDataURI(constants.MimePDF, pdf)
}
