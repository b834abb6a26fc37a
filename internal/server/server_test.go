package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/directory"
	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/live"
	"github.com/vinochelo/extractor/internal/llm"
	"github.com/vinochelo/extractor/internal/repository"
	"github.com/vinochelo/extractor/internal/retentions"
)

type stubExtractor struct {
	data entity.RetentionData
	err  error
}

func (s stubExtractor) Extract(_ context.Context, uri, _ string) (entity.RetentionData, error) {
	if _, _, err := llm.DecodeDataURI(uri); err != nil {
		return entity.RetentionData{}, common.InvalidInputf("el archivo debe ser un PDF")
	}
	return s.data, s.err
}

var sampleData = entity.RetentionData{
	NumeroRetencion:      "001-002-123456789",
	NumeroAutorizacion:   "1503202407",
	RazonSocialProveedor: "ACME S.A.",
	RucProveedor:         "1790000000001",
	NumeroFactura:        "001-001-000000123",
	FechaEmision:         "15/03/2024",
}

type pingFailStore struct{ repository.RetentionStore }

func (pingFailStore) Ping(context.Context) error { return common.StoreFailure("ping", io.ErrUnexpectedEOF) }

func newTestServer(t *testing.T, ext retentions.Extractor, store repository.RetentionStore) *httptest.Server {
	t.Helper()
	if store == nil {
		store = repository.NewMemoryStore(nil)
	}
	hub := live.NewHub(store, nil)
	t.Cleanup(hub.Close)
	svc := retentions.NewService(ext, store, hub, directory.New(repository.NewMemoryKV(), nil), nil)
	srv := httptest.NewServer(NewServer(svc, common.ServerConfig{}, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, owner, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func submitJSON(t *testing.T, base, owner string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"pdfDataUri": llm.EncodePDFDataURI([]byte("%PDF-1.4")),
		"fileName":   "ret.pdf",
	})
	return do(t, http.MethodPost, base+"/v1/retentions", owner, "application/json", bytes.NewReader(body))
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, stubExtractor{data: sampleData}, nil)
	resp := do(t, http.MethodGet, srv.URL+"/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bad := newTestServer(t, stubExtractor{data: sampleData}, pingFailStore{repository.NewMemoryStore(nil)})
	resp = do(t, http.MethodGet, bad.URL+"/healthz", "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestOwnerHeaderRequired(t *testing.T) {
	srv := newTestServer(t, stubExtractor{data: sampleData}, nil)
	resp := do(t, http.MethodGet, srv.URL+"/v1/retentions", "", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, common.CodeUnauthorized, body.Error)
}

func TestSubmitThenDuplicate(t *testing.T) {
	srv := newTestServer(t, stubExtractor{data: sampleData}, nil)

	resp := submitJSON(t, srv.URL, "u1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[submitResponse](t, resp)
	assert.False(t, created.Duplicate)
	assert.Equal(t, entity.SubmissionConfirmed, created.Submission)
	assert.Equal(t, "Solicitado", created.Record.Estado.String())

	resp = submitJSON(t, srv.URL, "u1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dup := decode[submitResponse](t, resp)
	assert.True(t, dup.Duplicate)
	assert.Contains(t, dup.DuplicateMessage, "001-002-123456789")
	assert.Equal(t, entity.SubmissionPreview, dup.Submission)
	assert.Equal(t, "temp-preview", dup.Record.ID)

	resp = do(t, http.MethodGet, srv.URL+"/v1/retentions", "u1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]entity.RetentionRecord](t, resp), 1)

	resp = do(t, http.MethodGet, srv.URL+"/v1/retentions", "u2", "", nil)
	assert.Empty(t, decode[[]entity.RetentionRecord](t, resp))
}

func TestSubmitMultipart(t *testing.T) {
	srv := newTestServer(t, stubExtractor{data: sampleData}, nil)

	build := func(partType string) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="ret.pdf"`)
		h.Set("Content-Type", partType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte("%PDF-1.4 body"))
		require.NoError(t, mw.Close())
		return &buf, mw.FormDataContentType()
	}

	body, ct := build("image/png")
	resp := do(t, http.MethodPost, srv.URL+"/v1/retentions", "u1", ct, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, common.CodeInvalidInput, decode[errorBody](t, resp).Error)

	body, ct = build("application/pdf")
	resp = do(t, http.MethodPost, srv.URL+"/v1/retentions", "u1", ct, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ret.pdf", decode[submitResponse](t, resp).Record.FileName)
}

func TestSubmitErrorsMapToStatus(t *testing.T) {
	failing := stubExtractor{err: common.ExtractionFailure("extraction service failed", io.ErrUnexpectedEOF)}
	srv := newTestServer(t, failing, nil)

	resp := submitJSON(t, srv.URL, "u1")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, common.CodeExtractionFailure, body.Error)
	assert.Contains(t, body.Message, "extraction service failed")

	resp = do(t, http.MethodPost, srv.URL+"/v1/retentions", "u1", "application/json", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusLifecycle(t *testing.T) {
	srv := newTestServer(t, stubExtractor{data: sampleData}, nil)
	rec := decode[submitResponse](t, submitJSON(t, srv.URL, "u1")).Record
	base := srv.URL + "/v1/retentions/" + rec.ID

	resp := do(t, http.MethodGet, base+"/actions", "u1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	actions := decode[[]map[string]any](t, resp)
	require.Len(t, actions, 2)
	assert.Equal(t, "Marcar Pendiente Anular", actions[0]["label"])

	resp = do(t, http.MethodPatch, base+"/status", "u1", "application/json", strings.NewReader(`{"estado":"Anulado"}`))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPatch, base+"/status", "u1", "application/json", strings.NewReader(`{"estado":"Pendiente Anular"}`))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPost, base+"/actions/mark-voided", "u1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Anulado", decode[entity.RetentionRecord](t, resp).Estado.String())

	resp = do(t, http.MethodPatch, base+"/status", "u1", "application/json", strings.NewReader(`{"estado":"Borrado"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPatch, srv.URL+"/v1/retentions/missing/status", "u1", "application/json", strings.NewReader(`{"estado":"Anulado"}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, base, "u1", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodDelete, base, "u1", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, base, "u1", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProvidersAndShare(t *testing.T) {
	srv := newTestServer(t, stubExtractor{data: sampleData}, nil)
	rec := decode[submitResponse](t, submitJSON(t, srv.URL, "u1")).Record

	resp := do(t, http.MethodPost, srv.URL+"/v1/providers/emails/import", "u1", "application/json",
		strings.NewReader(`{"1790000000001":"pagos@acme.ec"}`))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/v1/providers/emails/import", "u1", "text/csv; charset=utf-8",
		strings.NewReader("ruc,email\n1790000000001,pagos@acme.ec\n"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, importResponse{ValidRows: 1}, decode[importResponse](t, resp))

	resp = do(t, http.MethodGet, srv.URL+"/v1/providers/emails/1790000000001", "u1", "", nil)
	assert.Equal(t, lookupResponse{RUC: "1790000000001", Email: "pagos@acme.ec"}, decode[lookupResponse](t, resp))

	resp = do(t, http.MethodGet, srv.URL+"/v1/retentions/"+rec.ID+"/share", "u1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	shared := decode[map[string]any](t, resp)
	assert.Equal(t, "pagos@acme.ec", shared["to"])
	assert.Equal(t, "Anulación retención.", shared["subject"])
	assert.True(t, strings.HasPrefix(shared["mailto"].(string), "mailto:pagos%40acme.ec?"))
	assert.Contains(t, shared["verifyUrl"], "srienlinea.sri.gob.ec")

	resp = do(t, http.MethodPut, srv.URL+"/v1/providers/emails", "u1", "application/json", strings.NewReader(`{"0990000000001":"c@d.com"}`))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, srv.URL+"/v1/providers/emails/1790000000001", "u1", "", nil)
	assert.Equal(t, "", decode[lookupResponse](t, resp).Email)
}

func TestExportXLSX(t *testing.T) {
	srv := newTestServer(t, stubExtractor{data: sampleData}, nil)
	submitJSON(t, srv.URL, "u1")

	resp := do(t, http.MethodGet, srv.URL+"/v1/retentions/export.xlsx", "u1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "retenciones-")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(body[:2]))
}

func TestStream(t *testing.T) {
	srv := newTestServer(t, stubExtractor{data: sampleData}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/retentions/stream", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "u1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 8)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				events <- data
			}
		}
	}()

	next := func() []entity.RetentionRecord {
		select {
		case data, ok := <-events:
			require.True(t, ok, "stream closed")
			var recs []entity.RetentionRecord
			require.NoError(t, json.Unmarshal([]byte(data), &recs))
			return recs
		case <-ctx.Done():
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}

	assert.Empty(t, next())
	submitJSON(t, srv.URL, "u1")
	assert.Len(t, next(), 1)
}
