package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohsenim/carprice/dataset"
	"github.com/mohsenim/carprice/pkg/errors"
)

// stubPredictor lets each test control the model behind the handler.
type stubPredictor struct {
	fn func(b dataset.Batch) ([]float64, error)
}

func (s *stubPredictor) Predict(b dataset.Batch) ([]float64, error) {
	return s.fn(b)
}

// echoHP answers each row with its hp value, so tests can check that
// request rows reach the model intact and in order.
func echoHP(b dataset.Batch) ([]float64, error) {
	out := make([]float64, b.Len())
	for i := range out {
		out[i] = b.Numeric.At(i, 1)
	}
	return out, nil
}

func newTestMux(t *testing.T, fn func(dataset.Batch) ([]float64, error)) *http.ServeMux {
	t.Helper()
	h := NewHandlers(&stubPredictor{fn: fn}, dataset.FeatureColumns(), zerolog.Nop())
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func record(overrides map[string]interface{}) map[string]interface{} {
	r := map[string]interface{}{
		"make":        "BMW",
		"model":       "316",
		"fuel":        "Diesel",
		"gear":        "Manual",
		"offerType":   "Used",
		"mileage_log": 11.8,
		"hp":          116.0,
		"age":         10.0,
	}
	for k, v := range overrides {
		if v == nil {
			delete(r, k)
		} else {
			r[k] = v
		}
	}
	return r
}

func postPredict(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func marshalRecords(t *testing.T, records []map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(records)
	require.NoError(t, err)
	return string(data)
}

func TestPredictValidBatch(t *testing.T) {
	mux := newTestMux(t, echoHP)

	body := marshalRecords(t, []map[string]interface{}{
		record(map[string]interface{}{"hp": 116.0}),
		record(map[string]interface{}{"hp": 190.0}),
		record(map[string]interface{}{"hp": 75.0}),
	})
	rec := postPredict(mux, body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out []float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []float64{116, 190, 75}, out)
}

func TestPredictEmptyBatch(t *testing.T) {
	called := false
	mux := newTestMux(t, func(b dataset.Batch) ([]float64, error) {
		called = true
		return []float64{}, nil
	})

	rec := postPredict(mux, "[]")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestPredictMissingColumn(t *testing.T) {
	mux := newTestMux(t, echoHP)

	body := marshalRecords(t, []map[string]interface{}{
		record(map[string]interface{}{"hp": nil}),
	})
	rec := postPredict(mux, body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "hp")
	assert.Contains(t, rec.Body.String(), "missing")
}

func TestPredictExtraColumn(t *testing.T) {
	mux := newTestMux(t, echoHP)

	body := marshalRecords(t, []map[string]interface{}{
		record(map[string]interface{}{"color": "red"}),
	})
	rec := postPredict(mux, body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "color")
}

func TestPredictWrongType(t *testing.T) {
	mux := newTestMux(t, echoHP)

	body := marshalRecords(t, []map[string]interface{}{
		record(map[string]interface{}{"hp": "plenty"}),
	})
	rec := postPredict(mux, body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "hp")
}

func TestPredictInvalidJSON(t *testing.T) {
	mux := newTestMux(t, echoHP)

	rec := postPredict(mux, "{not json")

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictBodyNotArray(t *testing.T) {
	mux := newTestMux(t, echoHP)

	rec := postPredict(mux, `{"make": "BMW"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "array")
}

func TestPredictUnknownCategory(t *testing.T) {
	mux := newTestMux(t, func(b dataset.Batch) ([]float64, error) {
		return nil, errors.NewValueError("OrdinalEncoder.Transform", "unknown category \"DeLorean\" in column 0")
	})

	rec := postPredict(mux, marshalRecords(t, []map[string]interface{}{record(nil)}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "DeLorean")
}

func TestPredictInternalError(t *testing.T) {
	mux := newTestMux(t, func(b dataset.Batch) ([]float64, error) {
		return nil, errors.New("model storage corrupted")
	})

	rec := postPredict(mux, marshalRecords(t, []map[string]interface{}{record(nil)}))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal details stay out of the response body.
	assert.NotContains(t, rec.Body.String(), "corrupted")
	assert.Contains(t, rec.Body.String(), "prediction failed")
}

func TestPredictMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t, echoHP)

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(t, echoHP)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestTimeoutMiddleware(t *testing.T) {
	mux := newTestMux(t, func(b dataset.Batch) ([]float64, error) {
		time.Sleep(200 * time.Millisecond)
		return []float64{1}, nil
	})
	handler := TimeoutMiddleware(20*time.Millisecond, zerolog.Nop())(mux)

	req := httptest.NewRequest(http.MethodPost, "/predict",
		strings.NewReader(marshalRecords(t, []map[string]interface{}{record(nil)})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeout")
}

func TestTimeoutMiddlewarePassthrough(t *testing.T) {
	mux := newTestMux(t, echoHP)
	handler := TimeoutMiddleware(5*time.Second, zerolog.Nop())(mux)

	req := httptest.NewRequest(http.MethodPost, "/predict",
		strings.NewReader(marshalRecords(t, []map[string]interface{}{record(nil)})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out []float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []float64{116}, out)
}

func TestRecoveryMiddleware(t *testing.T) {
	mux := newTestMux(t, func(b dataset.Batch) ([]float64, error) {
		panic("boom")
	})
	handler := RecoveryMiddleware(zerolog.Nop())(mux)

	req := httptest.NewRequest(http.MethodPost, "/predict",
		strings.NewReader(marshalRecords(t, []map[string]interface{}{record(nil)})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

// A panic inside the timeout layer happens on the handler goroutine;
// the full production chain must still answer 500 and keep the process
// alive.
func TestPanicUnderFullChain(t *testing.T) {
	mux := newTestMux(t, func(b dataset.Batch) ([]float64, error) {
		panic("boom")
	})
	chain := Chain(
		RecoveryMiddleware(zerolog.Nop()),
		RequestLogger(zerolog.Nop()),
		TimeoutMiddleware(5*time.Second, zerolog.Nop()),
	)
	handler := chain(mux)

	req := httptest.NewRequest(http.MethodPost, "/predict",
		strings.NewReader(marshalRecords(t, []map[string]interface{}{record(nil)})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
