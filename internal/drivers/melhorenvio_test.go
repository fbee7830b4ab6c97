package drivers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-router/internal/common/httpx"
	"commerce-router/internal/service"
)

func melhorEnvioServer(t *testing.T, respond func(w http.ResponseWriter, body map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/me/shipment/calculate", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		respond(w, body)
	}))
}

func melhorEnvioConfig(apiURL string) map[string]interface{} {
	return map[string]interface{}{
		"token":    "test-token",
		"zip_code": "01001-000",
		"api_url":  apiURL,
	}
}

func TestMelhorEnvio_PicksCheapestCarrier(t *testing.T) {
	server := melhorEnvioServer(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "PAC", "price": "19.90", "delivery_time": 8, "company": {"name": "Correios"}},
			{"id": 2, "name": "SEDEX", "price": "32.50", "delivery_time": 3, "company": {"name": "Correios"}},
			{"id": 3, "name": ".Package", "price": "17.40", "delivery_time": 6, "company": {"name": "Jadlog"}}
		]`))
	})
	defer server.Close()

	d := NewMelhorEnvio(httpx.NewClient())
	payload := d.Execute(context.Background(),
		map[string]interface{}{"cep": "90010-000", "subtotal": 100.0},
		melhorEnvioConfig(server.URL))

	require.False(t, service.IsErrorPayload(payload))
	assert.Equal(t, "MelhorEnvio", payload["provider"])
	assert.Equal(t, "Jadlog", payload["carrier"])
	assert.Equal(t, 17.4, payload["cost"])
	assert.Equal(t, 6, payload["estimated_days"])
	assert.Len(t, payload["options"], 3)
}

func TestMelhorEnvio_AllowedCarriersFilter(t *testing.T) {
	server := melhorEnvioServer(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "PAC", "price": "19.90", "delivery_time": 8, "company": {"name": "Correios"}},
			{"id": 3, "name": ".Package", "price": "17.40", "delivery_time": 6, "company": {"name": "Jadlog"}}
		]`))
	})
	defer server.Close()

	config := melhorEnvioConfig(server.URL)
	config["allowed_carriers"] = []interface{}{"correios"}

	d := NewMelhorEnvio(httpx.NewClient())
	payload := d.Execute(context.Background(),
		map[string]interface{}{"cep": "90010-000"}, config)

	assert.Equal(t, "Correios", payload["carrier"])
	assert.Equal(t, 19.9, payload["cost"])
	assert.Len(t, payload["options"], 1)
}

func TestMelhorEnvio_OptionsWithErrorsAreSkipped(t *testing.T) {
	server := melhorEnvioServer(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "PAC", "price": "", "delivery_time": 0, "error": "out of coverage", "company": {"name": "Correios"}}
		]`))
	})
	defer server.Close()

	d := NewMelhorEnvio(httpx.NewClient())
	payload := d.Execute(context.Background(),
		map[string]interface{}{"cep": "90010-000"},
		melhorEnvioConfig(server.URL))

	assert.True(t, service.IsErrorPayload(payload))
	assert.Equal(t, "no carrier serves the destination", payload["message"])
}

func TestMelhorEnvio_BuildsSingleBoxFromItems(t *testing.T) {
	var gotPackage map[string]interface{}
	server := melhorEnvioServer(t, func(w http.ResponseWriter, body map[string]interface{}) {
		gotPackage, _ = body["package"].(map[string]interface{})
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "PAC", "price": "19.90", "delivery_time": 8, "company": {"name": "Correios"}}
		]`))
	})
	defer server.Close()

	d := NewMelhorEnvio(httpx.NewClient())
	request := map[string]interface{}{
		"cep": "90010-000",
		"items": []interface{}{
			map[string]interface{}{"quantity": 2.0, "weight_kg": 0.3, "length_cm": 20.0, "height_cm": 5.0, "width_cm": 15.0},
			map[string]interface{}{"quantity": 1.0, "weight_kg": 1.0, "length_cm": 30.0, "height_cm": 10.0, "width_cm": 10.0},
		},
	}
	payload := d.Execute(context.Background(), request, melhorEnvioConfig(server.URL))

	require.False(t, service.IsErrorPayload(payload))
	require.NotNil(t, gotPackage)
	assert.Equal(t, 30.0, gotPackage["length"])
	assert.Equal(t, 15.0, gotPackage["width"])
	assert.Equal(t, 20.0, gotPackage["height"]) // 2x5 + 1x10
	assert.InDelta(t, 1.6, gotPackage["weight"], 0.001)
}

func TestMelhorEnvio_InvalidDestinationCep(t *testing.T) {
	d := NewMelhorEnvio(httpx.NewClient())

	payload := d.Execute(context.Background(),
		map[string]interface{}{"cep": "123"},
		melhorEnvioConfig("http://unused"))

	assert.True(t, service.IsErrorPayload(payload))
}

func TestMelhorEnvio_UpstreamFailureIsAnErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewMelhorEnvio(httpx.NewClient())
	payload := d.Execute(context.Background(),
		map[string]interface{}{"cep": "90010-000"},
		melhorEnvioConfig(server.URL))

	assert.True(t, service.IsErrorPayload(payload))
	assert.Equal(t, "shipping quote unavailable", payload["message"])
}
