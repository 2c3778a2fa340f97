package tests

import (
	"net/http"
	"testing"
)

func TestPushAPI(t *testing.T) {
	token := getToken(t, admin)
	endpoint := "https://push.example.test/sub/1"

	// subscribing and fetching the delivery key need no account
	req, rec := newRequest(http.MethodPost, "/api/push/subscribe",
		[]byte(`{"endpoint": "`+endpoint+`", "keys": {"p256dh": "pk", "auth": "ak"}}`))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusCreated,
		wantData: marshallObj(t, map[string]string{"success": "subscribed"}),
	}, rec)

	// resubscribing the same endpoint is fine
	req, rec = newRequest(http.MethodPost, "/api/push/subscribe",
		[]byte(`{"endpoint": "`+endpoint+`", "keys": {"p256dh": "pk", "auth": "ak"}}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("resubscribe code = %v; want %v", rec.Code, http.StatusCreated)
	}

	req, rec = newRequest(http.MethodGet, "/api/push/publicKey")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshallObj(t, map[string]string{"publicKey": "test-public-key"}),
	}, rec)

	tests := []httpTest{
		{
			name: "subscribe: invalid endpoint", method: http.MethodPost, path: "/api/push/subscribe",
			body:     []byte(`{"endpoint": "not a url"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "notify: no token", method: http.MethodPost, path: "/api/push/notify",
			body:     []byte(`{"title": "T", "message": "M"}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "notify: missing fields", method: http.MethodPost, path: "/api/push/notify",
			body: []byte(`{}`), token: token,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"title":   "this field is required",
				"message": "this field is required",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the notify endpoint waits for the fan-out, so the delivery is visible
	// as soon as the response lands
	before := transport.delivered(endpoint)
	req, rec = newAuthRequest(http.MethodPost, "/api/push/notify", token,
		[]byte(`{"title": "Store Alert", "message": "Chalk is running low"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("notify failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	if got := transport.delivered(endpoint); got != before+1 {
		t.Errorf("deliveries = %v; want %v", got, before+1)
	}
}
