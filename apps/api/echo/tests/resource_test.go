package tests

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestResourceAPI(t *testing.T) {
	token := getToken(t, admin)

	// create
	req, rec := newAuthRequest(http.MethodPost, "/api/students", token,
		[]byte(`{"name": "Asha Mwangi", "class": "Form 2", "boarder": true}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	doc := decodeMap(t, rec)
	id, _ := doc["id"].(string)
	if id == "" {
		t.Fatal("create returned no id")
	}
	if doc["created_at"] == nil || doc["updated_at"] == nil {
		t.Error("create returned no timestamps")
	}

	// retrieve
	req, rec = newAuthRequest(http.MethodGet, "/api/students/"+id, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve failed! code = %v", rec.Code)
	}
	if doc = decodeMap(t, rec); doc["name"] != "Asha Mwangi" {
		t.Errorf("retrieve name = %v", doc["name"])
	}

	// partial update keeps omitted fields
	req, rec = newAuthRequest(http.MethodPut, "/api/students/"+id, token, []byte(`{"class": "Form 3"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	doc = decodeMap(t, rec)
	if doc["class"] != "Form 3" || doc["name"] != "Asha Mwangi" {
		t.Errorf("update merged badly: %v", doc)
	}

	// filtered list
	req, rec = newAuthRequest(http.MethodGet, "/api/students?class=Form+3", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed! code = %v", rec.Code)
	}
	var found bool
	for _, d := range decodeList(t, rec) {
		if d["id"] == id {
			found = true
		}
	}
	if !found {
		t.Error("filtered list missed the record")
	}

	// search convenience
	req, rec = newAuthRequest(http.MethodGet, "/api/students/search?name=asha", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("search failed! code = %v", rec.Code)
	}
	if len(decodeList(t, rec)) == 0 {
		t.Error("search found nothing")
	}

	// delete, then the record is gone; a second delete still succeeds
	req, rec = newAuthRequest(http.MethodDelete, "/api/students/"+id, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete failed! code = %v", rec.Code)
	}
	req, rec = newAuthRequest(http.MethodGet, "/api/students/"+id, token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshallObj(t, errNotFound)}, rec)
	req, rec = newAuthRequest(http.MethodDelete, "/api/students/"+id, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("repeat delete code = %v; want %v", rec.Code, http.StatusNoContent)
	}

	tests := []httpTest{
		{
			name: "unknown collection", method: http.MethodGet, path: "/api/nonsense", token: token,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, errNotFound),
		},
		{
			name: "unknown id", method: http.MethodGet, path: "/api/teachers/nope", token: token,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, errNotFound),
		},
		{
			name: "no token", method: http.MethodGet, path: "/api/teachers",
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "bad limit", method: http.MethodGet, path: "/api/teachers?_limit=lots", token: token,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestListSortAndLimit(t *testing.T) {
	token := getToken(t, admin)

	for _, amount := range []int{300, 100, 200} {
		req, rec := newAuthRequest(http.MethodPost, "/api/fees", token,
			[]byte(fmt.Sprintf(`{"term": "sorting", "amount": %d}`, amount)))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create failed! code = %v", rec.Code)
		}
	}

	req, rec := newAuthRequest(http.MethodGet, "/api/fees?term=sorting&_sort=amount", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("sorted list failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	docs := decodeList(t, rec)
	if len(docs) != 3 {
		t.Fatalf("sorted list len = %v; want 3", len(docs))
	}
	if docs[0]["amount"].(float64) != 100 || docs[2]["amount"].(float64) != 300 {
		t.Errorf("ascending sort wrong: %v", docs)
	}

	// descending prefix and limit
	req, rec = newAuthRequest(http.MethodGet, "/api/fees?term=sorting&_sort=-amount&_limit=1", token)
	app.ServeHTTP(rec, req)
	docs = decodeList(t, rec)
	if len(docs) != 1 || docs[0]["amount"].(float64) != 300 {
		t.Errorf("descending limited list wrong: %v", docs)
	}
}

func TestBulkEndpoints(t *testing.T) {
	token := getToken(t, admin)

	req, rec := newAuthRequest(http.MethodPost, "/api/attendance/bulk", token,
		[]byte(`[
			{"student_id": "bs1", "class_id": "bc1", "date": "2026-03-01", "present": true},
			{"student_id": "bs2", "class_id": "bc1", "date": "2026-03-01", "present": false}
		]`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bulk create failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	if docs := decodeList(t, rec); len(docs) != 2 {
		t.Fatalf("bulk create returned %v records; want 2", len(docs))
	}

	req, rec = newAuthRequest(http.MethodGet, "/api/attendance/class/bc1", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("attendance by class failed! code = %v", rec.Code)
	}
	if docs := decodeList(t, rec); len(docs) != 2 {
		t.Errorf("attendance by class returned %v records; want 2", len(docs))
	}

	req, rec = newAuthRequest(http.MethodGet, "/api/attendance/student/bs1", token)
	app.ServeHTTP(rec, req)
	if docs := decodeList(t, rec); len(docs) != 1 {
		t.Errorf("attendance by student returned %v records; want 1", len(docs))
	}

	// malformed payload
	req, rec = newAuthRequest(http.MethodPost, "/api/marks/bulk", token, []byte(`{"not": "a list"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed bulk code = %v; want %v", rec.Code, http.StatusBadRequest)
	}
}

func TestStoreItemsAPI(t *testing.T) {
	token := getToken(t, admin)

	// status is derived on create, ignoring whatever the client claims
	req, rec := newAuthRequest(http.MethodPost, "/api/store_items", token,
		[]byte(`{"name": "Exercise Books", "quantity_in_stock": 8, "reorder_level": 20, "status": "In Stock"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	doc := decodeMap(t, rec)
	id, _ := doc["id"].(string)
	if doc["status"] != "Low Stock" {
		t.Errorf("derived status = %v; want Low Stock", doc["status"])
	}

	// restock
	req, rec = newAuthRequest(http.MethodPut, "/api/store_items/"+id, token,
		[]byte(`{"quantity_in_stock": 60}`))
	app.ServeHTTP(rec, req)
	if doc = decodeMap(t, rec); doc["status"] != "In Stock" {
		t.Errorf("restocked status = %v; want In Stock", doc["status"])
	}

	// low-stock report picks it back up once drained
	req, rec = newAuthRequest(http.MethodPut, "/api/store_items/"+id, token,
		[]byte(`{"quantity_in_stock": 0}`))
	app.ServeHTTP(rec, req)
	if doc = decodeMap(t, rec); doc["status"] != "Out of Stock" {
		t.Errorf("drained status = %v; want Out of Stock", doc["status"])
	}

	req, rec = newAuthRequest(http.MethodGet, "/api/store_items/low-stock/5", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("low-stock failed! code = %v", rec.Code)
	}
	var found bool
	for _, d := range decodeList(t, rec) {
		if d["id"] == id {
			found = true
		}
	}
	if !found {
		t.Error("low-stock report missed the drained item")
	}

	req, rec = newAuthRequest(http.MethodGet, "/api/store_items/low-stock/lots", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad threshold code = %v; want %v", rec.Code, http.StatusBadRequest)
	}
}

func TestAssignmentsExport(t *testing.T) {
	token := getToken(t, admin)

	// produce at least one assignment log entry
	req, rec := newAuthRequest(http.MethodPost, "/api/students", token,
		[]byte(`{"name": "Baraka Otieno", "dormitory_id": "DormA", "bed_number": "A1"}`))
	app.ServeHTTP(rec, req)
	id := decodeMap(t, rec)["id"].(string)
	req, rec = newAuthRequest(http.MethodPut, "/api/students/"+id, token,
		[]byte(`{"dormitory_id": "DormB", "bed_number": "B7"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("move failed! code = %v", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodGet, "/api/assignments/export", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("export content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "assignments.csv") {
		t.Errorf("export disposition = %q", cd)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, `"timestamp","student_id","student_name"`) {
		t.Errorf("export header wrong: %q", strings.SplitN(body, "\n", 2)[0])
	}
	if !strings.Contains(body, `"Baraka Otieno"`) || !strings.Contains(body, `"reassign"`) {
		t.Error("export missing the logged move")
	}
	if !strings.Contains(body, `"admin@shule.test"`) {
		t.Error("export missing the acting user")
	}
}
