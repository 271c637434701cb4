package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/styleverse/progression/internal/archive"
	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/internal/sandbox"
	"github.com/styleverse/progression/pkg/formula"
)

const testScript = `INT. GALA - NIGHT

[EVENT: name="Charity Gala" prestige=7 cost=150 strictness=6 deadline="high"]

Lala makes her entrance.`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sandbox.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	workflow := evaluation.NewService(store, nil)
	exports := archive.NewService(store, archive.NewLocalStorage(t.TempDir()))

	mux := http.NewServeMux()
	NewHandler(workflow, nil, exports).RegisterRoutes(mux)

	srv := httptest.NewServer(CORS(mux))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func putEpisode(t *testing.T, srv *httptest.Server, id string, number int, script string) {
	t.Helper()
	body, _ := json.Marshal(map[string]any{
		"show_id":        "show-1",
		"season_id":      "s1",
		"episode_number": number,
		"title":          "Episode",
		"script_content": script,
	})
	resp, decoded := doJSON(t, http.MethodPut, srv.URL+"/api/v1/episodes/"+id, string(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put episode: %d %v", resp.StatusCode, decoded)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	srv := newTestServer(t)
	putEpisode(t, srv, "ep-1", 1, testScript)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/evaluate", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("evaluate: %d %v", resp.StatusCode, body)
	}
	if body["score"] != float64(48) {
		t.Errorf("score = %v, want 48", body["score"])
	}
	if body["tier_final"] != "mid" {
		t.Errorf("tier_final = %v, want mid", body["tier_final"])
	}
	if body["character_key"] != "lala" {
		t.Errorf("character_key = %v", body["character_key"])
	}
}

func TestEvaluateMissingTagIs400(t *testing.T) {
	srv := newTestServer(t)
	putEpisode(t, srv, "ep-1", 1, "INT. APARTMENT - DAY\n\nNo tags.")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/evaluate", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["code"] != "NO_EVENT_TAG" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestEvaluateUnknownEpisodeIs404(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/missing/evaluate", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestOverrideAndAcceptFlow(t *testing.T) {
	srv := newTestServer(t)
	putEpisode(t, srv, "ep-1", 1, testScript)

	if resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/evaluate", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("evaluate: %d %v", resp.StatusCode, body)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/override",
		`{"tier_to":"pass","reason_code":"SPONSOR_SAVED"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("override: %d %v", resp.StatusCode, body)
	}
	if body["tier_final"] != "pass" {
		t.Errorf("tier_final = %v, want pass", body["tier_final"])
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/accept", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: %d %v", resp.StatusCode, body)
	}
	newState := body["new_state"].(map[string]any)
	if newState["coins"] != float64(350) {
		t.Errorf("coins = %v, want 350", newState["coins"])
	}

	// Double accept conflicts.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/accept", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second accept: %d, want 409", resp.StatusCode)
	}
	if body["code"] != "ALREADY_ACCEPTED" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestOutOfOrderAcceptIs409(t *testing.T) {
	srv := newTestServer(t)
	putEpisode(t, srv, "ep-5", 5, testScript)
	putEpisode(t, srv, "ep-3", 3, testScript)

	doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-5/evaluate", "")
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-5/accept", "")
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-3/evaluate", "")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-3/accept", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if body["code"] != "OUT_OF_ORDER" || body["conflict_episode"] != float64(5) {
		t.Errorf("body = %v", body)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-3/accept",
		`{"allow_out_of_order":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("opt-in accept: %d, want 200", resp.StatusCode)
	}
}

func TestCharacterStateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/shows/show-1/characters/lala/state?season_id=s1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	stats := body["stats"].(map[string]any)
	if stats["coins"] != float64(500) || stats["reputation"] != float64(1) {
		t.Errorf("stats = %v, want seed defaults", stats)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv := newTestServer(t)
	putEpisode(t, srv, "ep-1", 1, testScript)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/evaluate", "")
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/accept", "")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/shows/show-1/history", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	entries := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entry := entries[0].(map[string]any)
	if entry["source"] != "computed" || entry["episode_id"] != "ep-1" {
		t.Errorf("entry = %v", entry)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/catalog/reasons", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	reasons := body["reasons"].([]any)
	if len(reasons) != len(formula.Reasons) {
		t.Errorf("reasons = %d, want %d", len(reasons), len(formula.Reasons))
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/catalog/tiers", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["formula_version"] != formula.Version {
		t.Errorf("formula_version = %v", body["formula_version"])
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	putEpisode(t, srv, "ep-1", 1, testScript)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/evaluate", "")
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/episodes/ep-1/accept", "")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/shows/show-1/export", `{"season_id":"s1"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("export: %d %v", resp.StatusCode, body)
	}
	exportID, _ := body["export_id"].(string)
	if exportID == "" {
		t.Fatal("missing export_id")
	}
	if body["entries"] != float64(1) {
		t.Errorf("entries = %v, want 1", body["entries"])
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/shows/show-1/exports/"+exportID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch export: %d", resp.StatusCode)
	}
	if body["character_key"] != "lala" {
		t.Errorf("bundle = %v", body)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	store, err := sandbox.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	mux := http.NewServeMux()
	NewHandler(evaluation.NewService(store, nil), nil, nil).RegisterRoutes(mux)
	srv := httptest.NewServer(APIKeyAuth("secret")(mux))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/catalog/tiers")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without key: %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/catalog/tiers", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with key: %d, want 200", resp.StatusCode)
	}
}
