package handlers

import (
	"net/http"
	"testing"

	"github.com/smartgallery/backend/internal/ml"
	"github.com/smartgallery/backend/internal/store"
)

func object(class string) ml.DetectedObject {
	return ml.DetectedObject{
		ClassName:  class,
		Confidence: 0.9,
		BBox:       []float64{0.2, 0.2, 0.6, 0.6},
	}
}

// categoriesEnv uploads three photos: two dogs (one photo with two dog
// detections) and one cat.
func categoriesEnv(t *testing.T) (*testEnv, []string) {
	t.Helper()

	vision := &fakeVision{
		clip: []float32{1, 0, 0},
		text: []float32{1, 0, 0},
		objectsQueue: [][]ml.DetectedObject{
			{object("dog"), object("dog")},
			{object("dog")},
			{object("cat")},
		},
	}
	env := newTestEnv(t, vision)

	photoIDs := []string{
		env.upload(t, "p1.png"),
		env.upload(t, "p2.png"),
		env.upload(t, "p3.png"),
	}
	return env, photoIDs
}

func TestCategoriesList(t *testing.T) {
	env, photoIDs := categoriesEnv(t)

	recorder := env.do(t, "GET", "/categories", nil)
	assertStatusCode(t, recorder, http.StatusOK)

	var body struct {
		Categories []store.Category `json:"categories"`
	}
	parseJSONResponse(t, recorder, &body)
	if len(body.Categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(body.Categories))
	}

	// Most detected class first.
	dog, cat := body.Categories[0], body.Categories[1]
	if dog.ClassName != "dog" || dog.Count != 3 {
		t.Errorf("first category = %s/%d, want dog/3", dog.ClassName, dog.Count)
	}
	if cat.ClassName != "cat" || cat.Count != 1 {
		t.Errorf("second category = %s/%d, want cat/1", cat.ClassName, cat.Count)
	}

	// Photo ids are distinct even when one photo has several detections.
	if len(dog.PhotoIDs) != 2 {
		t.Errorf("dog photo ids = %v, want 2 distinct photos", dog.PhotoIDs)
	}
	if len(cat.PhotoIDs) != 1 || cat.PhotoIDs[0] != photoIDs[2] {
		t.Errorf("cat photo ids = %v, want [%s]", cat.PhotoIDs, photoIDs[2])
	}
}

func TestCategoriesListEmpty(t *testing.T) {
	env := newTestEnv(t, nil)

	recorder := env.do(t, "GET", "/categories", nil)
	assertStatusCode(t, recorder, http.StatusOK)

	var body struct {
		Categories []store.Category `json:"categories"`
	}
	parseJSONResponse(t, recorder, &body)
	if len(body.Categories) != 0 {
		t.Errorf("got %d categories, want 0", len(body.Categories))
	}
}

func TestSearchByObjectClass(t *testing.T) {
	env, photoIDs := categoriesEnv(t)

	recorder := env.do(t, "GET", "/search/object/dog", nil)
	assertStatusCode(t, recorder, http.StatusOK)

	var body struct {
		Results []store.Photo `json:"results"`
	}
	parseJSONResponse(t, recorder, &body)
	if len(body.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(body.Results))
	}
	want := map[string]bool{photoIDs[0]: true, photoIDs[1]: true}
	for _, p := range body.Results {
		if !want[p.ID] {
			t.Errorf("unexpected photo %s in dog results", p.ID)
		}
	}

	recorder = env.do(t, "GET", "/search/object/dog?limit=1", nil)
	parseJSONResponse(t, recorder, &body)
	if len(body.Results) != 1 {
		t.Errorf("got %d results with limit=1, want 1", len(body.Results))
	}

	recorder = env.do(t, "GET", "/search/object/zebra", nil)
	assertStatusCode(t, recorder, http.StatusOK)
	parseJSONResponse(t, recorder, &body)
	if len(body.Results) != 0 {
		t.Errorf("got %d results for unknown class, want 0", len(body.Results))
	}
}

func TestStatsIncludesDetections(t *testing.T) {
	env, _ := categoriesEnv(t)

	recorder := env.do(t, "GET", "/stats", nil)
	assertStatusCode(t, recorder, http.StatusOK)

	var stats struct {
		Photos       int   `json:"photos"`
		Detections   int   `json:"detections"`
		Categories   int   `json:"categories"`
		StorageBytes int64 `json:"storage_bytes"`
	}
	parseJSONResponse(t, recorder, &stats)
	if stats.Detections != 4 {
		t.Errorf("detections = %d, want 4", stats.Detections)
	}
	if stats.Categories != 2 {
		t.Errorf("categories = %d, want 2", stats.Categories)
	}
	if stats.StorageBytes <= 0 {
		t.Errorf("storage_bytes = %d, want > 0", stats.StorageBytes)
	}
}
