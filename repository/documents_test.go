package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMatchDocument(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := bson.M{
		"stage":      "Lead",
		"version":    int32(2),
		"created_at": primitive.NewDateTimeFromTime(now),
	}

	tests := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"no filters", nil, true},
		{"eq string", []Filter{Eq("stage", "Lead")}, true},
		{"eq mismatched", []Filter{Eq("stage", "Prospect")}, false},
		{"eq across int widths", []Filter{Eq("version", int64(2))}, true},
		{"ne", []Filter{Ne("stage", "Prospect")}, true},
		{"missing field equals nil", []Filter{Eq("won_date", nil)}, true},
		{"eq or null on missing", []Filter{EqOrNull("pipeline_id", "p1")}, true},
		{"eq or null on other value", []Filter{EqOrNull("stage", "Prospect")}, false},
		{"gte time", []Filter{Gte("created_at", now)}, true},
		{"lte time before", []Filter{Lte("created_at", now.Add(-time.Second))}, false},
		{"gte incomparable", []Filter{Gte("stage", 3)}, false},
		{"all must match", []Filter{Eq("stage", "Lead"), Eq("version", 3)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchDocument(doc, tt.filters))
		})
	}
}

func TestDecrementField(t *testing.T) {
	doc := bson.M{"a": int32(5), "b": 2.5, "s": "x"}

	assert.NoError(t, decrementField(doc, "a", 2))
	assert.Equal(t, int64(3), doc["a"])

	assert.NoError(t, decrementField(doc, "b", 1))
	assert.Equal(t, 1.5, doc["b"])

	assert.NoError(t, decrementField(doc, "missing", 1))
	assert.Equal(t, int64(-1), doc["missing"])

	assert.Error(t, decrementField(doc, "s", 1))
}

func TestSortDocumentsIsStable(t *testing.T) {
	docs := []bson.M{
		{"id": "a", "position": int32(2)},
		{"id": "b", "position": int32(1)},
		{"id": "c", "position": int32(2)},
	}
	sortDocuments(docs, []Sort{{Field: "position"}})
	assert.Equal(t, "b", docs[0]["id"])
	assert.Equal(t, "a", docs[1]["id"])
	assert.Equal(t, "c", docs[2]["id"])
}

func TestBuildFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, buildFilter(nil))
	assert.Equal(t, bson.M{"stage": "Lead"}, buildFilter([]Filter{Eq("stage", "Lead")}))

	got := buildFilter([]Filter{Eq("id", "1"), EqOrNull("version", int64(0))})
	assert.Equal(t, bson.M{"$and": []bson.M{
		{"id": "1"},
		{"$or": []bson.M{{"version": int64(0)}, {"version": nil}}},
	}}, got)
}
