package match

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
	"github.com/BigDataForSanDiego/resourcelink/internal/metrics"
	"github.com/BigDataForSanDiego/resourcelink/internal/repository/audit"
	"github.com/BigDataForSanDiego/resourcelink/internal/usecase/classify"
)

func TestMain(m *testing.M) {
	metrics.RegisterMatchMetrics()
	os.Exit(m.Run())
}

func ptr(v float64) *float64 { return &v }

// Origin for all tests: downtown San Diego.
const (
	originLat = 32.7200
	originLon = -117.1600
)

// record builds a catalog record offset north of the origin by roughly
// deltaMiles (1 degree latitude is about 69 miles).
func record(name string, deltaMiles float64) domain.ResourceRecord {
	return domain.ResourceRecord{
		Name:    name,
		NameKey: domain.NormalizeName(name),
		Lat:     ptr(originLat + deltaMiles/69.0),
		Lon:     ptr(originLon),
	}
}

type mockCatalog struct {
	byCategory map[string][]domain.ResourceRecord
	err        error
	lastAsked  string
}

func (m *mockCatalog) FilterByCategory(_ context.Context, category string) ([]domain.ResourceRecord, error) {
	m.lastAsked = category
	if m.err != nil {
		return nil, m.err
	}
	return m.byCategory[category], nil
}

type mockResolver struct{ res classify.Resolution }

func (m *mockResolver) Resolve(_ context.Context, _ string) classify.Resolution { return m.res }

type mockAvail struct{ records map[string]domain.AvailabilityRecord }

func (m *mockAvail) Lookup(_ context.Context, nameKey string) (domain.AvailabilityRecord, bool) {
	rec, ok := m.records[nameKey]
	return rec, ok
}

type mockGeocoder struct {
	lat, lon float64
	err      error
	calls    int
}

func (m *mockGeocoder) Resolve(_ context.Context, _ string) (float64, float64, error) {
	m.calls++
	return m.lat, m.lon, m.err
}

type mockAuditor struct {
	events []audit.Event
	err    error
}

func (m *mockAuditor) Append(ev audit.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func resolved(category string) classify.Resolution {
	return classify.Resolution{Category: category, Source: classify.SourceModel}
}

func newService(cat *mockCatalog, res *mockResolver, av *mockAvail, geo *mockGeocoder, aud *mockAuditor) *Service {
	return New(cat, res, av, geo, nil, aud, Options{}, zap.NewNop())
}

func coordQuery(need string) domain.NeedQuery {
	return domain.NeedQuery{Need: need, Lat: ptr(originLat), Lon: ptr(originLon)}
}

func TestService_MatchCategoryFilterBeatsProximity(t *testing.T) {
	// A closer food pantry must not displace the shelter the need resolved to.
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{
		"emergency shelter": {record("Downtown Shelter", 0.5)},
		"food":              {record("Corner Pantry", 0.2)},
	}}
	aud := &mockAuditor{}
	svc := newService(cat, &mockResolver{res: resolved("emergency shelter")}, &mockAvail{}, &mockGeocoder{}, aud)

	result, err := svc.Match(context.Background(), coordQuery("I need a bed tonight"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cat.lastAsked != "emergency shelter" {
		t.Errorf("catalog asked for %q", cat.lastAsked)
	}
	if len(result.Results) != 1 || result.Results[0].NameKey != "downtown shelter" {
		t.Fatalf("results = %+v, expected only the shelter", result.Results)
	}
	if result.Category != "emergency shelter" {
		t.Errorf("category = %q", result.Category)
	}
	if len(aud.events) != 1 {
		t.Fatalf("audit events = %d, expected exactly 1", len(aud.events))
	}
}

func TestService_MatchJoinsStaleAvailability(t *testing.T) {
	now := time.Date(2025, 11, 2, 18, 0, 0, 0, time.UTC)
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{
		"emergency shelter": {record("Downtown Shelter", 0.5)},
	}}
	av := &mockAvail{records: map[string]domain.AvailabilityRecord{
		"downtown shelter": {
			BedsTotal: 100, BedsAvailable: 12,
			LastUpdated: now.Add(-3 * time.Hour), TTLMinutes: 120,
		},
	}}
	svc := newService(cat, &mockResolver{res: resolved("emergency shelter")}, av, &mockGeocoder{}, &mockAuditor{})
	svc.now = func() time.Time { return now }

	result, err := svc.Match(context.Background(), coordQuery("bed tonight"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	snap := result.Results[0].Availability
	if snap == nil {
		t.Fatal("expected availability snapshot")
	}
	if !snap.Stale {
		t.Error("3h-old record with 120m TTL not marked stale")
	}
	if snap.BedsAvailable != 12 || snap.BedsTotal != 100 {
		t.Errorf("counts altered: %+v", snap)
	}
}

func TestService_MatchOrdersByDistance(t *testing.T) {
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{
		"food": {record("Far Pantry", 4.0), record("Near Pantry", 0.3), record("Mid Pantry", 1.5)},
	}}
	svc := newService(cat, &mockResolver{res: resolved("food")}, &mockAvail{}, &mockGeocoder{}, &mockAuditor{})

	result, err := svc.Match(context.Background(), coordQuery("hungry"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	got := []string{result.Results[0].NameKey, result.Results[1].NameKey, result.Results[2].NameKey}
	want := []string{"near pantry", "mid pantry", "far pantry"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, expected %v", got, want)
		}
	}
	if result.Results[0].DistanceMiles <= 0 || result.Results[0].DistanceMiles > 0.5 {
		t.Errorf("near distance = %f, expected about 0.3", result.Results[0].DistanceMiles)
	}
}

func TestService_MatchDropsRecordsWithoutCoordinates(t *testing.T) {
	noCoords := domain.ResourceRecord{Name: "Mail Only", NameKey: "mail only"}
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{
		"food": {noCoords, record("Near Pantry", 0.3)},
	}}
	svc := newService(cat, &mockResolver{res: resolved("food")}, &mockAvail{}, &mockGeocoder{}, &mockAuditor{})

	result, err := svc.Match(context.Background(), coordQuery("hungry"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(result.Results) != 1 || result.Results[0].NameKey != "near pantry" {
		t.Errorf("results = %+v, expected only the geocoded record", result.Results)
	}
}

func TestService_MatchNeedsConfirmation(t *testing.T) {
	aud := &mockAuditor{}
	res := &mockResolver{res: classify.Resolution{
		Source:      classify.SourceNone,
		Suggestions: []string{"emergency shelter", "food"},
	}}
	svc := newService(&mockCatalog{}, res, &mockAvail{}, &mockGeocoder{}, aud)

	result, err := svc.Match(context.Background(), coordQuery("struggling lately"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !result.NeedsConfirmation {
		t.Fatal("expected needs-confirmation outcome")
	}
	if len(result.SuggestedCategories) != 2 {
		t.Errorf("suggestions = %v", result.SuggestedCategories)
	}
	if result.SessionID == "" {
		t.Error("expected generated session id")
	}
	// The decision is still audited, with no category and zero results.
	if len(aud.events) != 1 {
		t.Fatalf("audit events = %d, expected 1", len(aud.events))
	}
	if aud.events[0].Category != "" || aud.events[0].Returned != 0 {
		t.Errorf("audit event = %+v", aud.events[0])
	}
}

func TestService_MatchValidation(t *testing.T) {
	svc := newService(&mockCatalog{}, &mockResolver{res: resolved("food")}, &mockAvail{}, &mockGeocoder{}, &mockAuditor{})

	tests := []struct {
		name string
		q    domain.NeedQuery
		want error
	}{
		{"no origin", domain.NeedQuery{Need: "hungry"}, domain.ErrInvalidLocation},
		{"latitude out of range", domain.NeedQuery{Need: "hungry", Lat: ptr(95.0), Lon: ptr(-117.1)}, domain.ErrInvalidLocation},
		{"longitude out of range", domain.NeedQuery{Need: "hungry", Lat: ptr(32.7), Lon: ptr(-190.0)}, domain.ErrInvalidLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Match(context.Background(), tt.q); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestService_MatchUnresolvableZipIsClientError(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("zip not found")}
	svc := newService(&mockCatalog{}, &mockResolver{res: resolved("food")}, &mockAvail{}, geo, &mockAuditor{})

	_, err := svc.Match(context.Background(), domain.NeedQuery{Need: "hungry", Zip: "00000"})
	if !errors.Is(err, domain.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestService_MatchEmptyNeedAsksForConfirmation(t *testing.T) {
	aud := &mockAuditor{}
	res := &mockResolver{res: classify.Resolution{
		Source:      classify.SourceNone,
		Suggestions: []string{"emergency shelter", "food", "clinic"},
	}}
	svc := newService(&mockCatalog{}, res, &mockAvail{}, &mockGeocoder{}, aud)

	result, err := svc.Match(context.Background(), coordQuery(""))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !result.NeedsConfirmation {
		t.Fatal("expected needs-confirmation outcome for empty need text")
	}
	if len(result.SuggestedCategories) == 0 {
		t.Error("expected default suggestions")
	}
	if len(aud.events) != 1 {
		t.Errorf("audit events = %d, expected 1", len(aud.events))
	}
}

func TestService_MatchValidationWritesNoAudit(t *testing.T) {
	aud := &mockAuditor{}
	svc := newService(&mockCatalog{}, &mockResolver{res: resolved("food")}, &mockAvail{}, &mockGeocoder{}, aud)

	svc.Match(context.Background(), domain.NeedQuery{Need: "hungry"})
	if len(aud.events) != 0 {
		t.Errorf("audit events = %d, expected none for rejected request", len(aud.events))
	}
}

func TestService_MatchResolvesZip(t *testing.T) {
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{
		"food": {record("Near Pantry", 0.3)},
	}}
	geo := &mockGeocoder{lat: originLat, lon: originLon}
	svc := newService(cat, &mockResolver{res: resolved("food")}, &mockAvail{}, geo, &mockAuditor{})

	result, err := svc.Match(context.Background(), domain.NeedQuery{Need: "hungry", Zip: "92101"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if geo.calls != 1 {
		t.Errorf("geocoder called %d times", geo.calls)
	}
	if result.Origin.Lat != originLat {
		t.Errorf("origin = %+v", result.Origin)
	}
}

func TestService_MatchCoordinatesSkipGeocoder(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("should not be called")}
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{"food": {record("Near Pantry", 0.3)}}}
	svc := newService(cat, &mockResolver{res: resolved("food")}, &mockAvail{}, geo, &mockAuditor{})

	q := coordQuery("hungry")
	q.Zip = "92101" // coordinates win when both are present
	if _, err := svc.Match(context.Background(), q); err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if geo.calls != 0 {
		t.Errorf("geocoder called %d times, expected 0", geo.calls)
	}
}

func TestService_MatchTruncatesAfterRanking(t *testing.T) {
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{
		"food": {
			record("P1", 5.0), record("P2", 0.1), record("P3", 3.0),
			record("P4", 0.7), record("P5", 2.0), record("P6", 1.0),
		},
	}}
	svc := newService(cat, &mockResolver{res: resolved("food")}, &mockAvail{}, &mockGeocoder{}, &mockAuditor{})

	result, err := svc.Match(context.Background(), domain.NeedQuery{
		Need: "hungry", Lat: ptr(originLat), Lon: ptr(originLon), K: 2,
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(result.Results) != 2 {
		t.Fatalf("len = %d, expected 2", len(result.Results))
	}
	// The two nearest overall, not the first two in catalog order.
	if result.Results[0].NameKey != "p2" || result.Results[1].NameKey != "p4" {
		t.Errorf("results = %s, %s", result.Results[0].NameKey, result.Results[1].NameKey)
	}
}

func TestService_MatchClampsK(t *testing.T) {
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{"food": {record("P1", 1.0)}}}
	svc := newService(cat, &mockResolver{res: resolved("food")}, &mockAvail{}, &mockGeocoder{}, &mockAuditor{})

	result, err := svc.Match(context.Background(), domain.NeedQuery{
		Need: "hungry", Lat: ptr(originLat), Lon: ptr(originLon), K: 500,
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.RequestedK != domain.MaxK {
		t.Errorf("RequestedK = %d, expected clamp to %d", result.RequestedK, domain.MaxK)
	}

	result, _ = svc.Match(context.Background(), coordQuery("hungry"))
	if result.RequestedK != domain.DefaultK {
		t.Errorf("RequestedK = %d, expected default %d", result.RequestedK, domain.DefaultK)
	}
}

func TestService_MatchAuditEventShape(t *testing.T) {
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{
		"food": {record("Near Pantry", 0.3)},
	}}
	aud := &mockAuditor{}
	svc := newService(cat, &mockResolver{res: resolved("food")}, &mockAvail{}, &mockGeocoder{}, aud)

	longNeed := strings.Repeat("hungry ", 40) // well past 120 runes
	q := domain.NeedQuery{
		Need:      longNeed,
		Lat:       ptr(32.719876543),
		Lon:       ptr(-117.162123456),
		SessionID: "session-1",
	}
	if _, err := svc.Match(context.Background(), q); err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if len(aud.events) != 1 {
		t.Fatalf("audit events = %d", len(aud.events))
	}
	ev := aud.events[0]
	if ev.Lat != 32.71988 || ev.Lon != -117.16212 {
		t.Errorf("origin = (%f, %f), expected 5-decimal rounding", ev.Lat, ev.Lon)
	}
	if got := len([]rune(ev.NeedRaw)); got != 120 {
		t.Errorf("need_raw length = %d runes, expected truncation to 120", got)
	}
	if ev.SessionID != "session-1" {
		t.Errorf("session id = %q", ev.SessionID)
	}

	var lines []struct {
		Name          string  `json:"name"`
		DistanceMiles float64 `json:"distance_miles"`
	}
	if err := json.Unmarshal(ev.Results, &lines); err != nil {
		t.Fatalf("results not valid JSON: %v", err)
	}
	if len(lines) != 1 || lines[0].Name != "near pantry" {
		t.Errorf("results = %+v", lines)
	}
}

func TestService_MatchAuditFailureDoesNotFailRequest(t *testing.T) {
	cat := &mockCatalog{byCategory: map[string][]domain.ResourceRecord{"food": {record("P1", 1.0)}}}
	aud := &mockAuditor{err: errors.New("disk full")}
	svc := newService(cat, &mockResolver{res: resolved("food")}, &mockAvail{}, &mockGeocoder{}, aud)

	if _, err := svc.Match(context.Background(), coordQuery("hungry")); err != nil {
		t.Fatalf("Match failed on audit error: %v", err)
	}
}
