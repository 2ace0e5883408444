package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/talgya/shoal-accord/internal/accord"
	"github.com/talgya/shoal-accord/internal/bargain"
	"github.com/talgya/shoal-accord/internal/calibrate"
	"github.com/talgya/shoal-accord/internal/incident"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open should create missing parent directories: %v", err)
	}
	db.Close()
}

func TestSaveSessionAndEvaluation(t *testing.T) {
	db := openTemp(t)

	sess := bargain.NewSession("shoal-1", []string{"PH_GOV", "PRC_MARITIME"},
		"ASEAN_FACILITATOR", []accord.Issue{accord.IssueHotline})
	if err := db.SaveSession("shoal-1", sess); err != nil {
		t.Fatal(err)
	}

	res, err := sess.EvaluateOffer("PH_GOV", accord.Empty())
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveEvaluation("shoal-1", res); err != nil {
		t.Fatal(err)
	}
}

func TestSaveRunAndReadBack(t *testing.T) {
	db := openTemp(t)

	log := []incident.Incident{
		{Step: 3, Type: incident.TypeWaterCannon, Severity: 0.7},
		{Step: 9, Type: incident.TypeNearMiss, Severity: 0.2},
	}
	rec := RunRecord{
		ID: "run-1", Steps: 100, Seed: 42,
		Alpha: 1.0, BaseP: 0.25,
		Incidents: 2, MaxSeverity: 0.7,
	}
	if err := db.SaveRun(rec, log); err != nil {
		t.Fatal(err)
	}

	runs, err := db.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" || runs[0].Incidents != 2 {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	events, err := db.RunEvents("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Step != 3 || events[0].Type != "water-cannon" {
		t.Fatalf("first event: %+v", events[0])
	}
	if events[1].Type != "near-miss" || events[1].Severity != 0.2 {
		t.Fatalf("second event: %+v", events[1])
	}
}

func TestCalibrationRoundtrip(t *testing.T) {
	db := openTemp(t)

	if _, err := db.LatestCalibration(); err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows on empty table, got %v", err)
	}

	if err := db.SaveCalibration(calibrate.Result{Alpha: 1.2, BaseP: 0.2, Score: 14}, 300, 20); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCalibration(calibrate.Result{Alpha: 1.0, BaseP: 0.25, Score: 3}, 300, 20); err != nil {
		t.Fatal(err)
	}

	best, err := db.LatestCalibration()
	if err != nil {
		t.Fatal(err)
	}
	if best.Alpha != 1.0 || best.BaseP != 0.25 || best.Score != 3 {
		t.Fatalf("latest calibration: %+v", best)
	}
}
