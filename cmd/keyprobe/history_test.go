package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/keyprobe/internal/database"
	"github.com/nao1215/keyprobe/internal/model"
)

// seedHistory saves two scans into a fresh database and returns its directory.
func seedHistory(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reports := []*model.Report{
		{
			ScanID:     "11111111-aaaa-4aaa-8aaa-000000000001",
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
			Total:      2, Processed: 2, Active: 1,
			Results: []model.Result{
				{Candidate: model.Candidate(activeKey), Outcome: model.Success([]model.ModelInfo{model.NewModelInfo("models/gemini-pro", "")})},
				{Candidate: model.Candidate(rejectedKey), Outcome: model.RemoteError(400, "API key not valid.")},
			},
		},
		{
			ScanID:     "22222222-bbbb-4bbb-8bbb-000000000002",
			StartedAt:  started.Add(time.Hour),
			FinishedAt: started.Add(time.Hour + time.Second),
			Total:      1, Processed: 1,
			Results: []model.Result{
				{Candidate: model.Candidate(activeKey), Outcome: model.RemoteError(403, "API key expired.")},
			},
		},
	}
	for _, r := range reports {
		if err := db.SaveReport(t.Context(), r); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	for _, name := range []string{"id", "key", "limit", "json", "config", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	// Subtests share one database file and run sequentially.
	dir := seedHistory(t)

	t.Run("lists scans newest first", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "history", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first := strings.Index(stdout, "22222222")
		second := strings.Index(stdout, "11111111")
		if first < 0 || second < 0 || first > second {
			t.Errorf("expected newest scan first, got:\n%s", stdout)
		}
		if !strings.Contains(stdout, "Saved scans (2)") {
			t.Errorf("unexpected output:\n%s", stdout)
		}
	})

	t.Run("limit", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "history", "--db-dir", dir, "-l", "1", "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var scans []database.ScanSummary
		if err := json.Unmarshal([]byte(stdout), &scans); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(scans) != 1 || scans[0].ScanID != "22222222-bbbb-4bbb-8bbb-000000000002" {
			t.Errorf("scans = %+v", scans)
		}
	})

	t.Run("shows one scan by prefix", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "history", "--db-dir", dir, "--id", "1111")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Scan 11111111-aaaa", "[ACTIVE] AIzaSy...1111", "[ERROR]  AIzaSy...2222", "API key not valid."} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, stdout)
			}
		}
		if strings.Contains(stdout, activeKey) {
			t.Error("full key must not be shown")
		}
	})

	t.Run("unknown scan", func(t *testing.T) {
		_, _, err := runCLI(t, "", "history", "--db-dir", dir, "--id", "ffff")
		if !errors.Is(err, database.ErrScanNotFound) {
			t.Errorf("error = %v, want ErrScanNotFound", err)
		}
	})

	t.Run("key history by key and by fingerprint", func(t *testing.T) {
		byKey, _, err := runCLI(t, "", "history", "--db-dir", dir, "--key", activeKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(byKey, "2 scan(s)") || !strings.Contains(byKey, "API key expired.") {
			t.Errorf("unexpected output:\n%s", byKey)
		}

		fp := model.Candidate(activeKey).Fingerprint()
		byFingerprint, _, err := runCLI(t, "", "history", "--db-dir", dir, "-k", strings.ToUpper(fp))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if byFingerprint != byKey {
			t.Errorf("lookups differ:\n%s\n---\n%s", byKey, byFingerprint)
		}
	})

	t.Run("key history JSON", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "history", "--db-dir", dir, "--key", rejectedKey, "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var obs []database.KeyObservation
		if err := json.Unmarshal([]byte(stdout), &obs); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(obs) != 1 || obs[0].Status != model.OutcomeRemoteError || obs[0].StatusCode != 400 {
			t.Errorf("observations = %+v", obs)
		}
	})

	t.Run("rejects an invalid key argument", func(t *testing.T) {
		_, _, err := runCLI(t, "", "history", "--db-dir", dir, "--key", "not-a-key")
		if !errors.Is(err, errInvalidKeyArg) {
			t.Errorf("error = %v, want errInvalidKeyArg", err)
		}
	})

	t.Run("rejects id with key", func(t *testing.T) {
		if _, _, err := runCLI(t, "", "history", "--db-dir", dir, "--id", "1", "--key", activeKey); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRunHistoryCmdEmpty(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "none")
	stdout, _, err := runCLI(t, "", "history", "--db-dir", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "No scan history found.") {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestKeyFingerprint(t *testing.T) {
	t.Parallel()

	fp := model.Candidate(activeKey).Fingerprint()

	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr bool
	}{
		{name: "key", arg: activeKey, want: fp},
		{name: "key with spaces", arg: "  " + activeKey + "\n", want: fp},
		{name: "fingerprint", arg: fp, want: fp},
		{name: "upper case fingerprint", arg: strings.ToUpper(fp), want: fp},
		{name: "short hex", arg: fp[:20], wantErr: true},
		{name: "garbage", arg: "hello", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := keyFingerprint(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("keyFingerprint(%q) expected error", tt.arg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("keyFingerprint(%q) = %q, want %q", tt.arg, got, tt.want)
			}
		})
	}
}
