package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readCategoryLog(t *testing.T, dir string, cat Category) string {
	t.Helper()
	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, date+"_"+string(cat)+".log"))
	if err != nil {
		t.Fatalf("read %s log: %v", cat, err)
	}
	return string(data)
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: dir, DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer CloseAll()

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	for _, cat := range AllCategories {
		Get(cat).Info("hello from %s", cat)
	}
	CloseAll()

	for _, cat := range AllCategories {
		content := readCategoryLog(t, dir, cat)
		if !strings.Contains(content, "hello from "+string(cat)) {
			t.Errorf("category %s log missing message, got %q", cat, content)
		}
	}
}

func TestDebugModeDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(Options{Dir: dir, DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	Session("should not be written")
	API("should not be written")

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("logs dir should not be created in production mode, stat err = %v", err)
	}
}

func TestCategoryToggle(t *testing.T) {
	dir := t.TempDir()
	err := Initialize(Options{
		Dir:        dir,
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{"api": false, "session": true},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	if IsCategoryEnabled(CategoryAPI) {
		t.Error("api should be disabled")
	}
	if !IsCategoryEnabled(CategorySession) {
		t.Error("session should be enabled")
	}
	if !IsCategoryEnabled(CategoryStore) {
		t.Error("unlisted categories default to enabled")
	}

	API("dropped")
	Session("kept")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	if _, err := os.Stat(filepath.Join(dir, date+"_api.log")); !os.IsNotExist(err) {
		t.Error("api log file should not exist")
	}
	if content := readCategoryLog(t, dir, CategorySession); !strings.Contains(content, "kept") {
		t.Errorf("session log = %q", content)
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: dir, DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryCallList)
	l.Info("quiet info")
	l.Warn("loud warning")
	CloseAll()

	content := readCategoryLog(t, dir, CategoryCallList)
	if strings.Contains(content, "quiet info") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(content, "loud warning") {
		t.Error("warning missing")
	}
}

func TestRequestIDAndJSON(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: dir, DebugMode: true, Level: "debug", JSONFormat: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	WithRequestID(CategoryAPI, "req-123").Info("GET %s", "/admin/stats")
	CloseAll()

	content := readCategoryLog(t, dir, CategoryAPI)
	if !strings.Contains(content, `"req":"req-123"`) {
		t.Errorf("expected request id field, got %q", content)
	}
	if !strings.Contains(content, `"msg":"GET /admin/stats"`) {
		t.Errorf("expected formatted message, got %q", content)
	}
}

func TestTimerLogging(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: dir, DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	timer := StartTimer(CategoryViews, "load dashboard")
	time.Sleep(5 * time.Millisecond)
	if elapsed := timer.StopWithThreshold(time.Millisecond); elapsed < 5*time.Millisecond {
		t.Errorf("elapsed = %v", elapsed)
	}
	CloseAll()

	if content := readCategoryLog(t, dir, CategoryViews); !strings.Contains(content, "load dashboard took") {
		t.Errorf("expected threshold warning, got %q", content)
	}
}
