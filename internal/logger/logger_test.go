package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestResolveLogFilePathDefaultsToWorkdirLogs(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	realTmp, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("eval tmp dir failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("eval log dir failed: %v", err)
	}
	if realGot != filepath.Join(realTmp, defaultDirName) {
		t.Fatalf("unexpected log dir: %s", realGot)
	}
	if filepath.Base(got) != defaultFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
}

func TestReleaseModeWritesEventToFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "loyalty.log"})
	log.Sugar().Infow("points_awarded", "user_id", 7, "points", 20)
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "loyalty.log"))
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"event":"points_awarded"`) {
		t.Fatalf("expected event key in log, got=%s", text)
	}
	if !strings.Contains(text, `"user_id":7`) {
		t.Fatalf("expected user_id field in log, got=%s", text)
	}
}

func TestDebugModeDoesNotCreateFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("coupon_claimed")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestResolveLevel(t *testing.T) {
	cases := []struct {
		raw   string
		debug bool
		want  zap.AtomicLevel
	}{
		{raw: "", debug: true, want: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{raw: "", debug: false, want: zap.NewAtomicLevelAt(zap.InfoLevel)},
		{raw: "WARN", debug: true, want: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{raw: "bogus", debug: false, want: zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tc := range cases {
		got := resolveLevel(tc.raw, tc.debug)
		if got.Level() != tc.want.Level() {
			t.Fatalf("resolveLevel(%q,%v)=%s want %s", tc.raw, tc.debug, got.Level(), tc.want.Level())
		}
	}
}
