package logger

import "testing"

func TestLogSafeBeforeInit(t *testing.T) {
	if Logger == nil {
		t.Fatal("expected a usable default logger before Init")
	}

	// Must not panic without Init having run.
	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
	WithRequestID("req-1").Info("scoped")
}

func TestInitReplacesDefault(t *testing.T) {
	if err := Init("production"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Logger == nil {
		t.Fatal("expected Init to install a logger")
	}
	Sync()
}
