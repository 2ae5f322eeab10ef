package debug

import "testing"

func TestSetEnabled(t *testing.T) {
	old := Enabled()
	defer SetEnabled(old)

	SetEnabled(true)
	if !Enabled() {
		t.Error("SetEnabled(true) should enable")
	}
	// Must not panic with the lazily created logger.
	Log("debug %s", "message")
	LogTiming("op", 0)
	LogEnterExit("fn")()
	Dump("value", struct{ N int }{42})

	SetEnabled(false)
	if Enabled() {
		t.Error("SetEnabled(false) should disable")
	}
	Log("discarded")
}
